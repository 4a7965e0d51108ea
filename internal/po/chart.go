package po

import (
	"sort"
	"strings"
)

// Chart carries chart-ready aggregations of the raw record set.
type Chart struct {
	UnitList    []string `json:"unitList"`
	PBPD        []int    `json:"pbpdArr"`
	HAR         []int    `json:"harArr"`
	MonthLabels []string `json:"bulanLabels"`
	MonthValues []int    `json:"bulanValues"`
	TotalPBPD   int      `json:"totalPBPD"`
	TotalHAR    int      `json:"totalHAR"`
}

// ChartSeries aggregates records for the dashboard charts. It ignores the table
// filters: non-administrators are scoped to their own unit, administrators may
// narrow to chartUnit.
func ChartSeries(records []Record, role RoleContext, chartUnit string) Chart {
	chartUnit = strings.TrimSpace(chartUnit)
	perPBPD := make(map[string]int)
	perHAR := make(map[string]int)
	perMonth := make(map[string]int)

	var chart Chart
	for _, rec := range records {
		switch {
		case !role.IsAdmin() && role.Unit != "":
			if rec.Unit != role.Unit {
				continue
			}
		case role.IsAdmin() && chartUnit != "":
			if rec.Unit != chartUnit {
				continue
			}
		}
		if rec.Unit == "" || rec.Date == "" {
			continue
		}

		switch rec.Purpose {
		case PurposePBPD:
			perPBPD[rec.Unit]++
			chart.TotalPBPD++
		case PurposeHAR:
			perHAR[rec.Unit]++
			chart.TotalHAR++
		}
		perMonth[monthKey(rec.Date)]++
	}

	seen := make(map[string]struct{}, len(perPBPD)+len(perHAR))
	for unit := range perPBPD {
		seen[unit] = struct{}{}
	}
	for unit := range perHAR {
		seen[unit] = struct{}{}
	}
	chart.UnitList = sortedKeys(seen)
	chart.PBPD = make([]int, len(chart.UnitList))
	chart.HAR = make([]int, len(chart.UnitList))
	for i, unit := range chart.UnitList {
		chart.PBPD[i] = perPBPD[unit]
		chart.HAR[i] = perHAR[unit]
	}

	chart.MonthLabels = make([]string, 0, len(perMonth))
	for month := range perMonth {
		chart.MonthLabels = append(chart.MonthLabels, month)
	}
	sort.Strings(chart.MonthLabels)
	chart.MonthValues = make([]int, len(chart.MonthLabels))
	for i, month := range chart.MonthLabels {
		chart.MonthValues[i] = perMonth[month]
	}
	return chart
}

// monthKey takes the yyyy-MM prefix of the date string.
func monthKey(date string) string {
	if len(date) <= 7 {
		return date
	}
	return date[:7]
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
