package po

// TariffOptions lists the selectable units, tariffs and power ratings.
type TariffOptions struct {
	Units   []string `json:"units"`
	Tariffs []string `json:"tarifs"`
	Powers  []string `json:"dayas"`
}

// TariffRow is one row of the tariff sheet: unit, tariff, power.
type TariffRow struct {
	Unit   string `json:"unit"`
	Tariff string `json:"tarif"`
	Power  string `json:"daya"`
}

// ParseTariffRows decodes positional tariff rows; missing cells become empty.
func ParseTariffRows(rows [][]any) []TariffRow {
	out := make([]TariffRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, TariffRow{
			Unit:   cell(row, 0),
			Tariff: cell(row, 1),
			Power:  cell(row, 2),
		})
	}
	return out
}

// MeterModel is a brand/type pair from the KWH meter catalogue.
type MeterModel struct {
	Brand string `json:"merk"`
	Type  string `json:"type"`
}

// UnitOptions returns the distinct units of the tariff sheet in first-seen order.
func UnitOptions(rows []TariffRow) []string {
	return distinct(len(rows), func(i int) string { return rows[i].Unit })
}

// Brands returns the distinct meter brands in first-seen order.
func Brands(models []MeterModel) []string {
	return distinct(len(models), func(i int) string { return models[i].Brand })
}

// ModelsOf returns the meter types offered for brand.
func ModelsOf(models []MeterModel, brand string) []string {
	out := make([]string, 0)
	for _, m := range models {
		if m.Brand == brand {
			out = append(out, m.Type)
		}
	}
	return out
}

func distinct(n int, at func(int) string) []string {
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		v := at(i)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
