package po

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// RoleAdministrator is the only role allowed to see every unit.
const RoleAdministrator = "ADMINISTRATOR"

// DateLayout is the ISO date layout used by records and filters.
const DateLayout = "2006-01-02"

var recordDateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// RoleContext scopes what the caller may see.
type RoleContext struct {
	Role string
	Unit string
}

// NewRoleContext normalises role and unit the way the login blob is read.
func NewRoleContext(role, unit string) RoleContext {
	role = strings.ToUpper(strings.TrimSpace(role))
	if role == "" {
		role = "USER"
	}
	return RoleContext{Role: role, Unit: strings.TrimSpace(unit)}
}

// IsAdmin reports whether the caller is an administrator.
func (c RoleContext) IsAdmin() bool {
	return c.Role == RoleAdministrator
}

// FilterCriteria holds the optional table filters. Empty fields do not constrain.
type FilterCriteria struct {
	DateFrom   string
	DateTo     string
	Unit       string
	CustomerID string
	Purpose    string
	Status     string
}

// IsZero reports whether no filter is active.
func (f FilterCriteria) IsZero() bool {
	return f == FilterCriteria{}
}

type dateBounds struct {
	from    time.Time
	to      time.Time
	hasFrom bool
	hasTo   bool
}

func (f FilterCriteria) bounds() dateBounds {
	var b dateBounds
	if from, err := time.Parse(DateLayout, strings.TrimSpace(f.DateFrom)); err == nil {
		b.from = from
		b.hasFrom = true
	}
	if to, err := time.Parse(DateLayout, strings.TrimSpace(f.DateTo)); err == nil {
		b.to = to.Add(24*time.Hour - time.Millisecond)
		b.hasTo = true
	}
	return b
}

// FilteredView returns the records visible to role that satisfy every active
// filter. The input slice is never modified.
func FilteredView(records []Record, filters FilterCriteria, role RoleContext) []Record {
	fold := cases.Fold()
	b := filters.bounds()
	unitFilter := strings.TrimSpace(filters.Unit)
	idpel := fold.String(strings.TrimSpace(filters.CustomerID))
	purpose := fold.String(strings.TrimSpace(filters.Purpose))
	status := fold.String(strings.TrimSpace(filters.Status))

	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if !role.IsAdmin() && rec.Unit != role.Unit {
			continue
		}
		if (b.hasFrom || b.hasTo) && !b.contains(rec.Date) {
			continue
		}
		if role.IsAdmin() && unitFilter != "" && rec.Unit != unitFilter {
			continue
		}
		if idpel != "" && !strings.Contains(fold.String(rec.CustomerID), idpel) {
			continue
		}
		if purpose != "" && fold.String(string(rec.Purpose)) != purpose {
			continue
		}
		if status != "" && fold.String(string(rec.Status)) != status {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// contains fails open: a record whose date cannot be parsed is never excluded.
func (b dateBounds) contains(raw string) bool {
	at, ok := ParseRecordDate(raw)
	if !ok {
		return true
	}
	if b.hasFrom && at.Before(b.from) {
		return false
	}
	if b.hasTo && at.After(b.to) {
		return false
	}
	return true
}

// ParseRecordDate parses the record date cell in any of the layouts the backend emits.
func ParseRecordDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range recordDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
