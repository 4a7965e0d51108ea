package shared

import (
	"encoding/json"
	"strings"

	"github.com/fomet/fomet/internal/po"
)

// Principal is the login payload returned by the backend and kept in the
// session for the lifetime of the login.
type Principal struct {
	Username string         `json:"username"`
	Name     string         `json:"nama,omitempty"`
	Role     string         `json:"role"`
	Unit     string         `json:"unit"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// PrincipalFromLogin builds a Principal from the backend login mapping.
// Role and unit are read from role/unit, falling back to user.role/user.unit.
func PrincipalFromLogin(username string, data map[string]any) Principal {
	p := Principal{Username: strings.TrimSpace(username), Extra: map[string]any{}}
	nested, _ := data["user"].(map[string]any)
	p.Role = firstString(data, nested, "role")
	p.Unit = firstString(data, nested, "unit")
	p.Name = firstString(data, nested, "nama", "name")
	for k, v := range data {
		switch k {
		case "success", "role", "unit", "nama", "name", "user":
			continue
		}
		p.Extra[k] = v
	}
	if len(p.Extra) == 0 {
		p.Extra = nil
	}
	rc := p.RoleContext()
	p.Role, p.Unit = rc.Role, rc.Unit
	return p
}

// RoleContext returns the view scoping for the principal.
func (p Principal) RoleContext() po.RoleContext {
	return po.NewRoleContext(p.Role, p.Unit)
}

// IsAdmin reports whether the principal is an administrator.
func (p Principal) IsAdmin() bool {
	return p.RoleContext().IsAdmin()
}

// DisplayName returns the name shown in the page header.
func (p Principal) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Unit != "" {
		return p.Unit
	}
	return p.Username
}

func firstString(primary, fallback map[string]any, keys ...string) string {
	for _, src := range []map[string]any{primary, fallback} {
		for _, key := range keys {
			if s := po.CellString(src[key]); s != "" {
				return s
			}
		}
	}
	return ""
}

func encodePrincipal(p *Principal) string {
	if p == nil {
		return ""
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(raw)
}

func decodePrincipal(raw string) *Principal {
	if raw == "" {
		return nil
	}
	var p Principal
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil
	}
	return &p
}
