package recordstore

import "github.com/fomet/fomet/internal/po"

func poRole(role, unit string) po.RoleContext {
	return po.NewRoleContext(role, unit)
}
