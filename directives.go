package gatekit

import (
	"context"
	"html/template"
)

// TemplateFuncs returns template helpers bound to checker:
//
//	{{if role "admin"}}...{{end}}
//	{{if hasanyrole "admin" "editor"}}...{{end}}
//	{{if hasallpermissions "edit-posts" "publish-posts"}}...{{end}}
//	{{if can "publish-posts"}}...{{end}}
//
// Every helper is a pure predicate. A nil checker (no authenticated subject) makes
// all of them false; can is also false when gate is nil.
func TemplateFuncs(checker *Checker, gate *Gate) template.FuncMap {
	authed := checker != nil

	anyRole := func(slugs ...string) bool { return authed && checker.HasRole(slugs...) }
	anyPermission := func(slugs ...string) bool { return authed && checker.HasPermission(slugs...) }

	return template.FuncMap{
		"role":       anyRole,
		"hasrole":    anyRole,
		"hasanyrole": anyRole,
		"hasallroles": func(slugs ...string) bool {
			return authed && checker.HasAllRoles(slugs...)
		},
		"permission":       anyPermission,
		"haspermission":    anyPermission,
		"hasanypermission": anyPermission,
		"hasallpermissions": func(slugs ...string) bool {
			return authed && checker.HasAllPermissions(slugs...)
		},
		"can": func(ability string) bool {
			return authed && gate != nil && gate.Allows(context.Background(), ability, checker)
		},
	}
}
