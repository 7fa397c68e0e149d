package gatekit

import (
	"bytes"
	"context"
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const directivesTemplate = `{{if role "editor"}}E{{end}}` +
	`{{if hasanyrole "admin" "author"}}A{{end}}` +
	`{{if hasallroles "editor" "author"}}B{{end}}` +
	`{{if haspermission "edit-posts"}}P{{end}}` +
	`{{if hasallpermissions "edit-posts" "delete-posts"}}D{{end}}` +
	`{{if can "publish"}}C{{end}}`

func renderDirectives(t *testing.T, checker *Checker, gate *Gate) string {
	t.Helper()
	tmpl, err := template.New("t").Funcs(TemplateFuncs(checker, gate)).Parse(directivesTemplate)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tmpl.Execute(&buf, nil))
	return buf.String()
}

// TestTemplateFuncs tests the template predicates
func TestTemplateFuncs(t *testing.T) {
	gate := NewGate().Define("publish", func(_ context.Context, s Authorizable) bool {
		return s.HasRole("editor")
	})

	t.Run("editor", func(t *testing.T) {
		checker := NewChecker(newTestGrants("u1",
			[]string{"editor", "author"}, nil,
			map[string][]string{"editor": {"edit-posts"}},
		))
		assert.Equal(t, "EABPC", renderDirectives(t, checker, gate))
	})

	t.Run("super-admin", func(t *testing.T) {
		checker := NewChecker(newTestGrants("u2", []string{SuperAdminRole}, nil, nil))
		assert.Equal(t, "PD", renderDirectives(t, checker, gate))
	})

	t.Run("guest", func(t *testing.T) {
		assert.Empty(t, renderDirectives(t, nil, gate))
	})

	t.Run("no gate", func(t *testing.T) {
		checker := NewChecker(newTestGrants("u1", []string{"editor"}, nil, nil))
		assert.Equal(t, "E", renderDirectives(t, checker, nil))
	})
}

// TestTemplateFuncsNames tests that every directive is registered
func TestTemplateFuncsNames(t *testing.T) {
	funcs := TemplateFuncs(nil, nil)
	for _, name := range []string{
		"role", "hasrole", "hasanyrole", "hasallroles",
		"permission", "haspermission", "hasanypermission", "hasallpermissions", "can",
	} {
		assert.Contains(t, funcs, name)
	}
}
