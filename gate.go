package gatekit

import (
	"context"
	"reflect"
	"sort"
	"sync"
)

// GateFunc decides whether subject may perform an ability.
type GateFunc func(ctx context.Context, subject Authorizable) bool

// Gate is a registry of named abilities. It is safe for concurrent use.
//
// Example:
//
//	gate := gatekit.NewGate()
//	gate.Define("publish-post", func(ctx context.Context, s gatekit.Authorizable) bool {
//	    return s.HasRole("editor") || s.HasPermission("publish-posts")
//	})
//	if err := gate.Authorize(ctx, "publish-post", checker); err != nil {
//	    // ErrUnauthenticated or ErrForbidden
//	}
type Gate struct {
	mu        sync.RWMutex
	abilities map[string]GateFunc
}

// NewGate creates an empty Gate.
func NewGate() *Gate {
	return &Gate{abilities: make(map[string]GateFunc)}
}

// Define registers an ability, replacing any previous definition with the same name.
func (g *Gate) Define(name string, fn GateFunc) *Gate {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.abilities[name] = fn
	return g
}

// Undefine removes an ability.
func (g *Gate) Undefine(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.abilities, name)
}

// Has reports whether an ability is defined.
func (g *Gate) Has(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.abilities[name]
	return ok
}

// Abilities returns the defined ability names, sorted.
func (g *Gate) Abilities() []string {
	g.mu.RLock()
	names := make([]string, 0, len(g.abilities))
	for name := range g.abilities {
		names = append(names, name)
	}
	g.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Allows reports whether subject may perform the ability. Undefined abilities and
// missing subjects are denied; a context marked with WithSkipAuthCheck is allowed.
func (g *Gate) Allows(ctx context.Context, name string, subject Authorizable) bool {
	return g.Authorize(ctx, name, subject) == nil
}

// Denies is the negation of Allows.
func (g *Gate) Denies(ctx context.Context, name string, subject Authorizable) bool {
	return !g.Allows(ctx, name, subject)
}

// Authorize returns nil when subject may perform the ability, ErrUnauthenticated
// when there is no subject and ErrForbidden otherwise.
func (g *Gate) Authorize(ctx context.Context, name string, subject Authorizable) error {
	if SkipAuthCheck(ctx) {
		return nil
	}
	if isNilSubject(subject) {
		return NewError(ErrUnauthenticated, "no subject for ability "+name)
	}

	g.mu.RLock()
	fn, ok := g.abilities[name]
	g.mu.RUnlock()

	allowed := ok && fn(ctx, subject)
	recordCheck("gate", allowed)
	if !allowed {
		err := NewError(ErrForbidden, "ability "+name+" denied")
		if c, isChecker := subject.(*Checker); isChecker {
			err = err.WithSubject(c.SubjectID())
		}
		return err
	}
	return nil
}

// isNilSubject catches both a nil interface and a typed nil pointer inside one.
func isNilSubject(subject Authorizable) bool {
	if subject == nil {
		return true
	}
	v := reflect.ValueOf(subject)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// permissionGate is the ability registered for each permission slug.
func permissionGate(slug string) GateFunc {
	return func(_ context.Context, subject Authorizable) bool {
		return subject.HasPermission(slug)
	}
}
