// Package hotfix runs named rewrite passes over vendor payloads. Each vendor
// keeps its own Registry typed on its payload struct; passes are selected by
// dialect and model family and can be disabled by name.
package hotfix

import (
	"context"
	"fmt"
	"slices"

	"github.com/leofalp/aix/providers/ai"
	"github.com/leofalp/aix/providers/observability"
)

// Scope decides whether a pass applies to a call.
type Scope func(dialect ai.Dialect, model string) bool

// Pass is one named rewrite. Apply reports whether it changed the payload.
// Run applies passes in registration order, but the passes of one registry
// must commute: any order yields the same payload.
type Pass[T any] struct {
	Name  string
	Scope Scope
	Apply func(payload *T) (bool, error)
}

// Registry holds the passes of one payload type.
type Registry[T any] struct {
	passes []Pass[T]
}

// Register adds a pass. It panics on a duplicate name, which is a
// programming error in the vendor package.
func (r *Registry[T]) Register(pass Pass[T]) {
	if pass.Name == "" || pass.Apply == nil {
		panic("hotfix: pass needs a name and an Apply function")
	}
	if slices.Contains(r.Names(), pass.Name) {
		panic(fmt.Sprintf("hotfix: duplicate pass %q", pass.Name))
	}
	r.passes = append(r.passes, pass)
}

// Names lists the registered pass names in registration order.
func (r *Registry[T]) Names() []string {
	names := make([]string, 0, len(r.passes))
	for _, p := range r.passes {
		names = append(names, p.Name)
	}
	return names
}

// Passes returns a copy of the registered passes in registration order.
func (r *Registry[T]) Passes() []Pass[T] { return slices.Clone(r.passes) }

// Run applies every in-scope, enabled pass to payload and returns the names
// of the passes that changed it. The first failing pass aborts the run.
func (r *Registry[T]) Run(ctx context.Context, dialect ai.Dialect, model string, payload *T, disabled []string) ([]string, error) {
	var applied []string
	for _, pass := range r.passes {
		if slices.Contains(disabled, pass.Name) {
			continue
		}
		if pass.Scope != nil && !pass.Scope(dialect, model) {
			continue
		}
		changed, err := pass.Apply(payload)
		if err != nil {
			return applied, fmt.Errorf("hotfix %s: %w", pass.Name, err)
		}
		if changed {
			applied = append(applied, pass.Name)
		}
	}
	if len(applied) > 0 {
		observability.ObserverFromContext(ctx).Debug(ctx, "hotfixes applied",
			observability.String(observability.AttrLLMDialect, string(dialect)),
			observability.String(observability.AttrLLMModel, model),
			observability.StringSlice(observability.AttrLLMHotfix, applied),
		)
	}
	return applied, nil
}

// Dialects scopes a pass to the given dialects.
func Dialects(dialects ...ai.Dialect) Scope {
	return func(dialect ai.Dialect, _ string) bool {
		return slices.Contains(dialects, dialect)
	}
}

// Families scopes a pass to models of the given families, see ai.HasFamily.
func Families(families ...string) Scope {
	return func(_ ai.Dialect, model string) bool {
		return ai.HasFamily(model, families...)
	}
}

// All scopes a pass to calls matched by every scope.
func All(scopes ...Scope) Scope {
	return func(dialect ai.Dialect, model string) bool {
		for _, s := range scopes {
			if !s(dialect, model) {
				return false
			}
		}
		return true
	}
}

// Always applies to every call.
func Always(ai.Dialect, string) bool { return true }
