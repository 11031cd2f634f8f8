package chatgenerate

import (
	"fmt"
	"slices"

	"github.com/leofalp/aix/providers/ai"
	"github.com/leofalp/aix/providers/ai/anthropic"
	"github.com/leofalp/aix/providers/ai/gemini"
	"github.com/leofalp/aix/providers/ai/openai"
	"github.com/leofalp/aix/providers/ai/xai"
)

// Registry maps dialects to the vendor that serves them. A Registry is
// immutable once built and safe to share between generations.
type Registry struct {
	vendors map[ai.Dialect]ai.Vendor
}

// NewRegistry indexes vendors by the dialects they declare. A later vendor
// replaces an earlier one for a shared dialect.
func NewRegistry(vendors ...ai.Vendor) *Registry {
	r := &Registry{vendors: map[ai.Dialect]ai.Vendor{}}
	for _, v := range vendors {
		for _, d := range v.Dialects() {
			r.vendors[d] = v
		}
	}
	return r
}

// DefaultRegistry serves every dialect this module implements.
func DefaultRegistry() *Registry {
	return NewRegistry(
		anthropic.New(),
		openai.NewChat(),
		openai.NewResponses(),
		gemini.New(),
		xai.New(),
	)
}

// Lookup returns the vendor for dialect.
func (r *Registry) Lookup(dialect ai.Dialect) (ai.Vendor, error) {
	if v, ok := r.vendors[dialect]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("unsupported dialect %q", dialect)
}

// Dialects lists the served dialects in sorted order.
func (r *Registry) Dialects() []ai.Dialect {
	out := make([]ai.Dialect, 0, len(r.vendors))
	for d := range r.vendors {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}
