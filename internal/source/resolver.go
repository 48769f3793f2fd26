package source

import "context"

// Resolver is the tagged variant over "a source is a value" versus "a
// source is derived from the operation context". It replaces duck-typed
// callable detection: the variant is chosen at construction and resolved
// exactly once at the call boundary.
type Resolver struct {
	static  *Source
	derived func(ctx context.Context) (*Source, error)
}

// Static wraps an already-wired Source.
func Static(s *Source) Resolver {
	return Resolver{static: s}
}

// Derived wraps a function producing the Source from the operation
// context.
func Derived(fn func(ctx context.Context) (*Source, error)) Resolver {
	return Resolver{derived: fn}
}

// Resolve produces the Source for this operation.
func (r Resolver) Resolve(ctx context.Context) (*Source, error) {
	if r.static != nil {
		return r.static, nil
	}
	if r.derived != nil {
		return r.derived(ctx)
	}
	return nil, UnsupportedError("resolver", "resolve")
}
