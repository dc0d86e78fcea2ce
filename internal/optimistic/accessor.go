package optimistic

import "context"

type providerKey struct {
	category string
}

// Provide returns a context carrying c. Descendant code obtains it with Use or MustUse.
func Provide[P any](ctx context.Context, c *Container[P]) context.Context {
	return context.WithValue(ctx, providerKey{category: c.category}, c)
}

// Use returns the container provided for category, or *MissingProviderError when
// ctx carries none (or carries one of a different payload type).
func Use[P any](ctx context.Context, category string) (*Container[P], error) {
	c, ok := ctx.Value(providerKey{category: category}).(*Container[P])
	if !ok || c == nil {
		return nil, &MissingProviderError{Category: category}
	}
	return c, nil
}

// MustUse is Use for call sites where a missing provider is a programming error.
// It panics with *MissingProviderError.
func MustUse[P any](ctx context.Context, category string) *Container[P] {
	c, err := Use[P](ctx, category)
	if err != nil {
		panic(err)
	}
	return c
}
