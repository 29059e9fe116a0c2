package prompt

import (
	"context"
	"fmt"

	"promptstock/pkg/types"
)

// CustomSource supplies user-defined templates.
type CustomSource interface {
	List(ctx context.Context) ([]types.Template, error)
	Get(ctx context.Context, id string) (types.Template, error)
}

// All returns the built-ins followed by the custom templates of src.
// A nil src yields only the built-ins.
func All(ctx context.Context, src CustomSource) ([]types.Template, error) {
	out := Builtins()
	if src == nil {
		return out, nil
	}
	custom, err := src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list custom templates: %w", err)
	}
	return append(out, custom...), nil
}

// Resolve finds id among the built-ins, then in src.
func Resolve(ctx context.Context, src CustomSource, id string) (types.Template, error) {
	if t, ok := Lookup(id); ok {
		return t, nil
	}
	if src == nil {
		return types.Template{}, fmt.Errorf("template %q not found", id)
	}
	t, err := src.Get(ctx, id)
	if err != nil {
		return types.Template{}, fmt.Errorf("template %q: %w", id, err)
	}
	return t, nil
}
