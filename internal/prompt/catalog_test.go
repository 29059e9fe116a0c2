package prompt

import (
	"context"
	"errors"
	"testing"

	"promptstock/pkg/types"
)

type memSource map[string]types.Template

func (m memSource) List(context.Context) ([]types.Template, error) {
	out := make([]types.Template, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	return out, nil
}

func (m memSource) Get(_ context.Context, id string) (types.Template, error) {
	t, ok := m[id]
	if !ok {
		return types.Template{}, errors.New("not found")
	}
	return t, nil
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	src := memSource{"c1": {ID: "c1", Name: "mine", IsCustom: true}}

	got, err := Resolve(ctx, src, "checklist")
	if err != nil || got.ID != "checklist" || got.IsCustom {
		t.Fatalf("builtin: %+v %v", got, err)
	}
	got, err = Resolve(ctx, src, "c1")
	if err != nil || got.Name != "mine" {
		t.Fatalf("custom: %+v %v", got, err)
	}
	if _, err := Resolve(ctx, src, "missing"); err == nil {
		t.Fatalf("expected error for unknown id")
	}
	if _, err := Resolve(ctx, nil, "c1"); err == nil {
		t.Fatalf("expected error without a custom source")
	}
}

func TestAll(t *testing.T) {
	ctx := context.Background()
	all, err := All(ctx, memSource{"c1": {ID: "c1"}})
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != len(Builtins())+1 || all[len(all)-1].ID != "c1" {
		t.Fatalf("unexpected templates: %d", len(all))
	}
	only, _ := All(ctx, nil)
	if len(only) != len(Builtins()) {
		t.Fatalf("builtins only: %d", len(only))
	}
}
