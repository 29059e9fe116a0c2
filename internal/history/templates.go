package history

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"promptstock/internal/prompt"
	"promptstock/pkg/types"
)

// Templates stores user-defined templates. Built-ins live in package prompt.
type Templates struct {
	kv  KV
	mu  sync.Mutex
	now func() time.Time
}

func NewTemplates(kv KV) *Templates {
	return &Templates{kv: kv, now: time.Now}
}

func (r *Templates) load(ctx context.Context) ([]types.Template, error) {
	var out []types.Template
	if _, err := loadJSON(ctx, r.kv, keyTemplates, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Templates) List(ctx context.Context) ([]types.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

func (r *Templates) Get(ctx context.Context, id string) (types.Template, error) {
	list, err := r.List(ctx)
	if err != nil {
		return types.Template{}, err
	}
	for _, t := range list {
		if t.ID == id {
			return t, nil
		}
	}
	return types.Template{}, ErrNotFound
}

// Save appends t as a custom template, assigning an ID and creation time when
// unset. An explicit ID that names a built-in or a stored template fails with
// ErrConflict.
func (r *Templates) Save(ctx context.Context, t types.Template) (types.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.load(ctx)
	if err != nil {
		return t, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	} else if _, builtin := prompt.Lookup(t.ID); builtin || slices.ContainsFunc(list, func(x types.Template) bool { return x.ID == t.ID }) {
		return t, fmt.Errorf("template %s: %w", t.ID, ErrConflict)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now().UTC()
	}
	t.IsCustom = true
	list = append(list, t)
	return t, saveJSON(ctx, r.kv, keyTemplates, list)
}

func (r *Templates) Update(ctx context.Context, id string, fn func(*types.Template)) (types.Template, error) {
	return r.modify(ctx, id, func(t *types.Template) {
		orig := *t
		fn(t)
		t.ID, t.CreatedAt, t.IsCustom = orig.ID, orig.CreatedAt, true
	})
}

// IncrementUsage bumps the usage counter of a custom template.
func (r *Templates) IncrementUsage(ctx context.Context, id string) error {
	_, err := r.modify(ctx, id, func(t *types.Template) { t.UsageCount++ })
	return err
}

func (r *Templates) modify(ctx context.Context, id string, fn func(*types.Template)) (types.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.load(ctx)
	if err != nil {
		return types.Template{}, err
	}
	i := slices.IndexFunc(list, func(t types.Template) bool { return t.ID == id })
	if i < 0 {
		return types.Template{}, ErrNotFound
	}
	fn(&list[i])
	return list[i], saveJSON(ctx, r.kv, keyTemplates, list)
}

func (r *Templates) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.load(ctx)
	if err != nil {
		return err
	}
	list = slices.DeleteFunc(list, func(t types.Template) bool { return t.ID == id })
	if list == nil {
		list = []types.Template{}
	}
	return saveJSON(ctx, r.kv, keyTemplates, list)
}
