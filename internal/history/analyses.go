package history

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"promptstock/pkg/types"
)

// ExportVersion is written into every export.
const ExportVersion = "1.0.0"

// Analyses is the analysis history, newest first.
type Analyses struct {
	kv  KV
	mu  sync.Mutex
	now func() time.Time
}

func NewAnalyses(kv KV) *Analyses {
	return &Analyses{kv: kv, now: time.Now}
}

func (r *Analyses) load(ctx context.Context) ([]types.Analysis, error) {
	var out []types.Analysis
	if _, err := loadJSON(ctx, r.kv, keyAnalyses, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Analyses) store(ctx context.Context, list []types.Analysis) error {
	if list == nil {
		list = []types.Analysis{}
	}
	return saveJSON(ctx, r.kv, keyAnalyses, list)
}

// Save prepends a, assigning an ID and timestamps when unset.
func (r *Analyses) Save(ctx context.Context, a types.Analysis) (types.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.load(ctx)
	if err != nil {
		return a, err
	}
	now := r.now().UTC()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.Tags == nil {
		a.Tags = []string{}
	}
	list = append([]types.Analysis{a}, list...)
	return a, r.store(ctx, list)
}

// List returns all analyses, newest first.
func (r *Analyses) List(ctx context.Context) ([]types.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

func (r *Analyses) Get(ctx context.Context, id string) (types.Analysis, error) {
	list, err := r.List(ctx)
	if err != nil {
		return types.Analysis{}, err
	}
	for _, a := range list {
		if a.ID == id {
			return a, nil
		}
	}
	return types.Analysis{}, ErrNotFound
}

// Update applies fn to the analysis with id and bumps UpdatedAt. ID and
// CreatedAt cannot be changed.
func (r *Analyses) Update(ctx context.Context, id string, fn func(*types.Analysis)) (types.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.load(ctx)
	if err != nil {
		return types.Analysis{}, err
	}
	i := slices.IndexFunc(list, func(a types.Analysis) bool { return a.ID == id })
	if i < 0 {
		return types.Analysis{}, ErrNotFound
	}
	a := list[i]
	fn(&a)
	a.ID, a.CreatedAt = list[i].ID, list[i].CreatedAt
	a.UpdatedAt = r.now().UTC()
	list[i] = a
	return a, r.store(ctx, list)
}

func (r *Analyses) Delete(ctx context.Context, id string) error {
	return r.DeleteMany(ctx, []string{id})
}

func (r *Analyses) DeleteMany(ctx context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.load(ctx)
	if err != nil {
		return err
	}
	list = slices.DeleteFunc(list, func(a types.Analysis) bool { return slices.Contains(ids, a.ID) })
	return r.store(ctx, list)
}

func (r *Analyses) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.kv.Delete(ctx, keyAnalyses)
}

// Search matches q case-insensitively against template name, note and response.
func (r *Analyses) Search(ctx context.Context, q string) ([]types.Analysis, error) {
	return r.Query(ctx, Filter{Search: q})
}

// FilterByTags returns analyses carrying any of tags.
func (r *Analyses) FilterByTags(ctx context.Context, tags []string) ([]types.Analysis, error) {
	return r.Query(ctx, Filter{Tags: tags})
}

// Filter narrows and orders a history query. Zero values match everything and
// keep newest-first order.
type Filter struct {
	Search        string
	Tags          []string
	TemplateNames []string
	From, To      time.Time
	// SortBy is "date" (default) or "name".
	SortBy string
	// Order is "desc" (default) or "asc".
	Order string
}

func (f Filter) match(a types.Analysis) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(a.TemplateName), q) &&
			!strings.Contains(strings.ToLower(a.UserNote), q) &&
			!strings.Contains(strings.ToLower(a.AIResponse), q) {
			return false
		}
	}
	if len(f.Tags) > 0 && !slices.ContainsFunc(a.Tags, func(t string) bool { return slices.Contains(f.Tags, t) }) {
		return false
	}
	if len(f.TemplateNames) > 0 && !slices.Contains(f.TemplateNames, a.TemplateName) {
		return false
	}
	if !f.From.IsZero() && a.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && a.CreatedAt.After(f.To) {
		return false
	}
	return true
}

func (r *Analyses) Query(ctx context.Context, f Filter) ([]types.Analysis, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.Analysis, 0, len(list))
	for _, a := range list {
		if f.match(a) {
			out = append(out, a)
		}
	}
	asc := f.Order == "asc"
	switch f.SortBy {
	case "name":
		sort.SliceStable(out, func(i, j int) bool {
			if asc {
				return out[i].TemplateName < out[j].TemplateName
			}
			return out[i].TemplateName > out[j].TemplateName
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			if asc {
				return out[i].CreatedAt.Before(out[j].CreatedAt)
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out, nil
}

// AllTags returns the sorted set of tags in use.
func (r *Analyses) AllTags(ctx context.Context) ([]string, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var tags []string
	for _, a := range list {
		tags = append(tags, a.Tags...)
	}
	slices.Sort(tags)
	return slices.Compact(tags), nil
}

// Stats summarizes the history.
type Stats struct {
	TotalAnalyses int        `json:"total_analyses"`
	TotalTags     int        `json:"total_tags"`
	Oldest        *time.Time `json:"oldest,omitempty"`
	Newest        *time.Time `json:"newest,omitempty"`
}

func (r *Analyses) Stats(ctx context.Context) (Stats, error) {
	list, err := r.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	tags, err := r.AllTags(ctx)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{TotalAnalyses: len(list), TotalTags: len(tags)}
	for i := range list {
		c := list[i].CreatedAt
		if s.Oldest == nil || c.Before(*s.Oldest) {
			s.Oldest = &c
		}
		if s.Newest == nil || c.After(*s.Newest) {
			s.Newest = &c
		}
	}
	return s, nil
}

// ExportData is the backup file format.
type ExportData struct {
	Version    string           `json:"version"`
	ExportDate time.Time        `json:"exportDate"`
	Analyses   []types.Analysis `json:"analyses"`
	TotalCount int              `json:"totalCount"`
}

func (r *Analyses) Export(ctx context.Context) (ExportData, error) {
	list, err := r.List(ctx)
	if err != nil {
		return ExportData{}, err
	}
	if list == nil {
		list = []types.Analysis{}
	}
	return ExportData{Version: ExportVersion, ExportDate: r.now().UTC(), Analyses: list, TotalCount: len(list)}, nil
}

// Import appends analyses whose IDs are not already present and returns how
// many were added.
func (r *Analyses) Import(ctx context.Context, data ExportData) (int, error) {
	if data.Analyses == nil {
		return 0, errors.New("invalid data format: missing analyses")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.load(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(list))
	for _, a := range list {
		seen[a.ID] = true
	}
	added := 0
	for _, a := range data.Analyses {
		if a.ID == "" || seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		list = append(list, a)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, r.store(ctx, list)
}
