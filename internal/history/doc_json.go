package history

import (
	"context"
	"encoding/json"
	"fmt"
)

// Keys of the JSON documents kept in the kv table.
const (
	keyAnalyses  = "portfolio_analyses"
	keyTemplates = "portfolio_custom_templates"
	keySettings  = "settings"
)

func loadJSON[T any](ctx context.Context, kv KV, key string, out *T) (bool, error) {
	b, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func saveJSON[T any](ctx context.Context, kv KV, key string, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return kv.Set(ctx, key, b)
}
