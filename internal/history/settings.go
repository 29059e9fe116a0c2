package history

import (
	"context"
	"fmt"

	"promptstock/pkg/types"
)

// DefaultSettings are returned before anything has been saved.
func DefaultSettings() types.AppSettings {
	return types.AppSettings{
		ImageQuality: "medium",
		Mode:         types.ModePassthrough,
		Local: types.LocalLLMConfig{
			ModelID:     "qwen2.5-vl-7b-q4",
			MaxTokens:   512,
			Temperature: 0.7,
			ContextSize: 2048,
		},
		EnableHaptics: true,
		AppVersion:    "1.0.0",
	}
}

// Settings persists the user's AppSettings.
type Settings struct {
	kv       KV
	defaults types.AppSettings
}

func NewSettings(kv KV) *Settings { return NewSettingsWithDefaults(kv, DefaultSettings()) }

// NewSettingsWithDefaults uses def in place of DefaultSettings for anything
// not yet saved.
func NewSettingsWithDefaults(kv KV, def types.AppSettings) *Settings {
	return &Settings{kv: kv, defaults: def}
}

// Load returns saved settings layered over the defaults.
func (r *Settings) Load(ctx context.Context) (types.AppSettings, error) {
	s := r.defaults
	if _, err := loadJSON(ctx, r.kv, keySettings, &s); err != nil {
		return r.defaults, err
	}
	return s, nil
}

func (r *Settings) Save(ctx context.Context, s types.AppSettings) error {
	if !s.Mode.Valid() {
		return fmt.Errorf("invalid mode %q", s.Mode)
	}
	return saveJSON(ctx, r.kv, keySettings, s)
}
