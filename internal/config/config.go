// Package config loads runtime parameters from a file and fills in defaults.
package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"promptstock/internal/history"
	"promptstock/internal/llm"
	"promptstock/internal/registry"
	"promptstock/pkg/types"
)

// Config holds runtime parameters. Zero values mean "unspecified".
type Config struct {
	Log     Log     `json:"log" yaml:"log" toml:"log"`
	LLM     LLM     `json:"llm" yaml:"llm" toml:"llm"`
	Models  Models  `json:"models" yaml:"models" toml:"models"`
	Storage Storage `json:"storage" yaml:"storage" toml:"storage"`
	HTTP    HTTP    `json:"http" yaml:"http" toml:"http"`
}

type Log struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
}

type LLM struct {
	Mode      types.Mode `json:"mode" yaml:"mode" toml:"mode"`
	MaxTokens int        `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`

	// Temperature is a pointer so an explicit 0 survives Merge.
	Temperature *float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
	ContextSize int      `json:"context_size" yaml:"context_size" toml:"context_size"`
	Threads     int      `json:"threads" yaml:"threads" toml:"threads"`
	Seed        int      `json:"seed" yaml:"seed" toml:"seed"`

	// Engine is "server" (llama-server subprocess) or "inprocess".
	Engine     string `json:"engine" yaml:"engine" toml:"engine"`
	ServerBin  string `json:"server_bin" yaml:"server_bin" toml:"server_bin"`
	ServerHost string `json:"server_host" yaml:"server_host" toml:"server_host"`

	InitTimeout      Duration `json:"init_timeout" yaml:"init_timeout" toml:"init_timeout"`
	ProjectorTimeout Duration `json:"projector_timeout" yaml:"projector_timeout" toml:"projector_timeout"`
	GenerateTimeout  Duration `json:"generate_timeout" yaml:"generate_timeout" toml:"generate_timeout"`

	MaxPromptChars     int      `json:"max_prompt_chars" yaml:"max_prompt_chars" toml:"max_prompt_chars"`
	MaxImages          int      `json:"max_images" yaml:"max_images" toml:"max_images"`
	SupportedPlatforms []string `json:"supported_platforms" yaml:"supported_platforms" toml:"supported_platforms"`
}

type Models struct {
	Dir    string `json:"dir" yaml:"dir" toml:"dir"`
	Active string `json:"active" yaml:"active" toml:"active"`
}

type Storage struct {
	Path string `json:"path" yaml:"path" toml:"path"`
}

type HTTP struct {
	Addr        string   `json:"addr" yaml:"addr" toml:"addr"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Duration decodes from strings like "90s" in every supported format.
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("duration %q: %w", b, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: Log{Level: "info", Format: "json"},
		LLM: LLM{
			Mode:             types.ModePassthrough,
			MaxTokens:        llm.DefaultMaxTokens,
			Temperature:      llm.Float(llm.DefaultTemperature),
			ContextSize:      llm.DefaultContextSize,
			Seed:             llm.DefaultSeed,
			Engine:           llm.EngineServer,
			ServerHost:       "127.0.0.1",
			InitTimeout:      Duration{llm.DefaultInitTimeout},
			ProjectorTimeout: Duration{llm.DefaultProjectorTimeout},
			GenerateTimeout:  Duration{llm.DefaultGenerateTimeout},
			MaxPromptChars:   llm.DefaultMaxPromptChars,
			MaxImages:        llm.DefaultMaxImages,
		},
		Models:  Models{Dir: "~/.promptstock/models", Active: registry.DefaultModelID},
		Storage: Storage{Path: "~/.promptstock/promptstock.db"},
		HTTP:    HTTP{Addr: "127.0.0.1:8765"},
	}
}

// Merge overlays the non-zero fields of over onto base.
func Merge(base, over Config) Config {
	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	num := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	dur := func(dst *Duration, v Duration) {
		if v.Duration != 0 {
			*dst = v
		}
	}
	str(&base.Log.Level, over.Log.Level)
	str(&base.Log.Format, over.Log.Format)

	if over.LLM.Mode != "" {
		base.LLM.Mode = over.LLM.Mode
	}
	num(&base.LLM.MaxTokens, over.LLM.MaxTokens)
	if over.LLM.Temperature != nil {
		base.LLM.Temperature = llm.Float(*over.LLM.Temperature)
	}
	num(&base.LLM.ContextSize, over.LLM.ContextSize)
	num(&base.LLM.Threads, over.LLM.Threads)
	num(&base.LLM.Seed, over.LLM.Seed)
	str(&base.LLM.Engine, over.LLM.Engine)
	str(&base.LLM.ServerBin, over.LLM.ServerBin)
	str(&base.LLM.ServerHost, over.LLM.ServerHost)
	dur(&base.LLM.InitTimeout, over.LLM.InitTimeout)
	dur(&base.LLM.ProjectorTimeout, over.LLM.ProjectorTimeout)
	dur(&base.LLM.GenerateTimeout, over.LLM.GenerateTimeout)
	num(&base.LLM.MaxPromptChars, over.LLM.MaxPromptChars)
	num(&base.LLM.MaxImages, over.LLM.MaxImages)
	if len(over.LLM.SupportedPlatforms) > 0 {
		base.LLM.SupportedPlatforms = append([]string(nil), over.LLM.SupportedPlatforms...)
	}

	str(&base.Models.Dir, over.Models.Dir)
	str(&base.Models.Active, over.Models.Active)
	str(&base.Storage.Path, over.Storage.Path)
	str(&base.HTTP.Addr, over.HTTP.Addr)
	if len(over.HTTP.CORSOrigins) > 0 {
		base.HTTP.CORSOrigins = append([]string(nil), over.HTTP.CORSOrigins...)
	}
	return base
}

// Validate checks ranges of the tunable generation parameters.
func (c Config) Validate() error {
	if !c.LLM.Mode.Valid() {
		return fmt.Errorf("llm.mode: unknown mode %q", c.LLM.Mode)
	}
	if c.LLM.MaxTokens < 128 || c.LLM.MaxTokens > 2048 {
		return fmt.Errorf("llm.max_tokens: %d out of range 128-2048", c.LLM.MaxTokens)
	}
	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 1) {
		return fmt.Errorf("llm.temperature: %v out of range 0.0-1.0", *t)
	}
	switch c.LLM.ContextSize {
	case 1024, 2048, 4096:
	default:
		return fmt.Errorf("llm.context_size: %d must be 1024, 2048 or 4096", c.LLM.ContextSize)
	}
	switch c.LLM.Engine {
	case "", llm.EngineServer, llm.EngineInProcess:
	default:
		return fmt.Errorf("llm.engine: unknown engine %q", c.LLM.Engine)
	}
	if c.Models.Active != "" {
		if _, err := registry.Get(c.Models.Active); err != nil {
			return fmt.Errorf("models.active: %w", err)
		}
	}
	return nil
}

// Settings builds the execution settings for mode using the installed model
// files. Passing a zero InstalledModel leaves the model paths empty; the
// factory rejects that for local mode.
func (c Config) Settings(mode types.Mode, model types.InstalledModel, log *zerolog.Logger, pub llm.EventPublisher) llm.Settings {
	if mode == "" {
		mode = c.LLM.Mode
	}
	opts := llm.Options{
		WeightsPath:   model.WeightsPath,
		ProjectorPath: model.ProjectorPath,
		ModelID:       model.ModelID,
		MaxTokens:     c.LLM.MaxTokens,
		ContextSize:   c.LLM.ContextSize,
		Seed:          c.LLM.Seed,
		Threads:       c.LLM.Threads,
		Limits: llm.Limits{
			MaxPromptChars: c.LLM.MaxPromptChars,
			MaxImages:      c.LLM.MaxImages,
		},
		Timeouts: llm.Timeouts{
			Init:      c.LLM.InitTimeout.Duration,
			Projector: c.LLM.ProjectorTimeout.Duration,
			Generate:  c.LLM.GenerateTimeout.Duration,
		},
		EngineName:         c.LLM.Engine,
		Server:             llm.ServerConfig{Bin: c.LLM.ServerBin, Host: c.LLM.ServerHost, Logger: log, Publisher: pub},
		SupportedPlatforms: c.LLM.SupportedPlatforms,
		Logger:             log,
		Publisher:          pub,
	}
	if c.LLM.Temperature != nil {
		opts.Temperature = llm.Float(*c.LLM.Temperature)
	}
	return llm.Settings{Mode: mode, Options: opts}
}

// AppSettings derives the user settings shown before anything is saved.
func (c Config) AppSettings() types.AppSettings {
	s := history.DefaultSettings()
	s.Mode = c.LLM.Mode
	s.Local.ModelID = c.Models.Active
	s.Local.MaxTokens = c.LLM.MaxTokens
	s.Local.ContextSize = c.LLM.ContextSize
	if c.LLM.Temperature != nil {
		s.Local.Temperature = *c.LLM.Temperature
	}
	return s
}

// WithAppSettings overlays saved user choices (mode, model and tuning) on c.
func (c Config) WithAppSettings(s types.AppSettings) Config {
	if s.Mode.Valid() {
		c.LLM.Mode = s.Mode
	}
	if s.Local.ModelID != "" {
		c.Models.Active = s.Local.ModelID
	}
	if s.Local.MaxTokens > 0 {
		c.LLM.MaxTokens = s.Local.MaxTokens
	}
	if s.Local.ContextSize > 0 {
		c.LLM.ContextSize = s.Local.ContextSize
	}
	c.LLM.Temperature = llm.Float(s.Local.Temperature)
	return c
}
