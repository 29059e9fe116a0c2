package config

import (
	"strings"
	"testing"
	"time"

	"promptstock/internal/llm"
	"promptstock/pkg/types"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestMergeKeepsDefaultsForZeroFields(t *testing.T) {
	over := Config{LLM: LLM{Temperature: llm.Float(0), Threads: 4}, HTTP: HTTP{CORSOrigins: []string{"*"}}}
	got := Merge(Default(), over)
	if *got.LLM.Temperature != 0 || got.LLM.Threads != 4 {
		t.Fatalf("overrides lost: %+v", got.LLM)
	}
	if got.LLM.MaxTokens != llm.DefaultMaxTokens || got.LLM.GenerateTimeout.Duration != llm.DefaultGenerateTimeout {
		t.Fatalf("defaults lost: %+v", got.LLM)
	}
	if got.Models.Active != "qwen2.5-vl-7b-q4" {
		t.Fatalf("active: %q", got.Models.Active)
	}
}

func TestValidateRanges(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
		want string
	}{
		{"mode", func(c *Config) { c.LLM.Mode = "cloud" }, "llm.mode"},
		{"tokens low", func(c *Config) { c.LLM.MaxTokens = 64 }, "llm.max_tokens"},
		{"tokens high", func(c *Config) { c.LLM.MaxTokens = 4096 }, "llm.max_tokens"},
		{"temperature", func(c *Config) { c.LLM.Temperature = llm.Float(1.5) }, "llm.temperature"},
		{"context", func(c *Config) { c.LLM.ContextSize = 3000 }, "llm.context_size"},
		{"engine", func(c *Config) { c.LLM.Engine = "gpu" }, "llm.engine"},
		{"model", func(c *Config) { c.Models.Active = "gpt-4o" }, "models.active"},
	}
	for _, tc := range cases {
		c := Default()
		tc.mut(&c)
		err := c.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: got %v, want error mentioning %s", tc.name, err, tc.want)
		}
	}
}

func TestSettingsCarriesTuning(t *testing.T) {
	c := Default()
	c.LLM.GenerateTimeout = Duration{30 * time.Second}
	c.LLM.ServerBin = "/opt/llama-server"
	model := types.InstalledModel{ModelID: "m", WeightsPath: "/w.gguf", ProjectorPath: "/p.gguf"}

	s := c.Settings(types.ModeOnDevice, model, nil, nil)
	if s.Mode != types.ModeOnDevice {
		t.Fatalf("mode: %q", s.Mode)
	}
	o := s.Options
	if o.WeightsPath != "/w.gguf" || o.ProjectorPath != "/p.gguf" || o.ModelID != "m" {
		t.Fatalf("paths: %+v", o)
	}
	if o.Timeouts.Generate != 30*time.Second || o.Server.Bin != "/opt/llama-server" || o.EngineName != llm.EngineServer {
		t.Fatalf("options: %+v", o)
	}
	if o.Temperature == nil || *o.Temperature != llm.DefaultTemperature {
		t.Fatalf("temperature: %v", o.Temperature)
	}

	if got := c.Settings("", model, nil, nil).Mode; got != types.ModePassthrough {
		t.Fatalf("empty mode should fall back to config, got %q", got)
	}
}

func TestAppSettingsRoundTrip(t *testing.T) {
	c := Default()
	c.LLM.Mode = types.ModeOnDevice
	c.Models.Active = "smolvlm2-2.2b-q4"

	s := c.AppSettings()
	if s.Mode != types.ModeOnDevice || s.Local.ModelID != "smolvlm2-2.2b-q4" || s.Local.MaxTokens != llm.DefaultMaxTokens {
		t.Fatalf("app settings: %+v", s)
	}

	s.Mode = types.ModePassthrough
	s.Local.ModelID = "llava-1.5-7b-q8"
	s.Local.Temperature = 0
	got := c.WithAppSettings(s)
	if got.LLM.Mode != types.ModePassthrough || got.Models.Active != "llava-1.5-7b-q8" || *got.LLM.Temperature != 0 {
		t.Fatalf("overlay: %+v %+v", got.LLM, got.Models)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("overlay invalid: %v", err)
	}
}
