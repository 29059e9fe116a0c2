package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"promptstock/internal/llm"
	"promptstock/pkg/types"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", `
llm:
  mode: local
  max_tokens: 1024
  temperature: 0
  generate_timeout: 90s
models:
  dir: /models
  active: llava-1.5-7b-q4
http:
  addr: ":9999"
  cors_origins: ["http://localhost:3000"]
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.Mode != types.ModeOnDevice || cfg.LLM.MaxTokens != 1024 || cfg.Models.Dir != "/models" || cfg.HTTP.Addr != ":9999" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.LLM.Temperature == nil || *cfg.LLM.Temperature != 0 {
		t.Fatalf("explicit zero temperature lost: %v", cfg.LLM.Temperature)
	}
	if cfg.LLM.GenerateTimeout.Duration != 90*time.Second {
		t.Fatalf("generate timeout: %v", cfg.LLM.GenerateTimeout)
	}
	if len(cfg.HTTP.CORSOrigins) != 1 {
		t.Fatalf("cors: %v", cfg.HTTP.CORSOrigins)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"log":{"level":"debug"},"llm":{"engine":"inprocess","init_timeout":"30s"},"storage":{"path":"/db"}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.LLM.Engine != "inprocess" || cfg.Storage.Path != "/db" || cfg.LLM.InitTimeout.Duration != 30*time.Second {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "[llm]\ncontext_size = 4096\nsupported_platforms = [\"linux\"]\nprojector_timeout = \"2m\"\n[models]\nactive = \"smolvlm2-2.2b-q4\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.ContextSize != 4096 || cfg.Models.Active != "smolvlm2-2.2b-q4" || cfg.LLM.ProjectorTimeout.Duration != 2*time.Minute {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.LLM.SupportedPlatforms) != 1 || cfg.LLM.SupportedPlatforms[0] != "linux" {
		t.Fatalf("platforms: %v", cfg.LLM.SupportedPlatforms)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
	d := t.TempDir()
	cases := map[string]string{
		"cfg.txt":  "not supported",
		"bad.yaml": "llm: [\n",
		"bad.json": `{ "llm": }`,
		"bad.toml": "llm=\n",
		"dur.yaml": "llm:\n  init_timeout: soon\n",
	}
	for name, body := range cases {
		p := writeTempFile(t, d, name, body)
		if _, err := Load(p); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if cfg.HTTP.Addr != "127.0.0.1:8765" || cfg.LLM.Mode != types.ModePassthrough {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	p := writeTempFile(t, t.TempDir(), "cfg.yaml", "llm:\n  max_tokens: 256\n")
	cfg, err = LoadOrDefault(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.MaxTokens != 256 || cfg.LLM.ContextSize != llm.DefaultContextSize {
		t.Fatalf("merge: %+v", cfg.LLM)
	}
}
