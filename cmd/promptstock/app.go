package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"promptstock/internal/common/fsutil"
	"promptstock/internal/config"
	"promptstock/internal/history"
	"promptstock/internal/httpapi"
	"promptstock/internal/llm"
	"promptstock/internal/logging"
	"promptstock/internal/registry"
	"promptstock/pkg/types"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgPath   string
	logLevel  string
	logFormat string

	cfg config.Config
	log zerolog.Logger

	out    io.Writer
	errOut io.Writer
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut, cfg: config.Default(), log: zerolog.Nop()}
}

// load reads the config file, applies global flag overrides and builds the
// logger.
func (a *app) load() error {
	cfg, err := config.LoadOrDefault(a.cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg = cfg
	a.log = logging.New(cfg.Log.Level, cfg.Log.Format, a.errOut)
	httpapi.SetLogger(a.log)
	return nil
}

func (a *app) openStore() (*history.Store, error) {
	p, err := fsutil.ExpandHome(a.cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	st, err := history.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return st, nil
}

func (a *app) modelsDir() (string, error) {
	return fsutil.ExpandHome(a.cfg.Models.Dir)
}

// resolve builds execution settings from cfg. Local mode needs the active
// model's files; they are resolved here but verified by the client.
func (a *app) resolve(cfg config.Config, pub llm.EventPublisher) (llm.Settings, error) {
	var model types.InstalledModel
	if cfg.LLM.Mode == types.ModeOnDevice {
		dir, err := fsutil.ExpandHome(cfg.Models.Dir)
		if err != nil {
			return llm.Settings{}, err
		}
		model, err = registry.Resolve(dir, cfg.Models.Active)
		if err != nil {
			return llm.Settings{}, err
		}
	}
	return cfg.Settings(cfg.LLM.Mode, model, &a.log, pub), nil
}

// logPublisher turns llm lifecycle events into debug log lines.
type logPublisher struct{ log zerolog.Logger }

func (p logPublisher) Publish(e llm.Event) {
	ev := p.log.Debug().Str("mode", e.Mode)
	for k, v := range e.Fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg("event=" + e.Name)
}

// parseVars turns repeated key=value flags into template inputs.
func parseVars(kvs []string) (map[string]string, error) {
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --var %q, want key=value", kv)
		}
		out[k] = v
	}
	return out, nil
}

// splitCSV parses a comma-separated list, dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printProgress(w io.Writer) func(types.GenerationProgress) {
	var last types.GenerationProgress
	return func(p types.GenerationProgress) {
		if p == last {
			return
		}
		last = p
		fmt.Fprintf(w, "[%3d%%] %s %s\n", p.Percent, p.Stage, p.Message)
	}
}
