package llm

import (
	"fmt"
	"strings"

	"promptstock/pkg/types"
)

// Engine names accepted in Options.EngineName.
const (
	EngineServer    = "server"
	EngineInProcess = "inprocess"
)

// Factory builds a Client for a mode. Controllers take one so tests can swap
// in fakes.
type Factory func(mode types.Mode, opts Options, progress ProgressFunc) (Client, error)

// NewClient is the default Factory. Passthrough ignores model options. Local
// mode requires both model paths; their absence is a configuration error and
// is reported before any I/O.
func NewClient(mode types.Mode, opts Options, progress ProgressFunc) (Client, error) {
	switch mode {
	case types.ModePassthrough:
		return NewPassthroughClient(opts), nil
	case types.ModeOnDevice:
		var missing []string
		if strings.TrimSpace(opts.WeightsPath) == "" {
			missing = append(missing, "weights")
		}
		if strings.TrimSpace(opts.ProjectorPath) == "" {
			missing = append(missing, "projector")
		}
		if len(missing) > 0 {
			return nil, errConfiguration("local mode needs model file paths; missing " + strings.Join(missing, " and ") + " path")
		}
		engine, err := newEngine(opts)
		if err != nil {
			return nil, err
		}
		return NewOnDeviceClient(opts, engine, progress), nil
	}
	return nil, errConfiguration(fmt.Sprintf("unknown execution mode %q", mode))
}

func newEngine(opts Options) (Engine, error) {
	if opts.Engine != nil {
		return opts.Engine, nil
	}
	switch opts.EngineName {
	case "", EngineServer:
		cfg := opts.Server
		if cfg.Logger == nil {
			cfg.Logger = opts.Logger
		}
		if cfg.Publisher == nil {
			cfg.Publisher = opts.Publisher
		}
		return NewServerEngine(cfg), nil
	case EngineInProcess:
		return NewInProcessEngine(opts.Threads), nil
	}
	return nil, errConfiguration(fmt.Sprintf("unknown engine %q", opts.EngineName))
}
