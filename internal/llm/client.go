package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"promptstock/pkg/types"
)

// Client is the capability shared by every execution mode.
//
// Generate must not be called concurrently on the same instance; callers
// serialize. Cancel and Cleanup are safe to call at any time and never fail.
type Client interface {
	// Initialize prepares the client. Calling it on a ready client is a no-op.
	Initialize(ctx context.Context) error
	// Generate runs one request. It initializes lazily when needed.
	Generate(ctx context.Context, prompt string, images []string) (types.GenerationResult, error)
	// Cancel interrupts an in-flight Generate and releases resources.
	Cancel()
	// Cleanup releases all resources. Idempotent.
	Cleanup()
	// Ready reports whether the client can generate without initializing.
	Ready() bool
}

// ProgressFunc receives staged progress. It is called synchronously from the
// goroutine running the operation and must not block.
type ProgressFunc func(types.GenerationProgress)

// Defaults applied when corresponding Options fields are unset.
const (
	DefaultMaxTokens      = 512
	DefaultTemperature    = 0.7
	DefaultContextSize    = 2048
	DefaultSeed           = 42
	DefaultMaxPromptChars = 10000
	DefaultMaxImages      = 10

	DefaultInitTimeout      = 2 * time.Minute
	DefaultProjectorTimeout = 1 * time.Minute
	DefaultGenerateTimeout  = 5 * time.Minute
)

// Limits are the input ceilings enforced before any model work.
type Limits struct {
	MaxPromptChars int
	MaxImages      int
}

// Timeouts bound each on-device stage.
type Timeouts struct {
	Init      time.Duration
	Projector time.Duration
	Generate  time.Duration
}

// Options configure a client. They are read once at construction; later
// changes to the source settings do not affect a running client.
type Options struct {
	// Model files. Both are required for local mode.
	WeightsPath   string
	ProjectorPath string
	// ModelID is reported as GenerationResult.ModelIdentifier.
	ModelID string

	MaxTokens int
	// Temperature is a pointer because 0.0 is a valid setting.
	Temperature *float64
	ContextSize int
	Seed        int
	Threads     int

	Limits   Limits
	Timeouts Timeouts

	// Engine overrides the runtime. When nil, EngineName selects one.
	Engine     Engine
	EngineName string
	Server     ServerConfig

	// Platform defaults to runtime.GOOS.
	Platform           string
	SupportedPlatforms []string

	// Clipboard overrides the system clipboard in passthrough mode.
	Clipboard ClipboardWriter

	Logger    *zerolog.Logger
	Publisher EventPublisher
}

// Settings is the configuration snapshot a controller reads per request.
type Settings struct {
	Mode    types.Mode
	Options Options
}

// Float returns a pointer to v, for Options.Temperature.
func Float(v float64) *float64 { return &v }

func (o Options) withDefaults() Options {
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Temperature == nil {
		o.Temperature = Float(DefaultTemperature)
	}
	if o.ContextSize <= 0 {
		o.ContextSize = DefaultContextSize
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	o.Limits = o.Limits.withDefaults()
	if o.Timeouts.Init <= 0 {
		o.Timeouts.Init = DefaultInitTimeout
	}
	if o.Timeouts.Projector <= 0 {
		o.Timeouts.Projector = DefaultProjectorTimeout
	}
	if o.Timeouts.Generate <= 0 {
		o.Timeouts.Generate = DefaultGenerateTimeout
	}
	if len(o.SupportedPlatforms) == 0 {
		o.SupportedPlatforms = DefaultSupportedPlatforms
	}
	if o.Publisher == nil {
		o.Publisher = noopPublisher{}
	}
	return o
}

func (l Limits) withDefaults() Limits {
	if l.MaxPromptChars <= 0 {
		l.MaxPromptChars = DefaultMaxPromptChars
	}
	if l.MaxImages <= 0 {
		l.MaxImages = DefaultMaxImages
	}
	return l
}

func loggerOr(l *zerolog.Logger) zerolog.Logger {
	if l == nil {
		return zerolog.Nop()
	}
	return *l
}

// validate enforces the input ceilings. It runs before any model work.
func (l Limits) validate(prompt string, images int) error {
	if strings.TrimSpace(prompt) == "" {
		return errInvalidInput("prompt is empty")
	}
	if n := utf8.RuneCountInString(prompt); n > l.MaxPromptChars {
		return errInvalidInput(fmt.Sprintf("prompt has %d characters; the limit is %d", n, l.MaxPromptChars))
	}
	if images > l.MaxImages {
		return errInvalidInput(fmt.Sprintf("%d images selected; the limit is %d", images, l.MaxImages))
	}
	return nil
}
