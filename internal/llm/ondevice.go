package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"promptstock/internal/common/fsutil"
	"promptstock/pkg/types"
)

// State is the lifecycle state of an OnDeviceClient.
type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateGenerating   State = "generating"
	StateReleased     State = "released"
)

var modeLocal = string(types.ModeOnDevice)

// OnDeviceClient runs a vision-language model on this machine. It owns at
// most one loaded Model; Ready reports exactly whether one is held.
type OnDeviceClient struct {
	opts     Options
	engine   Engine
	progress ProgressFunc
	log      zerolog.Logger
	pub      EventPublisher

	mu    sync.Mutex
	state State
	model Model
	// abort cancels whichever of initialize or generate is in flight.
	abort context.CancelFunc
	// epoch increments on every Cleanup so that an operation which finishes
	// after teardown can tell its result is stale.
	epoch uint64
}

// NewOnDeviceClient constructs an idle client. Options are copied; defaults
// are applied for unset fields.
func NewOnDeviceClient(opts Options, engine Engine, progress ProgressFunc) *OnDeviceClient {
	opts = opts.withDefaults()
	return &OnDeviceClient{
		opts:     opts,
		engine:   engine,
		progress: progress,
		log:      loggerOr(opts.Logger).With().Str("mode", modeLocal).Str("model", opts.ModelID).Logger(),
		pub:      opts.Publisher,
		state:    StateIdle,
	}
}

// State returns the current lifecycle state.
func (c *OnDeviceClient) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *OnDeviceClient) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model != nil
}

func (c *OnDeviceClient) Initialize(ctx context.Context) (err error) {
	c.mu.Lock()
	switch c.state {
	case StateReady, StateGenerating:
		c.mu.Unlock()
		c.log.Warn().Msg("initialize called on a ready client; ignoring")
		return nil
	case StateInitializing:
		c.mu.Unlock()
		return ErrBusy("model initialization")
	}
	initCtx, cancel := context.WithCancel(ctx)
	c.state = StateInitializing
	c.abort = cancel
	epoch := c.epoch
	c.mu.Unlock()
	defer cancel()

	start := time.Now()
	defer func() { observe(modeLocal, "initialize", start, err) }()
	c.pub.Publish(Event{Name: "init_start", Mode: modeLocal, Fields: map[string]any{"engine": c.engine.Name()}})

	model, err := c.load(initCtx)

	c.mu.Lock()
	stale := c.epoch != epoch
	if !stale {
		c.abort = nil
		if err == nil {
			c.model = model
			c.state = StateReady
		} else {
			c.state = StateIdle
		}
	}
	c.mu.Unlock()

	if stale {
		// Cleanup ran while loading; the new context belongs to nobody.
		if model != nil {
			c.release(model)
		}
		return ErrCanceled()
	}
	if err != nil {
		c.log.Error().Err(err).Str("kind", string(KindOf(err))).Msg("initialization failed")
		c.pub.Publish(Event{Name: "init_error", Mode: modeLocal, Fields: map[string]any{"kind": string(KindOf(err))}})
		return err
	}
	setReady(modeLocal, true)
	c.log.Info().Dur("elapsed", time.Since(start)).Msg("model ready")
	c.pub.Publish(Event{Name: "init_ready", Mode: modeLocal, Fields: map[string]any{"elapsed_ms": time.Since(start).Milliseconds()}})
	return nil
}

// load performs the staged initialization. On failure no Model is retained.
func (c *OnDeviceClient) load(ctx context.Context) (Model, error) {
	c.emit(types.StageInitializing, 5, "Preparing model")

	goos := currentPlatform(c.opts.Platform)
	if !platformSupported(goos, c.opts.SupportedPlatforms) {
		return nil, errUnsupportedPlatform(goos)
	}
	var missing []string
	for _, p := range []string{c.opts.WeightsPath, c.opts.ProjectorPath} {
		if !fsutil.IsFile(p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return nil, errModelFilesMissing(missing)
	}

	c.emit(types.StageInitializing, 20, "Loading model weights")
	lo := LoadOptions{ContextSize: c.opts.ContextSize, GPULayers: 0, Seed: c.opts.Seed, Threads: c.opts.Threads}
	model, err := race(ctx, c.opts.Timeouts.Init, func(ctx context.Context) (Model, error) {
		return c.engine.Load(ctx, c.opts.WeightsPath, lo)
	}, c.release)
	if err != nil {
		switch {
		case errors.Is(err, errDeadline):
			return nil, errInitTimeout("model load", c.opts.Timeouts.Init)
		case ctx.Err() != nil:
			return nil, ErrCanceled()
		}
		return nil, errInitFailed(err)
	}

	c.emit(types.StageInitializing, 60, "Attaching vision projector")
	_, err = race(ctx, c.opts.Timeouts.Projector, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, model.AttachProjector(ctx, c.opts.ProjectorPath)
	}, nil)
	if err == nil {
		var ok bool
		ok, err = model.Multimodal(ctx)
		if err == nil && !ok {
			err = errors.New("projector attached but vision is not active")
		}
	}
	if err != nil {
		c.release(model)
		switch {
		case errors.Is(err, errDeadline):
			return nil, errInitTimeout("projector attach", c.opts.Timeouts.Projector)
		case ctx.Err() != nil:
			return nil, ErrCanceled()
		case isOutOfMemory(err):
			return nil, errOutOfMemory(err)
		}
		return nil, errMultimodal(err)
	}

	c.emit(types.StageInitializing, 100, "Model ready")
	return model, nil
}

func (c *OnDeviceClient) Generate(ctx context.Context, prompt string, images []string) (res types.GenerationResult, err error) {
	start := time.Now()
	defer func() { observe(modeLocal, "generate", start, err) }()

	if err := c.opts.Limits.validate(prompt, len(images)); err != nil {
		return res, err
	}
	uris, err := normalizeImages(images)
	if err != nil {
		return res, err
	}

	c.mu.Lock()
	busy := c.state == StateGenerating
	needInit := c.model == nil
	c.mu.Unlock()
	if busy {
		return res, ErrBusy("generation")
	}
	if needInit {
		if err := c.Initialize(ctx); err != nil {
			return res, err
		}
	}

	c.mu.Lock()
	model := c.model
	if model == nil || c.state != StateReady {
		c.mu.Unlock()
		return res, ErrCanceled()
	}
	genCtx, cancel := context.WithCancel(ctx)
	c.abort = cancel
	c.state = StateGenerating
	epoch := c.epoch
	c.mu.Unlock()
	defer cancel()

	c.pub.Publish(Event{Name: "generate_start", Mode: modeLocal, Fields: map[string]any{"images": len(uris)}})
	c.emit(types.StageProcessingImages, 30, fmt.Sprintf("Preparing %d image(s)", len(uris)))
	c.emit(types.StageGenerating, 50, "Analyzing portfolio")
	sampling := Sampling{MaxTokens: c.opts.MaxTokens, Temperature: *c.opts.Temperature, Seed: c.opts.Seed}
	comp, err := race(genCtx, c.opts.Timeouts.Generate, func(ctx context.Context) (Completion, error) {
		return model.Complete(ctx, Message{Images: uris, Text: prompt}, sampling)
	}, nil)

	c.mu.Lock()
	stale := c.epoch != epoch
	if !stale {
		c.abort = nil
		c.state = StateReady
	}
	c.mu.Unlock()

	defer func() {
		if err != nil {
			c.pub.Publish(Event{Name: "generate_error", Mode: modeLocal, Fields: map[string]any{"kind": string(KindOf(err))}})
		}
	}()
	if err != nil {
		switch {
		case errors.Is(err, errDeadline):
			// The runtime may still be producing tokens; treat the context as lost.
			model.Stop()
			c.Cleanup()
			return res, errGenerationTimeout(c.opts.Timeouts.Generate)
		case stale || genCtx.Err() != nil:
			return res, ErrCanceled()
		}
		return res, classifyGenerationError(err)
	}
	if stale {
		return res, ErrCanceled()
	}
	text := strings.TrimSpace(comp.Text)
	if text == "" {
		return res, errEmptyResponse()
	}

	c.emit(types.StageCompleted, 100, "Analysis complete")
	res = types.GenerationResult{
		Text:            text,
		ElapsedMs:       time.Since(start).Milliseconds(),
		ModelIdentifier: c.opts.ModelID,
		TokenCount:      comp.Tokens,
	}
	c.pub.Publish(Event{Name: "generate_done", Mode: modeLocal, Fields: map[string]any{"elapsed_ms": res.ElapsedMs, "tokens": res.TokenCount}})
	c.log.Info().Int64("elapsed_ms", res.ElapsedMs).Int("tokens", res.TokenCount).Int("images", len(uris)).Msg("generation complete")
	return res, nil
}

// Cancel stops an in-flight generation and tears the client down. With
// nothing in flight it does nothing.
func (c *OnDeviceClient) Cancel() {
	c.mu.Lock()
	state, model := c.state, c.model
	c.mu.Unlock()
	switch state {
	case StateGenerating:
		if model != nil {
			model.Stop()
		}
	case StateInitializing:
	default:
		return
	}
	c.log.Info().Str("state", string(state)).Msg("cancel requested")
	c.pub.Publish(Event{Name: "cancel", Mode: modeLocal, Fields: map[string]any{"state": string(state)}})
	c.Cleanup()
}

// Cleanup releases the model context. Release errors are logged, never returned.
func (c *OnDeviceClient) Cleanup() {
	c.mu.Lock()
	model, abort := c.model, c.abort
	c.model, c.abort = nil, nil
	c.epoch++
	if c.state != StateIdle || model != nil {
		c.state = StateReleased
	}
	c.mu.Unlock()

	if abort != nil {
		abort()
	}
	if model != nil {
		c.release(model)
		setReady(modeLocal, false)
		c.pub.Publish(Event{Name: "cleanup", Mode: modeLocal})
	}
}

func (c *OnDeviceClient) release(m Model) {
	if err := m.Release(); err != nil {
		c.log.Warn().Err(err).Msg("model release failed")
		c.pub.Publish(Event{Name: "cleanup_error", Mode: modeLocal, Fields: map[string]any{"error": err.Error()}})
	}
}

func (c *OnDeviceClient) emit(stage types.Stage, percent int, msg string) {
	if c.progress == nil {
		return
	}
	c.progress(types.GenerationProgress{Stage: stage, Percent: percent, Message: msg})
}
