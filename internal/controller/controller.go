// Package controller runs one analysis at a time end to end: build a client
// for the current settings, initialize, generate, and always clean up. It
// exposes processing state and progress to observers and tears the client
// down on cancellation, backgrounding, and Close.
package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"promptstock/internal/llm"
	"promptstock/pkg/types"
)

// ErrClosed is returned by Execute after Close.
var ErrClosed = errors.New("controller closed")

// AppState mirrors the host application's lifecycle.
type AppState string

const (
	AppActive     AppState = "active"
	AppInactive   AppState = "inactive"
	AppBackground AppState = "background"
)

// Valid reports whether s is a known lifecycle state.
func (s AppState) Valid() bool {
	switch s {
	case AppActive, AppInactive, AppBackground:
		return true
	}
	return false
}

// State is the observable controller state.
type State struct {
	IsProcessing bool
	Progress     *types.GenerationProgress
	AppState     AppState
}

// Config wires a Controller.
type Config struct {
	// Source returns the current settings snapshot. It is read once per
	// Execute; later changes do not affect a running request.
	Source func() llm.Settings
	// Factory defaults to llm.NewClient.
	Factory   llm.Factory
	Logger    *zerolog.Logger
	Publisher llm.EventPublisher
}

// Controller orchestrates single-flight analysis requests.
type Controller struct {
	source  func() llm.Settings
	factory llm.Factory
	log     zerolog.Logger
	pub     llm.EventPublisher

	mu         sync.Mutex
	client     llm.Client
	processing bool
	progress   *types.GenerationProgress
	appState   AppState
	closed     bool
	// run identifies the current request. Cancel and backgrounding bump it
	// so a request that unwinds late cannot clear a newer request's state.
	run uint64
	// released is closed once the last detached client finished cleanup.
	released chan struct{}

	watchers  map[int]func(State)
	nextWatch int
}

func New(cfg Config) *Controller {
	if cfg.Factory == nil {
		cfg.Factory = llm.NewClient
	}
	if cfg.Source == nil {
		cfg.Source = func() llm.Settings { return llm.Settings{Mode: types.ModePassthrough} }
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = llm.Discard
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	done := make(chan struct{})
	close(done)
	return &Controller{
		source:   cfg.Source,
		factory:  cfg.Factory,
		log:      log.With().Str("component", "controller").Logger(),
		pub:      pub,
		appState: AppActive,
		released: done,
		watchers: make(map[int]func(State)),
	}
}

// Execute runs one request. An overlapping call fails with a busy error;
// callers are expected to disable their trigger while processing.
func (c *Controller) Execute(ctx context.Context, prompt string, images []string) (types.GenerationResult, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return types.GenerationResult{}, ErrClosed
	}
	if c.processing {
		c.mu.Unlock()
		return types.GenerationResult{}, llm.ErrBusy("analysis")
	}
	c.run++
	run := c.run
	c.processing = true
	c.progress = nil
	released := c.released
	c.mu.Unlock()
	c.notify()
	defer c.finish(run)

	settings := c.source()
	start := time.Now()
	log := c.log.With().Str("mode", string(settings.Mode)).Uint64("run", run).Logger()
	c.pub.Publish(llm.Event{Name: "execute_start", Mode: string(settings.Mode), Fields: map[string]any{"images": len(images)}})

	client, err := c.factory(settings.Mode, settings.Options, func(p types.GenerationProgress) { c.setProgress(run, p) })
	if err != nil {
		log.Error().Err(err).Msg("client construction failed")
		return types.GenerationResult{}, err
	}

	c.mu.Lock()
	if c.run != run {
		c.mu.Unlock()
		client.Cleanup()
		return types.GenerationResult{}, llm.ErrCanceled()
	}
	c.client = client
	c.mu.Unlock()

	// No two live contexts: wait for a previously detached client.
	select {
	case <-released:
	case <-ctx.Done():
		c.teardown(client)
		return types.GenerationResult{}, llm.ErrCanceled()
	}

	if !client.Ready() {
		if err := client.Initialize(ctx); err != nil {
			c.teardown(client)
			c.failed(log, settings.Mode, err)
			return types.GenerationResult{}, err
		}
	}
	res, err := client.Generate(ctx, prompt, images)
	c.teardown(client)
	if err != nil {
		c.failed(log, settings.Mode, err)
		return types.GenerationResult{}, err
	}
	log.Info().Dur("elapsed", time.Since(start)).Int("tokens", res.TokenCount).Msg("analysis complete")
	c.pub.Publish(llm.Event{Name: "execute_done", Mode: string(settings.Mode), Fields: map[string]any{"elapsed_ms": res.ElapsedMs}})
	return res, nil
}

func (c *Controller) failed(log zerolog.Logger, mode types.Mode, err error) {
	if llm.IsCanceled(err) {
		log.Info().Msg("analysis canceled")
	} else {
		log.Error().Err(err).Str("kind", string(llm.KindOf(err))).Msg("analysis failed")
	}
	c.pub.Publish(llm.Event{Name: "execute_error", Mode: string(mode), Fields: map[string]any{"kind": string(llm.KindOf(err))}})
}

// teardown releases client and forgets it if it is still current.
func (c *Controller) teardown(client llm.Client) {
	client.Cleanup()
	c.mu.Lock()
	if c.client == client {
		c.client = nil
	}
	c.mu.Unlock()
}

// finish clears processing state unless a newer request owns it.
func (c *Controller) finish(run uint64) {
	c.mu.Lock()
	if c.run != run {
		c.mu.Unlock()
		return
	}
	c.processing = false
	c.progress = nil
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) setProgress(run uint64, p types.GenerationProgress) {
	c.mu.Lock()
	if c.run != run || !c.processing {
		c.mu.Unlock()
		return
	}
	c.progress = &p
	c.mu.Unlock()
	c.notify()
}

// Cancel interrupts the current request, releases its client and clears
// state. With nothing in flight it does nothing.
func (c *Controller) Cancel() {
	if c.reset("cancel") {
		c.log.Info().Msg("analysis cancel requested")
	}
}

// SetAppState records a lifecycle transition. Moving to the background
// unconditionally tears down any live client.
func (c *Controller) SetAppState(s AppState) {
	c.mu.Lock()
	c.appState = s
	c.mu.Unlock()
	if s == AppBackground && c.reset("background") {
		c.log.Info().Msg("released model on background")
	}
	c.notify()
}

// Close cleans up any live client and rejects further requests.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.reset("close")
	c.mu.Lock()
	c.watchers = make(map[int]func(State))
	c.mu.Unlock()
	return nil
}

// reset detaches the live client, clears state and releases the client. It
// reports whether there was anything to reset.
func (c *Controller) reset(reason string) bool {
	c.mu.Lock()
	client, active := c.client, c.processing
	if client == nil && !active {
		c.mu.Unlock()
		return false
	}
	c.client = nil
	c.run++
	c.processing = false
	c.progress = nil
	done := make(chan struct{})
	c.released = done
	c.mu.Unlock()
	c.notify()

	if client != nil {
		client.Cancel()
		client.Cleanup()
	}
	close(done)
	c.pub.Publish(llm.Event{Name: reason, Fields: map[string]any{"had_client": client != nil}})
	return true
}

// State returns a snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := State{IsProcessing: c.processing, AppState: c.appState}
	if c.progress != nil {
		p := *c.progress
		s.Progress = &p
	}
	return s
}

// Watch registers fn for state changes. fn runs synchronously on the
// goroutine that changed the state and must not call back into the
// Controller's mutating methods.
func (c *Controller) Watch(fn func(State)) (stop func()) {
	c.mu.Lock()
	id := c.nextWatch
	c.nextWatch++
	c.watchers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
	}
}

func (c *Controller) notify() {
	c.mu.Lock()
	s := c.snapshotLocked()
	fns := make([]func(State), 0, len(c.watchers))
	for _, fn := range c.watchers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}
