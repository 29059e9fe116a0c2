package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"promptstock/internal/llm"
	"promptstock/pkg/types"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// fakeClient is a scripted llm.Client.
type fakeClient struct {
	mu sync.Mutex

	ready    bool
	initErr  error
	genErr   error
	result   types.GenerationResult
	progress llm.ProgressFunc
	// block, when set, holds Generate until closed or canceled.
	block   chan struct{}
	started chan struct{}
	// cleanupBlock, when set, holds Cleanup until closed. cleanupStarted is
	// closed on the first Cleanup call.
	cleanupBlock   chan struct{}
	cleanupStarted chan struct{}
	// onInit runs at the start of Initialize.
	onInit func()

	inits, gens, cancels, cleanups int
	canceled                       chan struct{}
}

func (f *fakeClient) Initialize(ctx context.Context) error {
	if f.onInit != nil {
		f.onInit()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	if f.initErr != nil {
		return f.initErr
	}
	f.ready = true
	return nil
}

func (f *fakeClient) Generate(ctx context.Context, prompt string, images []string) (types.GenerationResult, error) {
	f.mu.Lock()
	f.gens++
	block, started, canceled := f.block, f.started, f.canceled
	res, err, progress := f.result, f.genErr, f.progress
	f.mu.Unlock()
	if progress != nil {
		progress(types.GenerationProgress{Stage: types.StageGenerating, Percent: 50, Message: "Analyzing portfolio"})
	}
	if started != nil {
		close(started)
	}
	if block != nil {
		select {
		case <-block:
		case <-canceled:
			return types.GenerationResult{}, llm.ErrCanceled()
		case <-ctx.Done():
			return types.GenerationResult{}, llm.ErrCanceled()
		}
	}
	if err != nil {
		return types.GenerationResult{}, err
	}
	return res, nil
}

func (f *fakeClient) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	if f.canceled != nil {
		select {
		case <-f.canceled:
		default:
			close(f.canceled)
		}
	}
}

func (f *fakeClient) Cleanup() {
	f.mu.Lock()
	f.cleanups++
	f.ready = false
	block, started := f.cleanupBlock, f.cleanupStarted
	f.cleanupStarted = nil
	f.mu.Unlock()
	if started != nil {
		close(started)
	}
	if block != nil {
		<-block
	}
}

func (f *fakeClient) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeClient) counts() (inits, gens, cancels, cleanups int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inits, f.gens, f.cancels, f.cleanups
}

// fakeFactory hands out prepared clients in order.
type fakeFactory struct {
	mu      sync.Mutex
	clients []*fakeClient
	err     error
	modes   []types.Mode
	opts    []llm.Options
}

func (ff *fakeFactory) create(mode types.Mode, opts llm.Options, progress llm.ProgressFunc) (llm.Client, error) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	ff.modes = append(ff.modes, mode)
	ff.opts = append(ff.opts, opts)
	if ff.err != nil {
		return nil, ff.err
	}
	if len(ff.clients) == 0 {
		return nil, errors.New("no fake client prepared")
	}
	c := ff.clients[0]
	ff.clients = ff.clients[1:]
	c.mu.Lock()
	c.progress = progress
	c.mu.Unlock()
	return c, nil
}

func newController(ff *fakeFactory, mode types.Mode) *Controller {
	return New(Config{
		Source:  func() llm.Settings { return llm.Settings{Mode: mode, Options: llm.Options{ModelID: "m"}} },
		Factory: ff.create,
	})
}
