package llm

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"promptstock/pkg/types"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// writeModelFiles creates small weights and projector files and returns their paths.
func writeModelFiles(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	w := filepath.Join(dir, "model.gguf")
	p := filepath.Join(dir, "mmproj.gguf")
	for _, f := range []string{w, p} {
		if err := os.WriteFile(f, []byte("gguf"), 0o644); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}
	return w, p
}

// fakeEngine is an in-memory Engine used by tests.
type fakeEngine struct {
	mu sync.Mutex

	loadErr error
	// loadBlock, when set, makes Load ignore ctx and wait for it to close.
	loadBlock chan struct{}
	attachErr error
	// attachBlock, when set, makes AttachProjector ignore ctx and wait for it.
	attachBlock chan struct{}
	vision      bool
	text        string
	tokens      int
	genErr      error
	// genBlock, when set, makes Complete wait for it or ctx.
	genBlock chan struct{}
	// genStarted is closed when Complete begins, if set.
	genStarted chan struct{}

	loads    int
	released int
	lastOpts LoadOptions
	lastMsg  Message
	lastSamp Sampling
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{vision: true, text: "  분석 결과입니다.  ", tokens: 7}
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Load(ctx context.Context, weightsPath string, opts LoadOptions) (Model, error) {
	e.mu.Lock()
	e.loads++
	e.lastOpts = opts
	block, err := e.loadBlock, e.loadErr
	e.mu.Unlock()
	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return &fakeModel{e: e}, nil
}

func (e *fakeEngine) counts() (loads, released int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loads, e.released
}

type fakeModel struct {
	e    *fakeEngine
	once sync.Once
}

func (m *fakeModel) AttachProjector(ctx context.Context, path string) error {
	m.e.mu.Lock()
	block, err := m.e.attachBlock, m.e.attachErr
	m.e.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func (m *fakeModel) Multimodal(ctx context.Context) (bool, error) {
	m.e.mu.Lock()
	defer m.e.mu.Unlock()
	return m.e.vision, nil
}

func (m *fakeModel) Complete(ctx context.Context, msg Message, s Sampling) (Completion, error) {
	m.e.mu.Lock()
	m.e.lastMsg, m.e.lastSamp = msg, s
	block, started := m.e.genBlock, m.e.genStarted
	text, tokens, err := m.e.text, m.e.tokens, m.e.genErr
	m.e.mu.Unlock()
	if started != nil {
		close(started)
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return Completion{}, ctx.Err()
		}
	}
	if err != nil {
		return Completion{}, err
	}
	return Completion{Text: text, Tokens: tokens}, nil
}

func (m *fakeModel) Stop() {}

func (m *fakeModel) Release() error {
	m.once.Do(func() {
		m.e.mu.Lock()
		m.e.released++
		m.e.mu.Unlock()
	})
	return nil
}

// fakeClipboard records writes.
type fakeClipboard struct {
	mu     sync.Mutex
	writes []string
	err    error
}

func (c *fakeClipboard) WriteAll(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.writes = append(c.writes, text)
	return nil
}

// progressLog collects progress callbacks.
type progressLog struct {
	mu     sync.Mutex
	events []types.GenerationProgress
}

func (p *progressLog) record(g types.GenerationProgress) {
	p.mu.Lock()
	p.events = append(p.events, g)
	p.mu.Unlock()
}

func (p *progressLog) percents() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, len(p.events))
	for i, e := range p.events {
		out[i] = e.Percent
	}
	return out
}

func newLocalClient(t *testing.T, e *fakeEngine, mutate func(*Options)) (*OnDeviceClient, *progressLog) {
	t.Helper()
	w, p := writeModelFiles(t)
	opts := Options{
		WeightsPath:   w,
		ProjectorPath: p,
		ModelID:       "qwen2.5-vl-7b-q4",
		Platform:      "android",
	}
	if mutate != nil {
		mutate(&opts)
	}
	pl := &progressLog{}
	return NewOnDeviceClient(opts, e, pl.record), pl
}
