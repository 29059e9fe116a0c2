//go:build llama

package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	llama "github.com/go-skynet/go-llama.cpp"
)

// inProcessEngine loads GGUF weights through go-llama.cpp in this process.
type inProcessEngine struct {
	threads int
}

// NewInProcessEngine returns the CGO runtime. It cannot attach a vision
// projector, so Multimodal always reports false.
func NewInProcessEngine(threads int) Engine {
	return &inProcessEngine{threads: threads}
}

func (e *inProcessEngine) Name() string { return "llama-inprocess" }

func (e *inProcessEngine) Load(ctx context.Context, weightsPath string, opts LoadOptions) (Model, error) {
	if strings.TrimSpace(weightsPath) == "" {
		return nil, errors.New("weights path is empty")
	}
	l, err := llama.New(weightsPath,
		llama.SetContext(opts.ContextSize),
		llama.SetGPULayers(opts.GPULayers),
	)
	if err != nil {
		return nil, err
	}
	threads := opts.Threads
	if threads <= 0 {
		threads = e.threads
	}
	return &inProcessModel{l: l, threads: max(1, threads)}, nil
}

type inProcessModel struct {
	// mu is held for the duration of Predict so Release waits for it.
	mu      sync.Mutex
	l       *llama.LLama
	threads int
	stop    atomic.Bool
}

// AttachProjector is accepted and ignored; Multimodal reports the outcome.
func (m *inProcessModel) AttachProjector(ctx context.Context, projectorPath string) error {
	return ctx.Err()
}

func (m *inProcessModel) Multimodal(ctx context.Context) (bool, error) { return false, nil }

func (m *inProcessModel) Complete(ctx context.Context, msg Message, s Sampling) (Completion, error) {
	if len(msg.Images) > 0 {
		return Completion{}, errors.New("in-process runtime cannot read images")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.l == nil {
		return Completion{}, errors.New("model released")
	}
	m.stop.Store(false)
	tokens := 0
	m.l.SetTokenCallback(func(string) bool {
		tokens++
		return !m.stop.Load() && ctx.Err() == nil
	})
	text, err := m.l.Predict(msg.Text,
		llama.SetTokens(max(1, s.MaxTokens)),
		llama.SetTemperature(float32(s.Temperature)),
		llama.SetSeed(s.Seed),
		llama.SetThreads(m.threads),
	)
	if err != nil {
		if ctx.Err() != nil {
			return Completion{}, ctx.Err()
		}
		return Completion{}, err
	}
	return Completion{Text: text, Tokens: tokens}, nil
}

func (m *inProcessModel) Stop() { m.stop.Store(true) }

func (m *inProcessModel) Release() error {
	m.stop.Store(true)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.l != nil {
		m.l.Free()
		m.l = nil
	}
	return nil
}
