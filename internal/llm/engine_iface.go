package llm

import "context"

// Engine loads model weights into a runtime. Implementations must honor ctx
// cancellation where the runtime allows it; OnDeviceClient also enforces its
// own deadlines for runtimes that do not.
type Engine interface {
	Name() string
	Load(ctx context.Context, weightsPath string, opts LoadOptions) (Model, error)
}

// LoadOptions configure a runtime context.
type LoadOptions struct {
	ContextSize int
	// GPULayers is the number of layers offloaded to a GPU. Local mode runs
	// CPU-only and passes 0.
	GPULayers int
	Seed      int
	Threads   int
}

// Model is a loaded runtime context.
type Model interface {
	// AttachProjector loads the vision projector for this context.
	AttachProjector(ctx context.Context, projectorPath string) error
	// Multimodal reports whether image input is enabled.
	Multimodal(ctx context.Context) (bool, error)
	// Complete runs one chat turn.
	Complete(ctx context.Context, msg Message, s Sampling) (Completion, error)
	// Stop interrupts an in-flight Complete. Best effort.
	Stop()
	// Release frees the context. Idempotent.
	Release() error
}

// Message is a single user turn. Images precede the text in the request and
// must be data URIs.
type Message struct {
	Images []string
	Text   string
}

// Sampling parameters for Complete.
type Sampling struct {
	MaxTokens   int
	Temperature float64
	Seed        int
}

// Completion is the trimmed-down result of Complete.
type Completion struct {
	Text   string
	Tokens int
}
