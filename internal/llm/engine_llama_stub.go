//go:build !llama

package llm

// No-CGO stub compiled when the 'llama' build tag is not set. The real
// runtime lives in engine_llama.go.

import "context"

type inProcessEngine struct{}

func NewInProcessEngine(threads int) Engine { return inProcessEngine{} }

func (inProcessEngine) Name() string { return "llama-inprocess" }

func (inProcessEngine) Load(ctx context.Context, weightsPath string, opts LoadOptions) (Model, error) {
	return nil, ErrDependencyUnavailable("in-process llama support not built (missing 'llama' build tag)")
}
