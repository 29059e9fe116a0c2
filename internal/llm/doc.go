// Package llm executes generated prompts. It is structured into small files by
// concern:
//
//   - client.go: Client interface, Options, Limits, Timeouts and defaults.
//   - errors.go: the failure taxonomy (Kind, *Error) and predicates.
//   - factory.go: NewClient selects a client for an execution mode.
//   - passthrough.go: clipboard mode; copies the prompt and returns at once.
//   - ondevice.go: local mode; staged initialization, generation, teardown.
//   - engine_iface.go: Engine/Model seam between OnDeviceClient and a runtime.
//   - engine_server.go: llama-server subprocess runtime (default, no CGO).
//   - engine_llama.go: in-process go-llama.cpp runtime (-tags=llama).
//   - timeout.go: client-side deadline race for calls that ignore ctx.
//   - images.go: data URI normalization for image payloads.
//   - events.go, metrics.go: lifecycle events and prometheus instrumentation.
//
// Build tags and runtimes:
//
//   - In-process llama: enabled with `-tags=llama`. go-llama.cpp has no
//     multimodal projector support, so initialization reports
//     MultimodalInitFailed with this runtime; it is useful for text-only
//     smoke tests of the lifecycle.
//   - llama-server subprocess: the default. The projector is attached by
//     relaunching the server with --mmproj and vision support is confirmed via
//     GET /props.
package llm
