package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies a client failure. Every error returned by a Client is an
// *Error carrying one of these kinds.
type Kind string

const (
	KindConfiguration         Kind = "configuration"
	KindClipboard             Kind = "clipboard"
	KindUnsupportedPlatform   Kind = "unsupported_platform"
	KindModelFilesMissing     Kind = "model_files_missing"
	KindDependencyUnavailable Kind = "dependency_unavailable"
	KindInitializationFailed  Kind = "initialization_failed"
	KindInitializationTimeout Kind = "initialization_timeout"
	KindMultimodalInitFailed  Kind = "multimodal_init_failed"
	KindInvalidInput          Kind = "invalid_input"
	KindGenerationTimeout     Kind = "generation_timeout"
	KindEmptyModelResponse    Kind = "empty_model_response"
	KindOutOfMemory           Kind = "out_of_memory"
	KindUnknownGeneration     Kind = "unknown_generation"
	KindCanceled              Kind = "canceled"
	KindBusy                  Kind = "busy"
)

// Error is a classified failure with a message that tells the user what went
// wrong and a remedy that tells them what to do about it.
type Error struct {
	Kind   Kind
	Msg    string
	Remedy string
	// Paths lists the offending files for KindModelFilesMissing.
	Paths []string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Remedy != "" {
		msg += "; " + e.Remedy
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the text shown to the end user: what happened and what to do.
func (e *Error) UserMessage() string {
	if e.Remedy == "" {
		return e.Msg
	}
	return e.Msg + ". " + strings.ToUpper(e.Remedy[:1]) + e.Remedy[1:] + "."
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool { return err != nil && KindOf(err) == k }

// IsCanceled reports whether err signals user cancellation rather than failure.
func IsCanceled(err error) bool { return IsKind(err, KindCanceled) }

// IsInvalidInput reports whether err rejects the prompt or images.
func IsInvalidInput(err error) bool { return IsKind(err, KindInvalidInput) }

// IsTimeout reports whether err is an initialization or generation timeout.
func IsTimeout(err error) bool {
	k := KindOf(err)
	return k == KindInitializationTimeout || k == KindGenerationTimeout
}

// IsBusy reports whether err rejects an overlapping request.
func IsBusy(err error) bool { return IsKind(err, KindBusy) }

func errConfiguration(msg string) error {
	return &Error{Kind: KindConfiguration, Msg: msg, Remedy: "choose a model in settings and make sure it is downloaded"}
}

func errClipboard(err error) error {
	return &Error{Kind: KindClipboard, Msg: "could not copy the prompt to the clipboard", Remedy: "copy the prompt manually from the preview", Err: err}
}

func errUnsupportedPlatform(goos string) error {
	return &Error{Kind: KindUnsupportedPlatform, Msg: fmt.Sprintf("local analysis is not available on %q", goos), Remedy: "use clipboard mode on this platform"}
}

func errModelFilesMissing(paths []string) error {
	return &Error{
		Kind:   KindModelFilesMissing,
		Msg:    "model files not found: " + strings.Join(paths, ", "),
		Remedy: "download the model again from the models screen",
		Paths:  paths,
	}
}

// ErrDependencyUnavailable signals a missing runtime (llama-server binary or
// the in-process build) so callers can report 503 instead of 500.
func ErrDependencyUnavailable(msg string) error {
	return &Error{Kind: KindDependencyUnavailable, Msg: msg, Remedy: "install llama.cpp or configure llm.server_bin"}
}

func errInitFailed(err error) error {
	if isOutOfMemory(err) {
		return errOutOfMemory(err)
	}
	if IsKind(err, KindDependencyUnavailable) {
		return err
	}
	return &Error{Kind: KindInitializationFailed, Msg: "model failed to load", Remedy: "the model file may be corrupted; try downloading it again", Err: err}
}

func errInitTimeout(stage string, d time.Duration) error {
	return &Error{
		Kind:   KindInitializationTimeout,
		Msg:    fmt.Sprintf("%s did not finish within %s", stage, d),
		Remedy: "the model may be corrupted or the device too slow; try a smaller model",
	}
}

func errMultimodal(err error) error {
	return &Error{
		Kind:   KindMultimodalInitFailed,
		Msg:    "vision support could not be enabled for this model",
		Remedy: "check that the projector file matches the model or choose another model",
		Err:    err,
	}
}

func errInvalidInput(msg string) error {
	return &Error{Kind: KindInvalidInput, Msg: msg, Remedy: "shorten the prompt or select fewer images"}
}

func errGenerationTimeout(d time.Duration) error {
	return &Error{
		Kind:   KindGenerationTimeout,
		Msg:    fmt.Sprintf("analysis did not finish within %s", d),
		Remedy: "try fewer images or a shorter prompt",
	}
}

func errEmptyResponse() error {
	return &Error{Kind: KindEmptyModelResponse, Msg: "the model returned an empty answer", Remedy: "try again or use clipboard mode"}
}

func errOutOfMemory(err error) error {
	return &Error{Kind: KindOutOfMemory, Msg: "not enough memory to run the model", Remedy: "close other apps or choose a smaller model", Err: err}
}

func errUnknownGeneration(err error) error {
	return &Error{Kind: KindUnknownGeneration, Msg: "analysis failed", Remedy: "try again", Err: err}
}

// ErrCanceled reports a user-initiated cancellation.
func ErrCanceled() error {
	return &Error{Kind: KindCanceled, Msg: "analysis canceled"}
}

// ErrBusy rejects a request that overlaps one already in flight.
func ErrBusy(what string) error {
	return &Error{Kind: KindBusy, Msg: what + " already in progress", Remedy: "wait for it to finish or cancel it"}
}

// classifyGenerationError maps a raw runtime failure onto the taxonomy.
func classifyGenerationError(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return ErrCanceled()
	}
	if isOutOfMemory(err) {
		return errOutOfMemory(err)
	}
	return errUnknownGeneration(err)
}

var oomMarkers = []string{"out of memory", "oom-kill", "failed to allocate", "cannot allocate memory", "bad_alloc"}

func isOutOfMemory(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, m := range oomMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
