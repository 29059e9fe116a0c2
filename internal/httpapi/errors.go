package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"promptstock/internal/history"
	"promptstock/internal/llm"
	"promptstock/pkg/types"
)

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string, kind llm.Kind) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Kind: string(kind), Code: status})
}

// statusClientClosed reports a run canceled by the user.
const statusClientClosed = 499

// statusFor maps an execution error to an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, history.ErrNotFound) {
		return http.StatusNotFound
	}
	switch llm.KindOf(err) {
	case llm.KindBusy:
		return http.StatusConflict
	case llm.KindInvalidInput, llm.KindConfiguration:
		return http.StatusBadRequest
	case llm.KindUnsupportedPlatform, llm.KindModelFilesMissing, llm.KindMultimodalInitFailed,
		llm.KindEmptyModelResponse, llm.KindOutOfMemory, llm.KindInitializationFailed:
		return http.StatusUnprocessableEntity
	case llm.KindInitializationTimeout, llm.KindGenerationTimeout:
		return http.StatusGatewayTimeout
	case llm.KindDependencyUnavailable, llm.KindClipboard:
		return http.StatusServiceUnavailable
	case llm.KindCanceled:
		return statusClientClosed
	default:
		return http.StatusInternalServerError
	}
}

// writeExecError writes err with its mapped status and user-facing message.
func writeExecError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	var e *llm.Error
	if errors.As(err, &e) {
		msg = e.UserMessage()
	}
	writeJSONError(w, status, msg, llm.KindOf(err))
}
