package httpapi

import (
	"context"
	"net/http"

	"promptstock/internal/controller"
	"promptstock/internal/llm"
	"promptstock/pkg/types"
)

func (s *server) analyze(w http.ResponseWriter, r *http.Request) {
	var req types.AnalyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	// Shutdown cancels work as well as a client disconnect.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.BaseContext, cancel)
	defer stop()

	res, err := s.Exec.Execute(ctx, req.Prompt, req.Images)
	if err != nil {
		if llm.IsBusy(err) {
			incrementRejection("busy")
		}
		if r.Context().Err() != nil {
			return
		}
		writeExecError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) cancel(w http.ResponseWriter, r *http.Request) {
	s.Exec.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) status(w http.ResponseWriter, r *http.Request) {
	st := s.Exec.State()
	resp := types.StatusResponse{
		IsProcessing: st.IsProcessing,
		Progress:     st.Progress,
		AppState:     string(st.AppState),
	}
	if s.Mode != nil {
		resp.Mode = s.Mode()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) lifecycle(w http.ResponseWriter, r *http.Request) {
	var req types.LifecycleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st := controller.AppState(req.State)
	if !st.Valid() {
		writeJSONError(w, http.StatusBadRequest, "state must be active, inactive or background", llm.KindInvalidInput)
		return
	}
	s.Exec.SetAppState(st)
	w.WriteHeader(http.StatusNoContent)
}
