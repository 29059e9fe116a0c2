package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"promptstock/internal/history"
	"promptstock/pkg/types"
)

// listAnalyses serves GET /v1/analyses?q=&tag=&template=&sort=date|name&order=asc|desc.
// tag and template may repeat.
func (s *server) listAnalyses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := history.Filter{
		Search:        q.Get("q"),
		Tags:          q["tag"],
		TemplateNames: q["template"],
		SortBy:        q.Get("sort"),
		Order:         q.Get("order"),
	}
	list, err := s.Analyses.Query(r.Context(), f)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	tags, err := s.Analyses.AllTags(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	if list == nil {
		list = []types.Analysis{}
	}
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, types.AnalysesResponse{Analyses: list, Tags: tags})
}

func (s *server) saveAnalysis(w http.ResponseWriter, r *http.Request) {
	var a types.Analysis
	if !decodeJSON(w, r, &a) {
		return
	}
	if strings.TrimSpace(a.GeneratedPrompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "generated_prompt is required", "")
		return
	}
	saved, err := s.Analyses.Save(r.Context(), a)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := s.Analyses.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *server) patchAnalysis(w http.ResponseWriter, r *http.Request) {
	var p types.AnalysisPatch
	if !decodeJSON(w, r, &p) {
		return
	}
	a, err := s.Analyses.Update(r.Context(), chi.URLParam(r, "id"), func(a *types.Analysis) {
		if p.UserNote != nil {
			a.UserNote = *p.UserNote
		}
		if p.Tags != nil {
			a.Tags = append([]string{}, (*p.Tags)...)
		}
		if p.AIResponse != nil {
			a.AIResponse = *p.AIResponse
		}
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *server) deleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.Analyses.Get(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	if err := s.Analyses.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, history.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "analysis not found", "")
		return
	}
	writeJSONError(w, http.StatusInternalServerError, err.Error(), "")
}
