package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"promptstock/internal/history"
	"promptstock/internal/llm"
	"promptstock/internal/prompt"
	"promptstock/internal/registry"
	"promptstock/pkg/types"
)

func (s *server) listTemplates(w http.ResponseWriter, r *http.Request) {
	all, err := prompt.All(r.Context(), s.Templates)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, types.TemplatesResponse{Templates: all})
}

// templateWriter is implemented by stores that accept custom templates.
type templateWriter interface {
	Save(ctx context.Context, t types.Template) (types.Template, error)
	Delete(ctx context.Context, id string) error
}

func (s *server) templateStore(w http.ResponseWriter) (templateWriter, bool) {
	tw, ok := s.Templates.(templateWriter)
	if !ok {
		writeJSONError(w, http.StatusNotImplemented, "custom templates are read-only", "")
	}
	return tw, ok
}

func (s *server) createTemplate(w http.ResponseWriter, r *http.Request) {
	tw, ok := s.templateStore(w)
	if !ok {
		return
	}
	var t types.Template
	if !decodeJSON(w, r, &t) {
		return
	}
	if strings.TrimSpace(t.Name) == "" || strings.TrimSpace(t.PromptTemplate) == "" {
		writeJSONError(w, http.StatusBadRequest, "name and prompt_template are required", llm.KindInvalidInput)
		return
	}
	saved, err := tw.Save(r.Context(), t)
	switch {
	case errors.Is(err, history.ErrConflict):
		writeJSONError(w, http.StatusConflict, err.Error(), "")
		return
	case err != nil:
		writeJSONError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *server) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	tw, ok := s.templateStore(w)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, builtin := prompt.Lookup(id); builtin {
		writeJSONError(w, http.StatusBadRequest, "built-in templates cannot be deleted", llm.KindInvalidInput)
		return
	}
	if _, err := s.Templates.Get(r.Context(), id); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "template not found", "")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	if err := tw.Delete(r.Context(), id); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// usageCounter is implemented by stores that track custom template usage.
type usageCounter interface {
	IncrementUsage(ctx context.Context, id string) error
}

func (s *server) buildPrompt(w http.ResponseWriter, r *http.Request) {
	var req types.PromptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ImageCount < 0 {
		writeJSONError(w, http.StatusBadRequest, "image_count must not be negative", llm.KindInvalidInput)
		return
	}
	if req.Mode == "" {
		req.Mode = types.ModePassthrough
	}
	if !req.Mode.Valid() {
		writeJSONError(w, http.StatusBadRequest, "unknown mode: "+string(req.Mode), llm.KindInvalidInput)
		return
	}
	t, err := prompt.Resolve(r.Context(), s.Templates, req.TemplateID)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error(), "")
		return
	}
	if uc, ok := s.Templates.(usageCounter); ok && t.IsCustom {
		if err := uc.IncrementUsage(r.Context(), t.ID); err != nil {
			zlog.Warn().Err(err).Str("template", t.ID).Msg("event=template_usage_error")
		}
	}
	p := prompt.Generate(t, prompt.Options{
		ImageCount:    req.ImageCount,
		Mode:          req.Mode,
		Inputs:        req.Inputs,
		PortfolioText: req.PortfolioText,
	})
	writeJSON(w, http.StatusOK, types.PromptResponse{
		Prompt:         p,
		WordCount:      prompt.WordCount(p),
		EstimateTokens: prompt.EstimateTokens(p),
	})
}

func (s *server) listModels(w http.ResponseWriter, r *http.Request) {
	resp := types.ModelsResponse{Supported: registry.Supported(), Installed: []types.InstalledModel{}}
	if s.ModelsDir != "" {
		installed, err := registry.LoadDir(s.ModelsDir)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error(), "")
			return
		}
		if installed != nil {
			resp.Installed = installed
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) getSettings(w http.ResponseWriter, r *http.Request) {
	if s.Settings == nil {
		writeJSONError(w, http.StatusNotFound, "settings are not available", "")
		return
	}
	st, err := s.Settings.Load(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *server) putSettings(w http.ResponseWriter, r *http.Request) {
	if s.Settings == nil {
		writeJSONError(w, http.StatusNotFound, "settings are not available", "")
		return
	}
	var st types.AppSettings
	if !decodeJSON(w, r, &st) {
		return
	}
	if !st.Mode.Valid() {
		writeJSONError(w, http.StatusBadRequest, "unknown mode: "+string(st.Mode), llm.KindInvalidInput)
		return
	}
	if st.Local.ModelID != "" {
		if _, err := registry.Get(st.Local.ModelID); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error(), llm.KindInvalidInput)
			return
		}
	}
	if err := s.Settings.Save(r.Context(), st); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, st)
}
