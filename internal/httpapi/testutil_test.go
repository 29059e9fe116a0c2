package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"promptstock/internal/controller"
	"promptstock/internal/history"
	"promptstock/pkg/types"
)

type fakeExec struct {
	mu       sync.Mutex
	result   types.GenerationResult
	err      error
	prompts  []string
	images   [][]string
	canceled int
	appState controller.AppState
	state    controller.State
	block    chan struct{}
}

func (f *fakeExec) Execute(ctx context.Context, prompt string, images []string) (types.GenerationResult, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.images = append(f.images, images)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return types.GenerationResult{}, ctx.Err()
		}
	}
	return f.result, f.err
}

func (f *fakeExec) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled++
}

func (f *fakeExec) State() controller.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeExec) SetAppState(s controller.AppState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appState = s
}

type fixture struct {
	exec      *fakeExec
	analyses  *history.Analyses
	templates *history.Templates
	settings  *history.Settings
	modelsDir string
	h         http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	st, err := history.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	f := &fixture{
		exec:      &fakeExec{},
		analyses:  history.NewAnalyses(st),
		templates: history.NewTemplates(st),
		settings:  history.NewSettings(st),
		modelsDir: filepath.Join(dir, "models"),
	}
	f.h = NewMux(Deps{
		Exec:      f.exec,
		Analyses:  f.analyses,
		Templates: f.templates,
		Settings:  f.settings,
		ModelsDir: f.modelsDir,
		Mode:      func() types.Mode { return types.ModeOnDevice },
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
