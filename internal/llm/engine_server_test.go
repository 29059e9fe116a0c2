package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func newTestServerModel(baseURL string) *serverModel {
	return &serverModel{e: NewServerEngine(ServerConfig{}), baseURL: baseURL}
}

func sseChunk(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"delta": map[string]string{"content": content}}},
	})
	return "data: " + string(b) + "\n\n"
}

func TestBuildChatRequest_ImagesFirstTextLast(t *testing.T) {
	req := buildChatRequest(Message{Images: []string{"data:image/png;base64,AA", "data:image/png;base64,BB"}, Text: "분석"}, Sampling{MaxTokens: 512, Temperature: 0.7, Seed: 42})
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Fatalf("expected a single user message: %+v", req.Messages)
	}
	parts := req.Messages[0].Content
	if len(parts) != 3 || parts[0].Type != "image_url" || parts[1].ImageURL.URL != "data:image/png;base64,BB" || parts[2].Type != "text" || parts[2].Text != "분석" {
		t.Fatalf("unexpected parts: %+v", parts)
	}
	if !req.Stream || req.MaxTokens != 512 || req.Seed != 42 {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestServerModel_CompleteStreams(t *testing.T) {
	var got chatRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("안녕"))
		fmt.Fprint(w, sseChunk("하세요"))
		fmt.Fprint(w, `data: {"choices":[],"usage":{"completion_tokens":3}}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer ts.Close()

	m := newTestServerModel(ts.URL)
	comp, err := m.Complete(testCtx(t), Message{Images: []string{"data:image/jpeg;base64,AA"}, Text: "hi"}, Sampling{MaxTokens: 16, Temperature: 0.2})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if comp.Text != "안녕하세요" || comp.Tokens != 3 {
		t.Fatalf("unexpected completion: %+v", comp)
	}
	if got.Temperature != 0.2 || len(got.Messages[0].Content) != 2 {
		t.Fatalf("server saw %+v", got)
	}
}

func TestServerModel_CompleteHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "failed to allocate compute buffer", http.StatusInternalServerError)
	}))
	defer ts.Close()
	_, err := newTestServerModel(ts.URL).Complete(testCtx(t), Message{Text: "x"}, Sampling{})
	if err == nil || !isOutOfMemory(err) {
		t.Fatalf("expected an error the classifier reads as OOM, got %v", err)
	}
}

func TestServerModel_StopInterruptsComplete(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("a"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer ts.Close()
	defer close(release)

	m := newTestServerModel(ts.URL)
	errCh := make(chan error, 1)
	go func() {
		_, err := m.Complete(context.Background(), Message{Text: "x"}, Sampling{})
		errCh <- err
	}()
	time.Sleep(50 * time.Millisecond)
	m.Stop()
	select {
	case err := <-errCh:
		if err == nil {
			t.Fatalf("expected an error after Stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop did not interrupt Complete")
	}
}

func TestServerModel_Multimodal(t *testing.T) {
	for _, vision := range []bool{true, false} {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"modalities":{"vision":%v},"total_slots":1}`, vision)
		}))
		ok, err := newTestServerModel(ts.URL).Multimodal(testCtx(t))
		ts.Close()
		if err != nil || ok != vision {
			t.Fatalf("vision=%v: got %v, %v", vision, ok, err)
		}
	}
}

func TestServerModel_ReleaseIdempotent(t *testing.T) {
	m := newTestServerModel("http://127.0.0.1:1")
	if err := m.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := m.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
	if _, err := m.Complete(testCtx(t), Message{Text: "x"}, Sampling{}); err == nil {
		t.Fatalf("Complete after Release must fail")
	}
}

func TestServerEngine_MissingBinary(t *testing.T) {
	e := NewServerEngine(ServerConfig{})
	t.Setenv("PATH", t.TempDir())
	saved := serverBinCandidates
	serverBinCandidates = nil
	t.Cleanup(func() { serverBinCandidates = saved })
	_, err := e.Load(testCtx(t), "/m/model.gguf", LoadOptions{})
	if !IsKind(err, KindDependencyUnavailable) {
		t.Fatalf("expected dependency_unavailable, got %v", err)
	}
}

func TestServerEngine_EarlyExit(t *testing.T) {
	bin, err := exec.LookPath("false")
	if err != nil {
		t.Skip("no 'false' binary on this system")
	}
	e := NewServerEngine(ServerConfig{Bin: bin})
	_, err = e.Load(testCtx(t), "/m/model.gguf", LoadOptions{ContextSize: 2048})
	if err == nil || !strings.Contains(err.Error(), "exited") {
		t.Fatalf("expected early-exit error, got %v", err)
	}
}

func TestServerModel_Args(t *testing.T) {
	m := &serverModel{e: NewServerEngine(ServerConfig{ExtraArgs: []string{"--no-webui"}}), weights: "/m/w.gguf", opts: LoadOptions{ContextSize: 4096, Seed: 42, Threads: 4}}
	got := strings.Join(m.args("127.0.0.1", 8081, "/m/p.gguf"), " ")
	want := "-m /m/w.gguf --host 127.0.0.1 --port 8081 -ngl 0 -c 4096 --seed 42 -t 4 --mmproj /m/p.gguf --no-webui"
	if got != want {
		t.Fatalf("args:\n got %s\nwant %s", got, want)
	}
}
