package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":      LevelOff,
		"off":   LevelOff,
		"error": LevelError,
		"info":  LevelInfo,
		"debug": LevelDebug,
		"weird": LevelInfo, // default
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestLogLevel_Overrides(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?log=debug", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("query override failed: %v", got)
	}
	r = httptest.NewRequest("GET", "/x", nil)
	r.Header.Set("X-Log-Level", "error")
	if got := requestLogLevel(r); got != LevelError {
		t.Fatalf("header override failed: %v", got)
	}
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := zlog
	SetLogger(zerolog.New(&buf))
	t.Cleanup(func() { zlog = prev })
	return &buf
}

func TestRequestLogger(t *testing.T) {
	buf := captureLogs(t)
	ok := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/v1/status?log=info", nil))

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("json: %v (%q)", err, buf.String())
	}
	if rec["message"] != "event=http_request" || rec["status"] != float64(http.StatusTeapot) || rec["path"] != "/v1/status" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestRequestLogger_ErrorLevelSkipsSuccess(t *testing.T) {
	buf := captureLogs(t)
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "fail") {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/ok?log=error", nil))
	if buf.Len() != 0 {
		t.Fatalf("success logged at error level: %q", buf.String())
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/fail?log=error", nil))
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("failure not logged: %q", buf.String())
	}
	buf.Reset()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/fail?log=off", nil))
	if buf.Len() != 0 {
		t.Fatalf("off still logged: %q", buf.String())
	}
}
