package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"promptstock/internal/common/fsutil"
)

// ServerConfig configures the llama-server subprocess runtime.
type ServerConfig struct {
	// Bin is the llama-server executable. When empty, PATH is searched.
	Bin  string
	Host string
	// ExtraArgs are appended to every launch.
	ExtraArgs []string
	// PollInterval is the delay between /health probes while starting.
	PollInterval time.Duration

	Logger    *zerolog.Logger
	Publisher EventPublisher
}

// ServerEngine runs each Model in its own llama-server process and talks to
// it over the OpenAI-compatible HTTP API.
type ServerEngine struct {
	cfg  ServerConfig
	http *http.Client
	log  zerolog.Logger
	pub  EventPublisher
}

func NewServerEngine(cfg ServerConfig) *ServerEngine {
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = noopPublisher{}
	}
	// Timeout=0: every request carries a context deadline instead.
	return &ServerEngine{
		cfg:  cfg,
		http: &http.Client{Timeout: 0},
		log:  loggerOr(cfg.Logger).With().Str("engine", "llama-server").Logger(),
		pub:  pub,
	}
}

func (e *ServerEngine) Name() string { return "llama-server" }

func (e *ServerEngine) Load(ctx context.Context, weightsPath string, opts LoadOptions) (Model, error) {
	if strings.TrimSpace(weightsPath) == "" {
		return nil, errors.New("weights path is empty")
	}
	bin, err := e.binary()
	if err != nil {
		return nil, err
	}
	m := &serverModel{e: e, bin: bin, weights: weightsPath, opts: opts}
	if err := m.launch(ctx, ""); err != nil {
		return nil, err
	}
	return m, nil
}

func (e *ServerEngine) binary() (string, error) {
	if b := strings.TrimSpace(e.cfg.Bin); b != "" {
		return b, nil
	}
	for _, p := range serverBinCandidates {
		if fsutil.IsFile(p) {
			return p, nil
		}
	}
	if p, err := exec.LookPath("llama-server"); err == nil {
		return p, nil
	}
	return "", ErrDependencyUnavailable("llama-server not found in PATH")
}

// serverBinCandidates are checked before PATH.
var serverBinCandidates = []string{
	"/usr/local/bin/llama-server",
	"/opt/homebrew/bin/llama-server",
	"/opt/llama.cpp/build/bin/llama-server",
}

// serverModel is one llama-server process. AttachProjector relaunches it
// with --mmproj since the server loads projectors only at startup.
type serverModel struct {
	e       *ServerEngine
	bin     string
	weights string
	opts    LoadOptions

	mu        sync.Mutex
	cmd       *exec.Cmd
	waitCh    chan error
	baseURL   string
	reqCancel context.CancelFunc
	released  bool
}

func (m *serverModel) args(host string, port int, projector string) []string {
	args := []string{
		"-m", m.weights,
		"--host", host,
		"--port", strconv.Itoa(port),
		"-ngl", strconv.Itoa(m.opts.GPULayers),
	}
	if m.opts.ContextSize > 0 {
		args = append(args, "-c", strconv.Itoa(m.opts.ContextSize))
	}
	if m.opts.Seed != 0 {
		args = append(args, "--seed", strconv.Itoa(m.opts.Seed))
	}
	if m.opts.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(m.opts.Threads))
	}
	if projector != "" {
		args = append(args, "--mmproj", projector)
	}
	return append(args, m.e.cfg.ExtraArgs...)
}

// launch starts the process and blocks until /health answers, the process
// exits, or ctx ends.
func (m *serverModel) launch(ctx context.Context, projector string) error {
	host := m.e.cfg.Host
	port, err := pickFreePort(host)
	if err != nil {
		return err
	}
	baseURL := fmt.Sprintf("http://%s:%d", host, port)
	cmd := exec.Command(m.bin, m.args(host, port, projector)...)
	// stderr is kept in memory; its tail is included on failure.
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start llama-server: %w", err)
	}
	pid := cmd.Process.Pid
	m.e.log.Info().Int("pid", pid).Str("url", baseURL).Bool("projector", projector != "").Msg("llama-server started")
	m.e.pub.Publish(Event{Name: "spawn_start", Mode: modeLocal, Fields: map[string]any{"pid": pid, "port": port}})

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	m.mu.Lock()
	m.cmd, m.waitCh, m.baseURL = cmd, waitCh, baseURL
	m.mu.Unlock()

	for {
		select {
		case werr := <-waitCh:
			// Put it back so terminate does not block on a drained channel.
			waitCh <- werr
			tail := stderr.String()
			if len(tail) > 4096 {
				tail = tail[len(tail)-4096:]
			}
			m.e.pub.Publish(Event{Name: "spawn_exit", Mode: modeLocal, Fields: map[string]any{"pid": pid}})
			if werr == nil {
				return fmt.Errorf("llama-server exited before ready; stderr tail: %s", tail)
			}
			return fmt.Errorf("llama-server exited early: %v; stderr tail: %s", werr, tail)
		case <-ctx.Done():
			m.terminate()
			return ctx.Err()
		default:
		}
		if m.healthy(ctx, baseURL) {
			m.e.pub.Publish(Event{Name: "spawn_ready", Mode: modeLocal, Fields: map[string]any{"pid": pid, "url": baseURL}})
			return nil
		}
		select {
		case <-ctx.Done():
		case <-time.After(m.e.cfg.PollInterval):
		}
	}
}

func (m *serverModel) healthy(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := m.e.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// terminate sends SIGTERM, then kills after a grace period.
func (m *serverModel) terminate() {
	m.mu.Lock()
	cmd, waitCh := m.cmd, m.waitCh
	m.cmd, m.waitCh = nil, nil
	m.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-waitCh:
	case <-time.After(2 * time.Second):
		_ = cmd.Process.Kill()
		<-waitCh
	}
	m.e.pub.Publish(Event{Name: "spawn_stop", Mode: modeLocal, Fields: map[string]any{"pid": cmd.Process.Pid}})
}

func (m *serverModel) AttachProjector(ctx context.Context, projectorPath string) error {
	m.terminate()
	return m.launch(ctx, projectorPath)
}

type serverProps struct {
	Modalities struct {
		Vision bool `json:"vision"`
	} `json:"modalities"`
}

func (m *serverModel) Multimodal(ctx context.Context) (bool, error) {
	m.mu.Lock()
	baseURL := m.baseURL
	m.mu.Unlock()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/props", nil)
	if err != nil {
		return false, err
	}
	resp, err := m.e.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("llama-server /props: %s", resp.Status)
	}
	var props serverProps
	if err := json.NewDecoder(resp.Body).Decode(&props); err != nil {
		return false, fmt.Errorf("decode /props: %w", err)
	}
	return props.Modalities.Vision, nil
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string            `json:"role"`
	Content []chatContentPart `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	Seed        int           `json:"seed,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// buildChatRequest places every image before the text in one user turn.
func buildChatRequest(msg Message, s Sampling) chatRequest {
	parts := make([]chatContentPart, 0, len(msg.Images)+1)
	for _, img := range msg.Images {
		parts = append(parts, chatContentPart{Type: "image_url", ImageURL: &chatImageURL{URL: img}})
	}
	parts = append(parts, chatContentPart{Type: "text", Text: msg.Text})
	return chatRequest{
		Messages:    []chatMessage{{Role: "user", Content: parts}},
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
		Seed:        s.Seed,
		Stream:      true,
	}
}

func (m *serverModel) Complete(ctx context.Context, msg Message, s Sampling) (Completion, error) {
	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		return Completion{}, errors.New("model released")
	}
	baseURL := m.baseURL
	ctx, cancel := context.WithCancel(ctx)
	m.reqCancel = cancel
	m.mu.Unlock()
	defer cancel()

	body, err := json.Marshal(buildChatRequest(msg, s))
	if err != nil {
		return Completion{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Completion{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := m.e.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Completion{}, ctx.Err()
		}
		return Completion{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Completion{}, fmt.Errorf("llama-server http error: %s: %s", resp.Status, string(b))
	}
	return readChatStream(ctx, resp.Body)
}

// readChatStream accumulates an SSE stream of chat completion chunks.
func readChatStream(ctx context.Context, body io.Reader) (Completion, error) {
	var (
		out    strings.Builder
		tokens int
		usage  int
	)
	r := bufio.NewReader(body)
	for {
		line, err := r.ReadString('\n')
		if l := strings.TrimSpace(line); strings.HasPrefix(strings.ToLower(l), "data:") {
			data := strings.TrimSpace(l[len("data:"):])
			if data == "[DONE]" {
				break
			}
			var chunk chatStreamChunk
			if e := json.Unmarshal([]byte(data), &chunk); e == nil {
				if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
					out.WriteString(chunk.Choices[0].Delta.Content)
					tokens++
				}
				if chunk.Usage != nil && chunk.Usage.CompletionTokens > 0 {
					usage = chunk.Usage.CompletionTokens
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				return Completion{}, ctx.Err()
			}
			return Completion{}, err
		}
	}
	if usage > 0 {
		tokens = usage
	}
	return Completion{Text: out.String(), Tokens: tokens}, nil
}

func (m *serverModel) Stop() {
	m.mu.Lock()
	cancel := m.reqCancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (m *serverModel) Release() error {
	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		return nil
	}
	m.released = true
	m.mu.Unlock()
	m.Stop()
	m.terminate()
	return nil
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
