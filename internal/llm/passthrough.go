package llm

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"

	"promptstock/pkg/types"
)

// PassthroughModelID is reported as the model identifier in clipboard mode.
const PassthroughModelID = "clipboard"

// ClipboardWriter places text on a clipboard.
type ClipboardWriter interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return errors.New("no clipboard utility available on this system")
	}
	return clipboard.WriteAll(text)
}

// PassthroughClient hands the prompt to an external assistant by copying it
// to the clipboard. It never touches images or a model.
type PassthroughClient struct {
	clip   ClipboardWriter
	limits Limits
	log    zerolog.Logger
	pub    EventPublisher

	mu    sync.Mutex
	ready bool
}

// NewPassthroughClient constructs a ready clipboard client. Model options are
// ignored; only Clipboard, Limits, Logger and Publisher are read.
func NewPassthroughClient(opts Options) *PassthroughClient {
	clip := opts.Clipboard
	if clip == nil {
		clip = SystemClipboard{}
	}
	pub := opts.Publisher
	if pub == nil {
		pub = noopPublisher{}
	}
	return &PassthroughClient{
		clip:   clip,
		limits: opts.Limits.withDefaults(),
		log:    loggerOr(opts.Logger).With().Str("mode", string(types.ModePassthrough)).Logger(),
		pub:    pub,
		ready:  true,
	}
}

func (c *PassthroughClient) Initialize(ctx context.Context) error {
	c.mu.Lock()
	already := c.ready
	c.ready = true
	c.mu.Unlock()
	if already {
		c.log.Warn().Msg("initialize called on a ready client; ignoring")
	}
	return nil
}

func (c *PassthroughClient) Generate(ctx context.Context, prompt string, images []string) (res types.GenerationResult, err error) {
	start := time.Now()
	defer func() { observe(string(types.ModePassthrough), "generate", start, err) }()

	if err := c.limits.validate(prompt, len(images)); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, ErrCanceled()
	}
	if err := c.clip.WriteAll(prompt); err != nil {
		c.log.Warn().Err(err).Msg("clipboard write failed")
		return res, errClipboard(err)
	}
	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()

	elapsed := time.Since(start).Milliseconds()
	c.log.Info().Int("chars", utf8.RuneCountInString(prompt)).Int("images", len(images)).Msg("prompt copied to clipboard")
	c.pub.Publish(Event{Name: "prompt_copied", Mode: string(types.ModePassthrough), Fields: map[string]any{"images": len(images)}})
	return types.GenerationResult{ElapsedMs: elapsed, ModelIdentifier: PassthroughModelID}, nil
}

// Cancel is a no-op; a clipboard write cannot be interrupted.
func (c *PassthroughClient) Cancel() {}

func (c *PassthroughClient) Cleanup() {
	c.mu.Lock()
	c.ready = false
	c.mu.Unlock()
}

func (c *PassthroughClient) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}
