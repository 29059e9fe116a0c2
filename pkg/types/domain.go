package types

import "time"

// Mode selects how a generated prompt is executed.
type Mode string

const (
	// ModePassthrough copies the prompt to the clipboard for a human to paste
	// into an external assistant.
	ModePassthrough Mode = "clipboard"
	// ModeOnDevice runs a local vision-language model.
	ModeOnDevice Mode = "local"
)

// Valid reports whether m is a known execution mode.
func (m Mode) Valid() bool {
	return m == ModePassthrough || m == ModeOnDevice
}

// Stage names a coarse phase of a long-running generation.
type Stage string

const (
	StageInitializing     Stage = "initializing"
	StageProcessingImages Stage = "processing-images"
	StageGenerating       Stage = "generating"
	StageCompleted        Stage = "completed"
)

// GenerationProgress is emitted while a client initializes or generates.
type GenerationProgress struct {
	// Current stage.
	// example: generating
	Stage Stage `json:"stage" example:"generating"`
	// Percent complete, 0-100.
	// example: 50
	Percent int `json:"percent" example:"50"`
	// Human-readable message for the stage.
	Message string `json:"message"`
}

// GenerationResult is returned once per request. Passthrough results always
// carry empty Text.
type GenerationResult struct {
	Text string `json:"text"`
	// Wall time of the generate call in milliseconds.
	// example: 8123
	ElapsedMs int64 `json:"elapsed_ms" example:"8123"`
	// Identifier of the model (or "clipboard") that produced the result.
	// example: qwen2.5-vl-7b-q4
	ModelIdentifier string `json:"model" example:"qwen2.5-vl-7b-q4"`
	// Completion tokens, when the runtime reports them.
	TokenCount int `json:"token_count,omitempty"`
}

// ModelFile describes one downloadable file of a model variant.
type ModelFile struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum,omitempty"`
}

// ModelReference identifies a model variant: a weights file plus the
// multimodal projector that enables image input.
type ModelReference struct {
	// Stable identifier.
	// example: qwen2.5-vl-7b-q4
	ID          string    `json:"id" example:"qwen2.5-vl-7b-q4"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	Weights     ModelFile `json:"weights"`
	Projector   ModelFile `json:"projector"`
	MinRAMGB    int       `json:"min_ram_gb,omitempty"`
	// Rough image processing time on a mid-range phone, seconds.
	AvgImageSeconds int `json:"avg_image_seconds,omitempty"`
}

// InstalledModel records where a model's files live on disk.
type InstalledModel struct {
	ModelID       string    `json:"model_id"`
	InstalledAt   time.Time `json:"installed_at"`
	Version       string    `json:"version,omitempty"`
	WeightsPath   string    `json:"weights_path"`
	ProjectorPath string    `json:"projector_path"`
	DiskUsage     int64     `json:"disk_usage"`
}

// TemplateCategory groups templates in the UI.
type TemplateCategory string

const (
	CategoryRisk      TemplateCategory = "risk"
	CategoryRebalance TemplateCategory = "rebalance"
	CategoryChecklist TemplateCategory = "checklist"
	CategorySector    TemplateCategory = "sector"
	CategoryProfit    TemplateCategory = "profit"
)

// TemplateVariable is a named placeholder ({{key}}) in a template body.
type TemplateVariable struct {
	Key          string   `json:"key"`
	Label        string   `json:"label"`
	Type         string   `json:"type"` // text | number | select
	Options      []string `json:"options,omitempty"`
	DefaultValue string   `json:"default_value,omitempty"`
}

// Template is an analysis template: a stable identifier plus a prompt body.
type Template struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Category       TemplateCategory   `json:"category"`
	Description    string             `json:"description,omitempty"`
	PromptTemplate string             `json:"prompt_template"`
	OutputFormat   string             `json:"output_format,omitempty"`
	Variables      []TemplateVariable `json:"variables,omitempty"`
	IsCustom       bool               `json:"is_custom"`
	CreatedAt      time.Time          `json:"created_at"`
	UsageCount     int                `json:"usage_count"`
}

// Analysis is a saved history entry.
type Analysis struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	TemplateID      string    `json:"template_id,omitempty"`
	TemplateName    string    `json:"template_name"`
	GeneratedPrompt string    `json:"generated_prompt"`
	Mode            Mode      `json:"mode,omitempty"`
	ImageCount      int       `json:"image_count"`
	Thumbnails      []string  `json:"thumbnails,omitempty"`
	UserNote        string    `json:"user_note,omitempty"`
	Tags            []string  `json:"tags"`
	AIResponse      string    `json:"ai_response,omitempty"`
	ModelIdentifier string    `json:"model,omitempty"`
	ElapsedMs       int64     `json:"elapsed_ms,omitempty"`
}

// LocalLLMConfig carries the on-device tuning knobs exposed in settings.
type LocalLLMConfig struct {
	ModelID     string  `json:"model_id" yaml:"model_id" toml:"model_id"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	Temperature float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
	ContextSize int     `json:"context_size" yaml:"context_size" toml:"context_size"`
}

// AppSettings is the persisted user settings blob.
type AppSettings struct {
	DefaultTemplateID string         `json:"default_template_id,omitempty"`
	ImageQuality      string         `json:"image_quality"` // low | medium | high
	Mode              Mode           `json:"mode"`
	Local             LocalLLMConfig `json:"local"`
	EnableHaptics     bool           `json:"enable_haptics"`
	AppVersion        string         `json:"app_version"`
}
