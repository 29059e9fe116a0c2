package types

// PromptRequest is the payload of POST /v1/prompt.
type PromptRequest struct {
	// Template identifier (built-in or custom).
	// example: risk-analysis
	TemplateID string `json:"template_id" example:"risk-analysis"`
	// Number of images the prompt refers to.
	// example: 3
	ImageCount int `json:"image_count" example:"3"`
	// Execution mode the prompt is shaped for; defaults to clipboard.
	// example: local
	Mode Mode `json:"mode,omitempty" example:"local"`
	// Values for declared template variables.
	Inputs map[string]string `json:"inputs,omitempty"`
	// Optional OCR text used instead of images.
	PortfolioText string `json:"portfolio_text,omitempty"`
}

// PromptResponse is returned by POST /v1/prompt.
type PromptResponse struct {
	Prompt         string `json:"prompt"`
	WordCount      int    `json:"word_count"`
	EstimateTokens int    `json:"estimated_tokens"`
}

// AnalyzeRequest is the payload of POST /v1/analyze.
type AnalyzeRequest struct {
	// Prompt text, at most 10,000 characters.
	Prompt string `json:"prompt"`
	// Images as base64 strings or data URIs, at most 10.
	Images []string `json:"images,omitempty"`
}

// StatusResponse is returned by GET /v1/status.
type StatusResponse struct {
	IsProcessing bool                `json:"is_processing"`
	Progress     *GenerationProgress `json:"progress"`
	Mode         Mode                `json:"mode"`
	AppState     string              `json:"app_state"`
}

// LifecycleRequest reports an app lifecycle transition.
type LifecycleRequest struct {
	// example: background
	State string `json:"state" example:"background"`
}

// TemplatesResponse wraps the templates returned by GET /v1/templates.
type TemplatesResponse struct {
	Templates []Template `json:"templates"`
}

// ModelsResponse wraps the list of models returned by GET /v1/models.
type ModelsResponse struct {
	Supported []ModelReference `json:"supported"`
	Installed []InstalledModel `json:"installed"`
}

// AnalysesResponse wraps history entries.
type AnalysesResponse struct {
	Analyses []Analysis `json:"analyses"`
	Tags     []string   `json:"tags"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message shown to the user.
	// example: 프롬프트가 비어 있습니다
	Error string `json:"error"`
	// Machine-readable error kind.
	// example: invalid_input
	Kind string `json:"kind,omitempty" example:"invalid_input"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// AnalysisPatch is the payload of PATCH /v1/analyses/{id}. Nil fields are
// left unchanged.
type AnalysisPatch struct {
	UserNote   *string   `json:"user_note,omitempty"`
	Tags       *[]string `json:"tags,omitempty"`
	AIResponse *string   `json:"ai_response,omitempty"`
}
