package types

// ChatMessage is a single turn in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the payload for POST /generate/chat.
type ChatRequest struct {
	// Optional model identifier. If empty, the default generate model is used.
	Model       string        `json:"model,omitempty"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// ChatResponse carries the assistant reply for POST /generate/chat.
type ChatResponse struct {
	Model   string      `json:"model"`
	Message ChatMessage `json:"message"`
	Usage   Usage       `json:"usage"`
}

// CompletionRequest is the payload for POST /generate/completion.
type CompletionRequest struct {
	Model       string  `json:"model,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// CompletionResponse carries the completion text.
type CompletionResponse struct {
	Model string `json:"model"`
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}

// Usage contains token accounting for a generation call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// TranscribeResponse is returned by POST /transcribe/.
type TranscribeResponse struct {
	Text        string  `json:"text"`
	Language    string  `json:"language"`
	DurationSec float64 `json:"duration_sec"`
	Model       string  `json:"model"`
}

// EmbeddingsRequest is the payload for POST /embeddings/.
type EmbeddingsRequest struct {
	Texts     []string `json:"texts"`
	Normalize *bool    `json:"normalize,omitempty"`
}

// EmbeddingsResponse returns one vector per input text, in input order.
type EmbeddingsResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Model      string      `json:"model"`
	Dimensions int         `json:"dimensions"`
}

// OCRBlock is one recognized text region.
type OCRBlock struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// OCRResponse is returned by POST /ocr/recognize.
type OCRResponse struct {
	Text   string     `json:"text"`
	Blocks []OCRBlock `json:"blocks"`
	Model  string     `json:"model"`
}

// ClassifyRequest is the payload for POST /business/classify.
type ClassifyRequest struct {
	Text       string   `json:"text"`
	Categories []string `json:"categories"`
	MultiLabel bool     `json:"multi_label,omitempty"`
}

// ClassifyResponse carries per-category scores, best first.
type ClassifyResponse struct {
	Labels      []string  `json:"labels"`
	Scores      []float64 `json:"scores"`
	TopCategory string    `json:"top_category"`
	Confidence  float64   `json:"confidence"`
}

// SentimentRequest is the payload for POST /business/sentiment.
type SentimentRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// SentimentResponse labels the text positive, negative or neutral.
type SentimentResponse struct {
	Sentiment string  `json:"sentiment"`
	Score     float64 `json:"score"`
}

// EntitiesRequest is the payload for POST /business/entities.
type EntitiesRequest struct {
	Text        string   `json:"text"`
	EntityTypes []string `json:"entity_types,omitempty"`
}

// Entity is one extracted named entity.
type Entity struct {
	Text  string `json:"text"`
	Type  string `json:"type"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// EntitiesResponse lists extracted entities in document order.
type EntitiesResponse struct {
	Entities []Entity `json:"entities"`
}

// SummarizeRequest is the payload for POST /business/summarize.
type SummarizeRequest struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length,omitempty"`
}

// SummarizeResponse carries the summary and size accounting.
type SummarizeResponse struct {
	Summary        string `json:"summary"`
	OriginalLength int    `json:"original_length"`
	SummaryLength  int    `json:"summary_length"`
}

// TranslateRequest is the payload for POST /business/translate.
type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// TranslateResponse carries the translated text.
type TranslateResponse struct {
	TranslatedText string `json:"translated_text"`
	SourceLang     string `json:"source_lang"`
	TargetLang     string `json:"target_lang"`
}

// ComprehensiveRequest is the payload for POST /business/analyze/comprehensive.
type ComprehensiveRequest struct {
	Text             string `json:"text"`
	IncludeSentiment *bool  `json:"include_sentiment,omitempty"`
	IncludeEntities  *bool  `json:"include_entities,omitempty"`
	IncludeSummary   *bool  `json:"include_summary,omitempty"`
	SummaryLength    int    `json:"summary_length,omitempty"`
}

// TextStatistics summarizes surface features of the analyzed text.
type TextStatistics struct {
	Words     int `json:"words"`
	Chars     int `json:"characters"`
	Sentences int `json:"sentences"`
}

// ComprehensiveResponse combines several sub-analyses. A failed sub-analysis
// is reported by name in Errors instead of failing the whole call.
type ComprehensiveResponse struct {
	Sentiment  *SentimentResponse `json:"sentiment,omitempty"`
	Entities   *EntitiesResponse  `json:"entities,omitempty"`
	Summary    *SummarizeResponse `json:"summary,omitempty"`
	Errors     map[string]string  `json:"errors,omitempty"`
	Statistics TextStatistics     `json:"statistics"`
}

// ServiceHealth reports the readiness of one business backend.
type ServiceHealth struct {
	Enabled bool   `json:"enabled"`
	Status  string `json:"status"`
	Model   string `json:"model,omitempty"`
}

// BusinessHealthResponse is returned by GET /business/health.
type BusinessHealthResponse struct {
	Services map[string]ServiceHealth `json:"services"`
	Overall  string                   `json:"overall"`
}

// CreateKeyRequest is the admin payload for creating an API key.
type CreateKeyRequest struct {
	Owner         string   `json:"owner"`
	Capabilities  []string `json:"capabilities"`
	RateLimit     int      `json:"rate_limit,omitempty"`
	WindowSeconds int      `json:"window_seconds,omitempty"`
}

// CreateKeyResponse returns the raw key exactly once; it is never
// retrievable again.
type CreateKeyResponse struct {
	ID           string   `json:"id"`
	Key          string   `json:"key"`
	KeyPrefix    string   `json:"key_prefix"`
	Owner        string   `json:"owner"`
	Capabilities []string `json:"capabilities"`
}

// KeyInfo is the admin-visible view of a key record (no digest, no raw key).
type KeyInfo struct {
	ID            string   `json:"id"`
	KeyPrefix     string   `json:"key_prefix"`
	Owner         string   `json:"owner"`
	Capabilities  []string `json:"capabilities"`
	Status        string   `json:"status"`
	RateLimit     int      `json:"rate_limit"`
	WindowSeconds int      `json:"window_seconds"`
	UsageCount    int64    `json:"usage_count"`
	CreatedAtUnix int64    `json:"created_at_unix"`
	LastUsedUnix  int64    `json:"last_used_unix,omitempty"`
}

// ListKeysResponse wraps the admin key listing.
type ListKeysResponse struct {
	Keys []KeyInfo `json:"keys"`
}

// GenericResponse acknowledges an admin mutation.
type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
