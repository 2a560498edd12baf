// Package backend defines the boundary between the gateway and its
// inference engines. The gateway treats every engine as an opaque
// capability: it loads a Runtime, invokes it, and closes it on eviction.
package backend

import (
	"context"

	"aigated/pkg/types"
)

// Engine materializes models for one capability.
type Engine interface {
	Capability() types.Capability
	// Load brings the model into memory. It may be slow; implementations
	// must honor ctx cancellation and must be safe to call concurrently
	// for different models.
	Load(ctx context.Context, mdl types.Model) (Runtime, error)
}

// Runtime is a loaded model. Close releases its memory.
type Runtime interface {
	Close() error
}

// Generator serves text generation (chat and completion).
type Generator interface {
	Runtime
	Chat(ctx context.Context, messages []types.ChatMessage, maxTokens int, temperature float64) (string, types.Usage, error)
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, types.Usage, error)
}

// Transcriber serves speech-to-text.
type Transcriber interface {
	Runtime
	Transcribe(ctx context.Context, audio []byte, language string) (types.TranscribeResponse, error)
}

// Embedder encodes texts into vectors, one per input, in input order.
type Embedder interface {
	Runtime
	Encode(ctx context.Context, texts []string, normalize bool) ([][]float32, error)
}

// Recognizer serves OCR on image payloads.
type Recognizer interface {
	Runtime
	Recognize(ctx context.Context, image []byte) (types.OCRResponse, error)
}

// Classifier serves zero-shot text classification.
type Classifier interface {
	Runtime
	Classify(ctx context.Context, text string, categories []string, multiLabel bool) (types.ClassifyResponse, error)
}

// SentimentAnalyzer labels text polarity.
type SentimentAnalyzer interface {
	Runtime
	Sentiment(ctx context.Context, text, language string) (types.SentimentResponse, error)
}

// EntityExtractor extracts named entities in document order.
type EntityExtractor interface {
	Runtime
	Entities(ctx context.Context, text string, entityTypes []string) (types.EntitiesResponse, error)
}

// Summarizer produces a bounded-length summary.
type Summarizer interface {
	Runtime
	Summarize(ctx context.Context, text string, maxLength int) (types.SummarizeResponse, error)
}

// Translator translates between two languages.
type Translator interface {
	Runtime
	Translate(ctx context.Context, text, sourceLang, targetLang string) (types.TranslateResponse, error)
}
