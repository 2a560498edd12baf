package backend

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"aigated/pkg/types"
)

// SimEngine is the built-in engine: it verifies the model file exists,
// simulates load cost, and returns a deterministic in-process runtime.
// It stands in for the real native backends, whose numerical behavior is
// out of scope for the gateway.
type SimEngine struct {
	capability types.Capability

	mu        sync.Mutex
	loadDelay time.Duration
	nextErr   error
	loads     int
}

func NewSimEngine(capability types.Capability) *SimEngine {
	return &SimEngine{capability: capability, loadDelay: 10 * time.Millisecond}
}

func (e *SimEngine) Capability() types.Capability { return e.capability }

// SetLoadDelay overrides the simulated load duration.
func (e *SimEngine) SetLoadDelay(d time.Duration) {
	e.mu.Lock()
	e.loadDelay = d
	e.mu.Unlock()
}

// FailNextLoad injects a one-shot load failure.
func (e *SimEngine) FailNextLoad(err error) {
	e.mu.Lock()
	e.nextErr = err
	e.mu.Unlock()
}

// Loads reports how many Load calls completed the slow path.
func (e *SimEngine) Loads() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loads
}

func (e *SimEngine) Load(ctx context.Context, mdl types.Model) (Runtime, error) {
	e.mu.Lock()
	delay := e.loadDelay
	injected := e.nextErr
	e.nextErr = nil
	e.loads++
	e.mu.Unlock()

	if injected != nil {
		return nil, injected
	}
	if _, err := os.Stat(mdl.Path); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &simRuntime{model: mdl}, nil
}

// simRuntime implements every capability interface; the gateway only sees
// the one matching the slot's capability.
type simRuntime struct {
	model  types.Model
	mu     sync.Mutex
	closed bool
}

func (r *simRuntime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *simRuntime) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("runtime closed: %s", r.model.ID)
	}
	return nil
}

func (r *simRuntime) Chat(ctx context.Context, messages []types.ChatMessage, maxTokens int, _ float64) (string, types.Usage, error) {
	if err := r.check(ctx); err != nil {
		return "", types.Usage{}, err
	}
	var last string
	for _, m := range messages {
		if m.Role == "user" {
			last = m.Content
		}
	}
	reply := truncateWords(fmt.Sprintf("Considering your question about %q, the short answer is yes.", firstWords(last, 6)), maxTokens)
	usage := usageFor(joinContents(messages), reply)
	return reply, usage, nil
}

func (r *simRuntime) Complete(ctx context.Context, prompt string, maxTokens int, _ float64) (string, types.Usage, error) {
	if err := r.check(ctx); err != nil {
		return "", types.Usage{}, err
	}
	text := truncateWords(prompt+" and that is how the story continues.", maxTokens)
	return text, usageFor(prompt, text), nil
}

func (r *simRuntime) Transcribe(ctx context.Context, audio []byte, language string) (types.TranscribeResponse, error) {
	if err := r.check(ctx); err != nil {
		return types.TranscribeResponse{}, err
	}
	if language == "" {
		language = "es"
	}
	// One "second" of speech per 16KB of audio, floor of one.
	dur := float64(len(audio)) / (16 * 1024)
	if dur < 1 {
		dur = 1
	}
	return types.TranscribeResponse{
		Text:        fmt.Sprintf("transcript of %d bytes of audio", len(audio)),
		Language:    language,
		DurationSec: math.Round(dur*100) / 100,
		Model:       r.model.ID,
	}, nil
}

const embeddingDims = 16

func (r *simRuntime) Encode(ctx context.Context, texts []string, normalize bool) ([][]float32, error) {
	if err := r.check(ctx); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = embedText(t, normalize)
	}
	return out, nil
}

func (r *simRuntime) Recognize(ctx context.Context, image []byte) (types.OCRResponse, error) {
	if err := r.check(ctx); err != nil {
		return types.OCRResponse{}, err
	}
	text := fmt.Sprintf("recognized text from %d byte image", len(image))
	return types.OCRResponse{
		Text:   text,
		Blocks: []types.OCRBlock{{Text: text, Confidence: 0.92}},
		Model:  r.model.ID,
	}, nil
}

func (r *simRuntime) Classify(ctx context.Context, text string, categories []string, multiLabel bool) (types.ClassifyResponse, error) {
	if err := r.check(ctx); err != nil {
		return types.ClassifyResponse{}, err
	}
	lower := strings.ToLower(text)
	type scored struct {
		label string
		score float64
	}
	scores := make([]scored, len(categories))
	total := 0.0
	for i, c := range categories {
		s := 1.0 + float64(strings.Count(lower, strings.ToLower(c)))
		scores[i] = scored{label: c, score: s}
		total += s
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	resp := types.ClassifyResponse{}
	for _, s := range scores {
		resp.Labels = append(resp.Labels, s.label)
		resp.Scores = append(resp.Scores, round4(s.score/total))
	}
	if len(resp.Labels) > 0 {
		resp.TopCategory = resp.Labels[0]
		resp.Confidence = resp.Scores[0]
	}
	_ = multiLabel
	return resp, nil
}

var positiveWords = []string{"good", "great", "excellent", "love", "happy", "bueno", "excelente", "feliz"}
var negativeWords = []string{"bad", "terrible", "awful", "hate", "angry", "malo", "terrible", "enojado", "broken", "not"}

func (r *simRuntime) Sentiment(ctx context.Context, text, _ string) (types.SentimentResponse, error) {
	if err := r.check(ctx); err != nil {
		return types.SentimentResponse{}, err
	}
	lower := strings.ToLower(text)
	pos, neg := 0, 0
	for _, w := range positiveWords {
		pos += strings.Count(lower, w)
	}
	for _, w := range negativeWords {
		neg += strings.Count(lower, w)
	}
	switch {
	case pos > neg:
		return types.SentimentResponse{Sentiment: "positive", Score: round4(float64(pos+1) / float64(pos+neg+2))}, nil
	case neg > pos:
		return types.SentimentResponse{Sentiment: "negative", Score: round4(float64(neg+1) / float64(pos+neg+2))}, nil
	default:
		return types.SentimentResponse{Sentiment: "neutral", Score: 0.5}, nil
	}
}

func (r *simRuntime) Entities(ctx context.Context, text string, entityTypes []string) (types.EntitiesResponse, error) {
	if err := r.check(ctx); err != nil {
		return types.EntitiesResponse{}, err
	}
	wanted := make(map[string]bool, len(entityTypes))
	for _, t := range entityTypes {
		wanted[strings.ToUpper(t)] = true
	}
	var resp types.EntitiesResponse
	offset := 0
	for _, tok := range strings.Fields(text) {
		start := strings.Index(text[offset:], tok) + offset
		offset = start + len(tok)
		clean := strings.TrimFunc(tok, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if clean == "" || !unicode.IsUpper([]rune(clean)[0]) || start == 0 {
			continue
		}
		typ := "MISC"
		if wanted["MISC"] || len(wanted) == 0 {
			resp.Entities = append(resp.Entities, types.Entity{
				Text:  clean,
				Type:  typ,
				Start: start,
				End:   start + len(clean),
			})
		}
	}
	return resp, nil
}

func (r *simRuntime) Summarize(ctx context.Context, text string, maxLength int) (types.SummarizeResponse, error) {
	if err := r.check(ctx); err != nil {
		return types.SummarizeResponse{}, err
	}
	if maxLength <= 0 {
		maxLength = 150
	}
	var b strings.Builder
	for _, sentence := range strings.SplitAfter(text, ". ") {
		if b.Len()+len(sentence) > maxLength && b.Len() > 0 {
			break
		}
		b.WriteString(sentence)
		if b.Len() >= maxLength {
			break
		}
	}
	summary := strings.TrimSpace(b.String())
	if len(summary) > maxLength {
		summary = summary[:maxLength]
	}
	return types.SummarizeResponse{
		Summary:        summary,
		OriginalLength: len(text),
		SummaryLength:  len(summary),
	}, nil
}

var esEN = map[string]string{
	"hola": "hello", "mundo": "world", "gracias": "thanks",
	"adiós": "goodbye", "sí": "yes", "no": "no",
}

func (r *simRuntime) Translate(ctx context.Context, text, sourceLang, targetLang string) (types.TranslateResponse, error) {
	if err := r.check(ctx); err != nil {
		return types.TranslateResponse{}, err
	}
	words := strings.Fields(text)
	for i, w := range words {
		if tr, ok := esEN[strings.ToLower(w)]; ok && sourceLang == "es" && targetLang == "en" {
			words[i] = tr
		}
	}
	return types.TranslateResponse{
		TranslatedText: strings.Join(words, " "),
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
	}, nil
}

func embedText(s string, normalize bool) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	x := h.Sum64()
	vec := make([]float32, embeddingDims)
	var norm float64
	for i := range vec {
		x = x*6364136223846793005 + 1442695040888963407
		v := float32(int64(x>>33)) / float32(1<<31)
		vec[i] = v
		norm += float64(v) * float64(v)
	}
	if normalize && norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

func joinContents(messages []types.ChatMessage) string {
	parts := make([]string, len(messages))
	for i, m := range messages {
		parts[i] = m.Content
	}
	return strings.Join(parts, " ")
}

func usageFor(prompt, completion string) types.Usage {
	p := len(strings.Fields(prompt))
	c := len(strings.Fields(completion))
	return types.Usage{PromptTokens: p, CompletionTokens: c, TotalTokens: p + c}
}

func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}

func truncateWords(s string, maxTokens int) string {
	if maxTokens <= 0 {
		return s
	}
	fields := strings.Fields(s)
	if len(fields) > maxTokens {
		fields = fields[:maxTokens]
	}
	return strings.Join(fields, " ")
}

func round4(f float64) float64 { return math.Round(f*10000) / 10000 }
