package httpapi

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"aigated/internal/backend"
	"aigated/pkg/types"
)

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req types.ClassifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return
	}
	if len(req.Categories) == 0 {
		writeJSONError(w, http.StatusBadRequest, "categories are required")
		return
	}

	start := time.Now()
	var resp types.ClassifyResponse
	done := s.dispatch(w, r, types.CapBusiness, r.URL.Query().Get("model"), func(ctx context.Context, rt backend.Runtime) error {
		cl, good := rt.(backend.Classifier)
		if !good {
			return errRuntimeMismatch("classify")
		}
		var err error
		resp, err = cl.Classify(ctx, req.Text, req.Categories, req.MultiLabel)
		return err
	})
	if !done {
		return
	}
	logRequest(r, "classify", start)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	var req types.SentimentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return
	}

	start := time.Now()
	var resp types.SentimentResponse
	done := s.dispatch(w, r, types.CapBusiness, r.URL.Query().Get("model"), func(ctx context.Context, rt backend.Runtime) error {
		sa, good := rt.(backend.SentimentAnalyzer)
		if !good {
			return errRuntimeMismatch("sentiment")
		}
		var err error
		resp, err = sa.Sentiment(ctx, req.Text, req.Language)
		return err
	})
	if !done {
		return
	}
	logRequest(r, "sentiment", start)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	var req types.EntitiesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return
	}

	start := time.Now()
	var resp types.EntitiesResponse
	done := s.dispatch(w, r, types.CapBusiness, r.URL.Query().Get("model"), func(ctx context.Context, rt backend.Runtime) error {
		ex, good := rt.(backend.EntityExtractor)
		if !good {
			return errRuntimeMismatch("entities")
		}
		var err error
		resp, err = ex.Entities(ctx, req.Text, req.EntityTypes)
		return err
	})
	if !done {
		return
	}
	logRequest(r, "entities", start)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req types.SummarizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return
	}

	start := time.Now()
	var resp types.SummarizeResponse
	done := s.dispatch(w, r, types.CapBusiness, r.URL.Query().Get("model"), func(ctx context.Context, rt backend.Runtime) error {
		su, good := rt.(backend.Summarizer)
		if !good {
			return errRuntimeMismatch("summarize")
		}
		var err error
		resp, err = su.Summarize(ctx, req.Text, req.MaxLength)
		return err
	})
	if !done {
		return
	}
	logRequest(r, "summarize", start)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req types.TranslateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.SourceLang == "" || req.TargetLang == "" {
		writeJSONError(w, http.StatusBadRequest, "source_lang and target_lang are required")
		return
	}

	start := time.Now()
	var resp types.TranslateResponse
	done := s.dispatch(w, r, types.CapBusiness, r.URL.Query().Get("model"), func(ctx context.Context, rt backend.Runtime) error {
		tr, good := rt.(backend.Translator)
		if !good {
			return errRuntimeMismatch("translate")
		}
		var err error
		resp, err = tr.Translate(ctx, req.Text, req.SourceLang, req.TargetLang)
		return err
	})
	if !done {
		return
	}
	logRequest(r, "translate", start)
	writeJSON(w, http.StatusOK, resp)
}

// handleComprehensive runs sentiment, entity and summary analysis in one
// call. Sub-analyses run concurrently against the same model slot; a failed
// sub-analysis is reported by name instead of failing the whole response.
func (s *Server) handleComprehensive(w http.ResponseWriter, r *http.Request) {
	var req types.ComprehensiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return
	}
	include := func(p *bool) bool { return p == nil || *p }

	start := time.Now()
	resp := types.ComprehensiveResponse{Statistics: textStats(req.Text)}
	done := s.dispatch(w, r, types.CapBusiness, r.URL.Query().Get("model"), func(ctx context.Context, rt backend.Runtime) error {
		var mu sync.Mutex
		fail := func(name string, err error) {
			mu.Lock()
			if resp.Errors == nil {
				resp.Errors = make(map[string]string)
			}
			resp.Errors[name] = err.Error()
			mu.Unlock()
		}

		g, gctx := errgroup.WithContext(ctx)
		if include(req.IncludeSentiment) {
			g.Go(func() error {
				sa, good := rt.(backend.SentimentAnalyzer)
				if !good {
					fail("sentiment", errRuntimeMismatch("sentiment"))
					return nil
				}
				out, err := sa.Sentiment(gctx, req.Text, "")
				if err != nil {
					fail("sentiment", err)
					return nil
				}
				mu.Lock()
				resp.Sentiment = &out
				mu.Unlock()
				return nil
			})
		}
		if include(req.IncludeEntities) {
			g.Go(func() error {
				ex, good := rt.(backend.EntityExtractor)
				if !good {
					fail("entities", errRuntimeMismatch("entities"))
					return nil
				}
				out, err := ex.Entities(gctx, req.Text, nil)
				if err != nil {
					fail("entities", err)
					return nil
				}
				mu.Lock()
				resp.Entities = &out
				mu.Unlock()
				return nil
			})
		}
		if include(req.IncludeSummary) {
			g.Go(func() error {
				su, good := rt.(backend.Summarizer)
				if !good {
					fail("summary", errRuntimeMismatch("summarize"))
					return nil
				}
				out, err := su.Summarize(gctx, req.Text, req.SummaryLength)
				if err != nil {
					fail("summary", err)
					return nil
				}
				mu.Lock()
				resp.Summary = &out
				mu.Unlock()
				return nil
			})
		}
		return g.Wait()
	})
	if !done {
		return
	}
	logRequest(r, "comprehensive", start)
	writeJSON(w, http.StatusOK, resp)
}

func textStats(text string) types.TextStatistics {
	sentences := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			sentences++
		}
	}
	if sentences == 0 && len(strings.TrimSpace(text)) > 0 {
		sentences = 1
	}
	return types.TextStatistics{
		Words:     len(strings.Fields(text)),
		Chars:     len([]rune(text)),
		Sentences: sentences,
	}
}

// businessServices are the analysis endpoints reported by /business/health.
var businessServices = []string{"classify", "sentiment", "entities", "summarize", "translate"}

// handleBusinessHealth reports per-service readiness. Authenticated, but
// deliberately does not consume rate-limit quota.
func (s *Server) handleBusinessHealth(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r, types.CapBusiness) {
		return
	}

	modelID, enabled := s.d.Manager().DefaultModel(types.CapBusiness)
	status := "available"
	if enabled {
		for _, slot := range s.d.Manager().Status().Slots {
			if slot.ModelID == modelID && slot.State == "ready" {
				status = "ready"
			}
		}
	} else {
		status = "disabled"
	}

	resp := types.BusinessHealthResponse{
		Services: make(map[string]types.ServiceHealth, len(businessServices)),
		Overall:  "healthy",
	}
	if !enabled {
		resp.Overall = "degraded"
	}
	for _, name := range businessServices {
		resp.Services[name] = types.ServiceHealth{
			Enabled: enabled,
			Status:  status,
			Model:   modelID,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
