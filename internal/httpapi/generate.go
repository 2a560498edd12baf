package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"aigated/internal/backend"
	"aigated/pkg/types"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		writeJSONError(w, http.StatusBadRequest, "messages are required")
		return
	}
	for _, m := range req.Messages {
		if strings.TrimSpace(m.Content) == "" {
			writeJSONError(w, http.StatusBadRequest, "message content must not be empty")
			return
		}
	}

	start := time.Now()
	var resp types.ChatResponse
	ok := s.dispatch(w, r, types.CapGenerate, req.Model, func(ctx context.Context, rt backend.Runtime) error {
		gen, good := rt.(backend.Generator)
		if !good {
			return errRuntimeMismatch("generate")
		}
		reply, usage, err := gen.Chat(ctx, req.Messages, req.MaxTokens, req.Temperature)
		if err != nil {
			return err
		}
		resp = types.ChatResponse{
			Message: types.ChatMessage{Role: "assistant", Content: reply},
			Usage:   usage,
		}
		return nil
	})
	if !ok {
		return
	}
	resp.Model = s.resolvedModelID(types.CapGenerate, req.Model)
	logRequest(r, "chat", start)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	var req types.CompletionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	start := time.Now()
	var resp types.CompletionResponse
	ok := s.dispatch(w, r, types.CapGenerate, req.Model, func(ctx context.Context, rt backend.Runtime) error {
		gen, good := rt.(backend.Generator)
		if !good {
			return errRuntimeMismatch("generate")
		}
		text, usage, err := gen.Complete(ctx, req.Prompt, req.MaxTokens, req.Temperature)
		if err != nil {
			return err
		}
		resp = types.CompletionResponse{Text: text, Usage: usage}
		return nil
	})
	if !ok {
		return
	}
	resp.Model = s.resolvedModelID(types.CapGenerate, req.Model)
	logRequest(r, "completion", start)
	writeJSON(w, http.StatusOK, resp)
}

// resolvedModelID reports which model actually served the request.
func (s *Server) resolvedModelID(c types.Capability, requested string) string {
	if requested != "" {
		return requested
	}
	id, _ := s.d.Manager().DefaultModel(c)
	return id
}

// logRequest emits one structured line per completed inference request.
func logRequest(r *http.Request, op string, start time.Time) {
	if zlog == nil || requestLogLevel(r) < LevelInfo {
		return
	}
	z := zlog.Info().Str("op", op).Dur("dur", time.Since(start))
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	z.Msg("request served")
}
