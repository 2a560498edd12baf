package httpapi

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"aigated/internal/backend"
	"aigated/pkg/types"
)

// readUpload extracts the payload from a multipart "file" field, or the raw
// body when the request is not multipart. Size is capped either way.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(strings.ToLower(ct), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid multipart body")
			return nil, false
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "missing file field")
			return nil, false
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxBodyBytes))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "failed to read upload")
			return nil, false
		}
		return data, true
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read body")
		return nil, false
	}
	return data, true
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	audio, ok := readUpload(w, r)
	if !ok {
		return
	}
	if len(audio) == 0 {
		writeJSONError(w, http.StatusBadRequest, "audio payload is required")
		return
	}
	model := r.URL.Query().Get("model")
	language := r.URL.Query().Get("language")

	start := time.Now()
	var resp types.TranscribeResponse
	done := s.dispatch(w, r, types.CapTranscribe, model, func(ctx context.Context, rt backend.Runtime) error {
		tr, good := rt.(backend.Transcriber)
		if !good {
			return errRuntimeMismatch("transcribe")
		}
		var err error
		resp, err = tr.Transcribe(ctx, audio, language)
		return err
	})
	if !done {
		return
	}
	logRequest(r, "transcribe", start)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req types.EmbeddingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Texts) == 0 {
		writeJSONError(w, http.StatusBadRequest, "texts are required")
		return
	}
	normalize := true
	if req.Normalize != nil {
		normalize = *req.Normalize
	}
	model := r.URL.Query().Get("model")

	start := time.Now()
	var vectors [][]float32
	done := s.dispatch(w, r, types.CapEmbed, model, func(ctx context.Context, rt backend.Runtime) error {
		emb, good := rt.(backend.Embedder)
		if !good {
			return errRuntimeMismatch("embed")
		}
		var err error
		vectors, err = emb.Encode(ctx, req.Texts, normalize)
		return err
	})
	if !done {
		return
	}
	dims := 0
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}
	logRequest(r, "embeddings", start)
	writeJSON(w, http.StatusOK, types.EmbeddingsResponse{
		Embeddings: vectors,
		Model:      s.resolvedModelID(types.CapEmbed, model),
		Dimensions: dims,
	})
}

func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	image, ok := readUpload(w, r)
	if !ok {
		return
	}
	if len(image) == 0 {
		writeJSONError(w, http.StatusBadRequest, "image payload is required")
		return
	}
	model := r.URL.Query().Get("model")

	start := time.Now()
	var resp types.OCRResponse
	done := s.dispatch(w, r, types.CapOCR, model, func(ctx context.Context, rt backend.Runtime) error {
		rec, good := rt.(backend.Recognizer)
		if !good {
			return errRuntimeMismatch("ocr")
		}
		var err error
		resp, err = rec.Recognize(ctx, image)
		return err
	})
	if !done {
		return
	}
	logRequest(r, "ocr", start)
	writeJSON(w, http.StatusOK, resp)
}
