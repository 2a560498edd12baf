package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"aigated/internal/keys"
	"aigated/pkg/types"
)

func (s *Server) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r, types.CapAdmin) {
		return
	}
	var req types.CreateKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Owner) == "" {
		writeJSONError(w, http.StatusBadRequest, "owner is required")
		return
	}
	caps := make([]types.Capability, 0, len(req.Capabilities))
	for _, raw := range req.Capabilities {
		c, ok := types.ParseCapability(raw)
		if !ok {
			writeJSONError(w, http.StatusBadRequest, "unknown capability: "+raw)
			return
		}
		caps = append(caps, c)
	}
	if len(caps) == 0 {
		writeJSONError(w, http.StatusBadRequest, "at least one capability is required")
		return
	}

	pol := keys.Policy{
		Requests: req.RateLimit,
		Window:   time.Duration(req.WindowSeconds) * time.Second,
	}
	rec, raw, err := s.d.Keys().Create(r.Context(), req.Owner, caps, pol)
	if err != nil {
		writeError(w, err)
		return
	}
	info := rec.Info()
	writeJSON(w, http.StatusCreated, types.CreateKeyResponse{
		ID:           rec.ID,
		Key:          raw,
		KeyPrefix:    rec.Prefix,
		Owner:        rec.Owner,
		Capabilities: info.Capabilities,
	})
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r, types.CapAdmin) {
		return
	}
	recs, err := s.d.Keys().List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := types.ListKeysResponse{Keys: make([]types.KeyInfo, 0, len(recs))}
	for _, rec := range recs {
		resp.Keys = append(resp.Keys, rec.Info())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r, types.CapAdmin) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.d.Keys().Revoke(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.GenericResponse{Success: true, Message: "key revoked"})
}

func (s *Server) handleActivateKey(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r, types.CapAdmin) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.d.Keys().Activate(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.GenericResponse{Success: true, Message: "key activated"})
}
