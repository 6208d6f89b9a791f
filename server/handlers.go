package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/neuraestate/propmatch/agent/contract"
	eventlogx "github.com/neuraestate/propmatch/agent/eventlog"
	statex "github.com/neuraestate/propmatch/agent/state"
)

type chatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

type exportResponse struct {
	SessionID string                `json:"session_id"`
	Turns     []statex.ExportedTurn `json:"turns"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleChat runs one turn. A missing session id starts a new session and
// the generated id comes back in the response.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	reply, err := s.orch.HandleTurn(r.Context(), sessionID, req.Message)
	if err != nil {
		if errors.Is(err, contractx.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Str("session_id", sessionID).Err(err).Msg("server: chat turn failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{SessionID: sessionID, Reply: reply})
}

func (s *Server) handleLead(w http.ResponseWriter, r *http.Request) {
	var sub eventlogx.LeadSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	event, err := s.events.SubmitLead(sub)
	if err != nil {
		if errors.Is(err, contractx.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("server: lead submission failed")
		writeError(w, http.StatusInternalServerError, "could not record lead")
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var sub eventlogx.FeedbackSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	event, err := s.events.SubmitFeedback(sub)
	if err != nil {
		if errors.Is(err, contractx.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("server: feedback submission failed")
		writeError(w, http.StatusInternalServerError, "could not record feedback")
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sessionID := trimPathParam(r, "sessionID")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}

	turns, err := s.orch.Export(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, statex.ErrStateNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Error().Str("session_id", sessionID).Err(err).Msg("server: export failed")
		writeError(w, http.StatusInternalServerError, "could not export session")
		return
	}

	writeJSON(w, http.StatusOK, exportResponse{SessionID: sessionID, Turns: turns})
}

// handleHealthz always returns 200; degraded upstreams are reported in the
// body so probes can alert without restarting the process.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	if s.health != nil {
		checks = s.health.Check(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"checks": checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("server: write response failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
