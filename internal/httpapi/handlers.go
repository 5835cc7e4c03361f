package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MimeLyc/subedit/internal/config"
	"github.com/MimeLyc/subedit/internal/jobs"
	"github.com/MimeLyc/subedit/internal/session"
	"github.com/MimeLyc/subedit/pkg/icron"
	"github.com/MimeLyc/subedit/pkg/log"
)

type healthResponse struct {
	Status    string             `json:"status"`
	UptimeS   int64              `json:"uptime_s"`
	Sessions  int                `json:"sessions"`
	Database  string             `json:"database,omitempty"`
	NextSweep *icron.TriggerInfo `json:"next_sweep,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		UptimeS:  int64(time.Since(s.startedAt).Seconds()),
		Sessions: s.sessions.Len(),
	}
	if info, err := s.sessions.NextSweep(time.Now()); err == nil {
		resp.NextSweep = info
	}

	status := http.StatusOK
	if s.sets != nil {
		resp.Database = "ok"
		if err := s.sets.Ping(r.Context()); err != nil {
			log.Error("Database ping failed: %v", err)
			resp.Status = "degraded"
			resp.Database = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		writeJSON(w, http.StatusOK, []*jobs.SaveJob{})
		return
	}
	if sessionID := strings.TrimSpace(r.URL.Query().Get("session")); sessionID != "" {
		writeJSON(w, http.StatusOK, s.queue.ListBySession(sessionID))
		return
	}
	writeJSON(w, http.StatusOK, s.queue.List())
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	job, ok := s.queue.Get(chi.URLParam(r, "jobID"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListSubtitleSets(w http.ResponseWriter, r *http.Request) {
	if s.sets == nil {
		writeError(w, http.StatusNotImplemented, "subtitle store is not configured")
		return
	}
	sets, err := s.sets.ListSubtitleSets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sets)
}

func (s *Server) handleDeleteSubtitleSet(w http.ResponseWriter, r *http.Request) {
	if s.sets == nil {
		writeError(w, http.StatusNotImplemented, "subtitle store is not configured")
		return
	}
	deleted, err := s.sets.DeleteSubtitleSet(r.Context(), chi.URLParam(r, "videoID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "subtitle set not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}
	settings, err := s.settings.GetRuntimeSettings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}
	var req config.RuntimeSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	saved, err := s.settings.UpdateRuntimeSettings(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.apply != nil {
		if err := s.apply(saved); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, saved)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

// writeSessionError maps typed session errors onto HTTP status codes.
func writeSessionError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch session.TypeOf(err) {
	case session.ErrNotFound:
		status = http.StatusNotFound
	case session.ErrValidation:
		status = http.StatusBadRequest
	case session.ErrBackend:
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		log.Error("Request failed: %v", err)
	}
	writeError(w, status, err.Error())
}
