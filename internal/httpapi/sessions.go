package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MimeLyc/subedit/internal/history"
	"github.com/MimeLyc/subedit/internal/session"
	"github.com/MimeLyc/subedit/internal/subtitle"
	"github.com/MimeLyc/subedit/pkg/file"
)

const maxRequestBody = 32 << 20

type mutationResponse struct {
	Subtitles []subtitle.Record `json:"subtitles"`
	Changed   bool              `json:"changed"`
	History   history.Position  `json:"history"`
}

type reloadRequest struct {
	SRT           string `json:"srt"`
	TranslatedSRT string `json:"translated_srt,omitempty"`
}

type batchDeleteRequest struct {
	IDs []int `json:"ids"`
}

type batchEditRequest struct {
	Changes map[string]history.Changes `json:"changes"`
}

type historyEntry struct {
	Type        history.ActionKind `json:"type"`
	Timestamp   string             `json:"timestamp"`
	AffectedIDs []int              `json:"affected_ids"`
	Description string             `json:"description"`
}

type historyResponse struct {
	State    history.Position `json:"state"`
	Position string           `json:"position"`
	MaxSize  int              `json:"max_size"`
	Actions  []historyEntry   `json:"actions"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.List())
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req session.OpenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	info, err := s.sessions.Open(r.Context(), req)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSubtitles(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Store().Subtitles())
}

func (s *Server) handleReloadSubtitles(w http.ResponseWriter, r *http.Request) {
	var req reloadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	info, err := s.sessions.Reload(r.Context(), chi.URLParam(r, "sessionID"), req.SRT, req.TranslatedSRT)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleAddSubtitle(w http.ResponseWriter, r *http.Request) {
	var rec subtitle.Record
	if !decodeBody(w, r, &rec) {
		return
	}
	if rec.StartTime != "" || rec.EndTime != "" {
		if err := subtitle.ValidateTiming(rec.StartTime, rec.EndTime); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	s.mutate(w, r, func(store *history.Store) ([]subtitle.Record, bool) {
		return store.AddSubtitle(rec)
	}, http.StatusConflict, fmt.Sprintf("subtitle #%d already exists or has an invalid id", rec.ID))
}

func (s *Server) handleEditSubtitle(w http.ResponseWriter, r *http.Request) {
	id, ok := subtitleID(w, r)
	if !ok {
		return
	}
	var changes history.Changes
	if !decodeBody(w, r, &changes) {
		return
	}
	if err := validateChanges(changes); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mutate(w, r, func(store *history.Store) ([]subtitle.Record, bool) {
		return store.EditSubtitle(id, changes)
	}, http.StatusNotFound, fmt.Sprintf("subtitle #%d not found", id))
}

func (s *Server) handleDeleteSubtitle(w http.ResponseWriter, r *http.Request) {
	id, ok := subtitleID(w, r)
	if !ok {
		return
	}
	s.mutate(w, r, func(store *history.Store) ([]subtitle.Record, bool) {
		return store.DeleteSubtitle(id)
	}, http.StatusNotFound, fmt.Sprintf("subtitle #%d not found", id))
}

func (s *Server) handleBatchDelete(w http.ResponseWriter, r *http.Request) {
	var req batchDeleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.mutate(w, r, func(store *history.Store) ([]subtitle.Record, bool) {
		return store.BatchDeleteSubtitles(req.IDs)
	}, 0, "")
}

func (s *Server) handleBatchEdit(w http.ResponseWriter, r *http.Request) {
	var req batchEditRequest
	if !decodeBody(w, r, &req) {
		return
	}
	changes := make(map[int]history.Changes, len(req.Changes))
	for key, change := range req.Changes {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid subtitle id %q", key))
			return
		}
		if err := validateChanges(change); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("subtitle #%d: %v", id, err))
			return
		}
		changes[id] = change
	}

	s.mutate(w, r, func(store *history.Store) ([]subtitle.Record, bool) {
		return store.BatchEditSubtitles(changes)
	}, 0, "")
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(store *history.Store) ([]subtitle.Record, bool) {
		return store.Undo()
	}, http.StatusConflict, "nothing to undo")
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(store *history.Store) ([]subtitle.Record, bool) {
		return store.Redo()
	}, http.StatusConflict, "nothing to redo")
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	store := sess.Store()
	actions := store.History()
	pos := store.Position()

	entries := make([]historyEntry, 0, len(actions))
	for _, action := range actions {
		entries = append(entries, historyEntry{
			Type:        action.Kind,
			Timestamp:   action.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			AffectedIDs: action.AffectedIDs,
			Description: action.Description,
		})
	}
	writeJSON(w, http.StatusOK, historyResponse{
		State:    pos,
		Position: pos.String(),
		MaxSize:  store.MaxSize(),
		Actions:  entries,
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	sess.Store().ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.sessions.Save(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	track, ok := subtitle.ParseTrack(r.URL.Query().Get("track"))
	if !ok {
		writeError(w, http.StatusBadRequest, "track must be one of original, translated, merged")
		return
	}
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(sess.VideoID, track)))
	w.WriteHeader(http.StatusOK)
	_ = subtitle.WriteSRT(w, sess.Store().Subtitles(), track)
}

// mutate runs fn through the session manager. When nothing changed and
// unchangedStatus is set, the request fails with that status instead.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn session.Mutation, unchangedStatus int, unchangedMsg string) {
	sessionID := chi.URLParam(r, "sessionID")
	records, changed, err := s.sessions.Mutate(r.Context(), sessionID, fn)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if !changed && unchangedStatus != 0 {
		writeError(w, unchangedStatus, unchangedMsg)
		return
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if records == nil {
		records = sess.Store().Subtitles()
	}
	writeJSON(w, http.StatusOK, mutationResponse{
		Subtitles: records,
		Changed:   changed,
		History:   sess.Store().Position(),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return false
	}
	return true
}

func subtitleID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "subtitleID")
	id, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid subtitle id %q", raw))
		return 0, false
	}
	return id, true
}

func validateChanges(c history.Changes) error {
	if c.IsEmpty() {
		return fmt.Errorf("no changes given")
	}
	if c.StartTime != nil {
		if _, err := subtitle.ParseTimestamp(*c.StartTime); err != nil {
			return err
		}
	}
	if c.EndTime != nil {
		if _, err := subtitle.ParseTimestamp(*c.EndTime); err != nil {
			return err
		}
	}
	return nil
}

func exportFilename(videoID string, track subtitle.Track) string {
	return file.TrackPath(file.SafeName(videoID)+".srt", string(track), "")
}
