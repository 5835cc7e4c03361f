package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MimeLyc/subedit/internal/session"
)

// handleSessionStream pushes the session summary whenever it changes and
// emits a closed event once the session is gone.
func (s *Server) handleSessionStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var last []byte
	send := func(info session.Info) bool {
		// last access moves on every read, so it does not count as a change
		snapshot := info
		snapshot.LastAccess = time.Time{}
		key, err := json.Marshal(snapshot)
		if err != nil {
			return false
		}
		if string(key) == string(last) {
			return true
		}
		last = key

		payload, err := json.Marshal(info)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "event: session\ndata: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(sess.Info()) {
		return
	}

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			sess, err := s.sessions.Get(sessionID)
			if err != nil {
				fmt.Fprintf(w, "event: closed\ndata: {\"id\":%q}\n\n", sessionID)
				flusher.Flush()
				return
			}
			if !send(sess.Info()) {
				return
			}
		}
	}
}
