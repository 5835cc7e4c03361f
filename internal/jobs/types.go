package jobs

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// ErrSkip is returned by an Executor when the job no longer has anything to do.
var ErrSkip = errors.New("job skipped")

// Sources of a save request.
const (
	SourceAutosave = "autosave"
	SourceReload   = "reload"
)

type EnqueueRequest struct {
	Source    string
	SessionID string
	VideoID   string
}

// SaveJob persists the subtitle list of one editing session.
type SaveJob struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	SessionID string    `json:"session_id"`
	VideoID   string    `json:"video_id"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j *SaveJob) Terminal() bool {
	return j.Status != StatusPending && j.Status != StatusRunning
}
