package session

import (
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/MimeLyc/subedit/internal/history"
	"github.com/MimeLyc/subedit/internal/subtitle"
)

// Source tells where a session got its records from.
type Source string

const (
	SourceInline  Source = "inline"
	SourceStore   Source = "store"
	SourceBackend Source = "backend"
)

type Languages struct {
	Original   language.Tag `json:"original"`
	Translated language.Tag `json:"translated"`
}

func detectLanguages(records []subtitle.Record) Languages {
	return Languages{
		Original:   subtitle.DetectLanguage(records, subtitle.FieldOriginal),
		Translated: subtitle.DetectLanguage(records, subtitle.FieldTranslated),
	}
}

// Session is one editing session over the subtitles of a video. It owns its
// history store; the store is never shared between sessions.
type Session struct {
	ID        string
	VideoID   string
	Source    Source
	CreatedAt time.Time

	store *history.Store
	// serializes saves so an older snapshot never overwrites a newer one
	saveMu sync.Mutex

	mu           sync.Mutex
	lastAccess   time.Time
	languages    Languages
	version      uint64
	savedVersion uint64
	revision     int
}

func (s *Session) Store() *history.Store {
	return s.store
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

// markChanged records an unsaved change and returns the new version.
func (s *Session) markChanged(now time.Time) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = now
	s.version++
	return s.version
}

func (s *Session) markSaved(version uint64, revision int, langs Languages) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version > s.savedVersion {
		s.savedVersion = version
	}
	s.revision = revision
	s.languages = langs
}

func (s *Session) currentVersion() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *Session) LastAccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// Dirty reports whether the session has changes not yet saved.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version != s.savedVersion
}

func (s *Session) Languages() Languages {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.languages
}

func (s *Session) setLanguages(langs Languages) {
	s.mu.Lock()
	s.languages = langs
	s.mu.Unlock()
}

// Info is a point-in-time summary of a session.
type Info struct {
	ID            string           `json:"id"`
	VideoID       string           `json:"video_id"`
	Source        Source           `json:"source"`
	CreatedAt     time.Time        `json:"created_at"`
	LastAccess    time.Time        `json:"last_access"`
	Languages     Languages        `json:"languages"`
	SubtitleCount int              `json:"subtitle_count"`
	Dirty         bool             `json:"dirty"`
	Revision      int              `json:"revision"`
	History       history.Position `json:"history"`
}

func (s *Session) Info() Info {
	count := len(s.store.Subtitles())
	pos := s.store.Position()

	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:            s.ID,
		VideoID:       s.VideoID,
		Source:        s.Source,
		CreatedAt:     s.CreatedAt,
		LastAccess:    s.lastAccess,
		Languages:     s.languages,
		SubtitleCount: count,
		Dirty:         s.version != s.savedVersion,
		Revision:      s.revision,
		History:       pos,
	}
}
