package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"

	"github.com/MimeLyc/subedit/internal/backend"
	"github.com/MimeLyc/subedit/internal/history"
	"github.com/MimeLyc/subedit/internal/jobs"
	"github.com/MimeLyc/subedit/internal/persistence"
	"github.com/MimeLyc/subedit/internal/subtitle"
	"github.com/MimeLyc/subedit/pkg/icron"
	"github.com/MimeLyc/subedit/pkg/log"
)

// SubtitleFetcher loads the subtitles of a video from the video backend.
type SubtitleFetcher interface {
	FetchSubtitles(ctx context.Context, videoID string, opts ...subtitle.ParseOption) ([]subtitle.Record, error)
}

// SubtitleStore persists the current subtitle list of a video.
type SubtitleStore interface {
	SaveSubtitleSet(ctx context.Context, set persistence.SubtitleSet) (int, error)
	LoadSubtitleSet(ctx context.Context, videoID string) (persistence.SubtitleSet, bool, error)
}

type SaveQueue interface {
	Enqueue(req jobs.EnqueueRequest) (*jobs.SaveJob, bool)
}

type Options struct {
	HistoryMaxSize int
	IdleTTL        time.Duration
	StrictParsing  bool
	Now            func() time.Time
}

// OpenRequest selects the records of a new session. SRT, when set, wins
// over everything else; Fresh skips the saved set and goes to the backend.
type OpenRequest struct {
	VideoID       string `json:"video_id"`
	SRT           string `json:"srt,omitempty"`
	TranslatedSRT string `json:"translated_srt,omitempty"`
	Fresh         bool   `json:"fresh,omitempty"`
}

// Manager owns the editing sessions of the process.
type Manager struct {
	store SubtitleStore
	queue SaveQueue
	now   func() time.Time

	cfgMu          sync.RWMutex
	fetcher        SubtitleFetcher
	historyMaxSize int
	idleTTL        time.Duration
	strict         bool

	mu       sync.RWMutex
	sessions map[string]*Session

	fetchGroup singleflight.Group
	sweepGroup singleflight.Group

	schedMu   sync.Mutex
	cron      *cron.Cron
	sweepID   cron.EntryID
	sweepExpr string
}

func NewManager(fetcher SubtitleFetcher, store SubtitleStore, queue SaveQueue, opts Options) *Manager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	maxSize := opts.HistoryMaxSize
	if maxSize <= 0 {
		maxSize = history.DefaultMaxSize
	}
	idleTTL := opts.IdleTTL
	if idleTTL <= 0 {
		idleTTL = 2 * time.Hour
	}
	return &Manager{
		store:          store,
		queue:          queue,
		now:            now,
		fetcher:        fetcher,
		historyMaxSize: maxSize,
		idleTTL:        idleTTL,
		strict:         opts.StrictParsing,
		sessions:       make(map[string]*Session),
	}
}

// Reconfigure changes the settings used by sessions opened from now on.
// A nil fetcher keeps the current one.
func (m *Manager) Reconfigure(historyMaxSize int, strict bool, fetcher SubtitleFetcher) {
	m.cfgMu.Lock()
	defer m.cfgMu.Unlock()
	if historyMaxSize > 0 {
		m.historyMaxSize = historyMaxSize
	}
	m.strict = strict
	if fetcher != nil {
		m.fetcher = fetcher
	}
}

func (m *Manager) parseOptions() []subtitle.ParseOption {
	m.cfgMu.RLock()
	defer m.cfgMu.RUnlock()
	return []subtitle.ParseOption{subtitle.WithStrict(m.strict)}
}

func (m *Manager) Open(ctx context.Context, req OpenRequest) (Info, error) {
	videoID := strings.TrimSpace(req.VideoID)
	if videoID == "" {
		return Info{}, NewError(ErrValidation, "video_id is required")
	}

	records, langs, source, err := m.loadRecords(ctx, videoID, req)
	if err != nil {
		return Info{}, err
	}

	m.cfgMu.RLock()
	maxSize := m.historyMaxSize
	m.cfgMu.RUnlock()

	now := m.now()
	store := history.New(history.WithMaxSize(maxSize), history.WithClock(m.now))
	store.Load(records)

	sess := &Session{
		ID:         ulid.Make().String(),
		VideoID:    videoID,
		Source:     source,
		CreatedAt:  now,
		store:      store,
		lastAccess: now,
		languages:  langs,
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	log.Info("Opened session %s for video %s from %s with %d subtitles", sess.ID, videoID, source, len(records))
	return sess.Info(), nil
}

func (m *Manager) loadRecords(ctx context.Context, videoID string, req OpenRequest) ([]subtitle.Record, Languages, Source, error) {
	opts := m.parseOptions()

	if strings.TrimSpace(req.SRT) != "" {
		records := subtitle.ParseSRT(req.SRT, opts...)
		if strings.TrimSpace(req.TranslatedSRT) != "" {
			records = subtitle.MergeTranslated(records, subtitle.ParseSRT(req.TranslatedSRT, opts...))
		}
		return records, detectLanguages(records), SourceInline, nil
	}

	if !req.Fresh && m.store != nil {
		set, ok, err := m.store.LoadSubtitleSet(ctx, videoID)
		if err != nil {
			return nil, Languages{}, "", WrapError(err, ErrStorage, "failed to load saved subtitles").WithContext("video_id", videoID)
		}
		if ok {
			langs := Languages{Original: set.OriginalLanguage, Translated: set.TranslatedLanguage}
			if langs.Original == language.Und && langs.Translated == language.Und {
				langs = detectLanguages(set.Records)
			}
			return set.Records, langs, SourceStore, nil
		}
	}

	m.cfgMu.RLock()
	fetcher := m.fetcher
	m.cfgMu.RUnlock()
	if fetcher == nil {
		return nil, Languages{}, "", NewError(ErrBackend, "no video backend configured").WithContext("video_id", videoID)
	}

	// concurrent opens of one video share a single fetch
	v, err, shared := m.fetchGroup.Do(videoID, func() (any, error) {
		return fetcher.FetchSubtitles(ctx, videoID, opts...)
	})
	if err != nil {
		return nil, Languages{}, "", backendError(videoID, err)
	}
	if shared {
		log.Debug("Shared backend fetch for video %s", videoID)
	}
	records := subtitle.Clone(v.([]subtitle.Record))
	return records, detectLanguages(records), SourceBackend, nil
}

func backendError(videoID string, err error) error {
	switch {
	case errors.Is(err, backend.ErrNotFound):
		return WrapError(err, ErrNotFound, "no subtitles found for video").WithContext("video_id", videoID)
	case errors.Is(err, backend.ErrUnauthorized):
		return WrapError(err, ErrBackend, "backend session expired, check the access token").WithContext("video_id", videoID)
	default:
		return WrapError(err, ErrBackend, "failed to fetch subtitles").WithContext("video_id", videoID)
	}
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, NewError(ErrNotFound, "session not found").WithContext("session_id", id)
	}
	return sess, nil
}

// List returns the open sessions, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.RUnlock()

	ret := make([]Info, 0, len(sessions))
	for _, sess := range sessions {
		ret = append(ret, sess.Info())
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].CreatedAt.Equal(ret[j].CreatedAt) {
			return ret[i].ID < ret[j].ID
		}
		return ret[i].CreatedAt.Before(ret[j].CreatedAt)
	})
	return ret
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Mutation is an edit run against a session's store. It reports whether the
// subtitle list changed.
type Mutation func(store *history.Store) ([]subtitle.Record, bool)

// Mutate runs fn against the session, and queues an autosave when the list
// changed.
func (m *Manager) Mutate(ctx context.Context, id string, fn Mutation) ([]subtitle.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	sess, err := m.Get(id)
	if err != nil {
		return nil, false, err
	}

	records, changed := fn(sess.store)
	if !changed {
		sess.touch(m.now())
		return records, false, nil
	}
	sess.markChanged(m.now())
	m.enqueueSave(sess, jobs.SourceAutosave)
	return records, true, nil
}

// Reload replaces the records of a session with a freshly parsed SRT and
// starts a new history.
func (m *Manager) Reload(ctx context.Context, id string, srt string, translatedSRT string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	if strings.TrimSpace(srt) == "" {
		return Info{}, NewError(ErrValidation, "srt is required")
	}
	sess, err := m.Get(id)
	if err != nil {
		return Info{}, err
	}

	opts := m.parseOptions()
	records := subtitle.ParseSRT(srt, opts...)
	if strings.TrimSpace(translatedSRT) != "" {
		records = subtitle.MergeTranslated(records, subtitle.ParseSRT(translatedSRT, opts...))
	}
	sess.store.Load(records)
	sess.setLanguages(detectLanguages(records))
	sess.markChanged(m.now())
	m.enqueueSave(sess, jobs.SourceReload)

	log.Info("Reloaded session %s with %d subtitles", id, len(records))
	return sess.Info(), nil
}

func (m *Manager) enqueueSave(sess *Session, source string) {
	if m.queue == nil || m.store == nil {
		return
	}
	m.queue.Enqueue(jobs.EnqueueRequest{
		Source:    source,
		SessionID: sess.ID,
		VideoID:   sess.VideoID,
	})
}

// Save persists the current list of a session.
func (m *Manager) Save(ctx context.Context, id string) (Info, error) {
	sess, err := m.Get(id)
	if err != nil {
		return Info{}, err
	}
	if err := m.save(ctx, sess); err != nil {
		return Info{}, err
	}
	return sess.Info(), nil
}

func (m *Manager) save(ctx context.Context, sess *Session) error {
	if m.store == nil {
		return NewError(ErrStorage, "no subtitle store configured")
	}

	sess.saveMu.Lock()
	defer sess.saveMu.Unlock()

	version := sess.currentVersion()
	records := sess.store.Subtitles()
	langs := detectLanguages(records)
	revision, err := m.store.SaveSubtitleSet(ctx, persistence.SubtitleSet{
		VideoID:            sess.VideoID,
		Records:            records,
		OriginalLanguage:   langs.Original,
		TranslatedLanguage: langs.Translated,
		Source:             string(sess.Source),
		UpdatedAt:          m.now(),
	})
	if err != nil {
		return WrapError(err, ErrStorage, "failed to save subtitles").
			WithContext("session_id", sess.ID).
			WithContext("video_id", sess.VideoID)
	}
	sess.markSaved(version, revision, langs)
	log.Debug("Saved session %s as revision %d of video %s", sess.ID, revision, sess.VideoID)
	return nil
}

// ExecuteSave is the autosave queue executor.
func (m *Manager) ExecuteSave(ctx context.Context, job *jobs.SaveJob) error {
	sess, err := m.Get(job.SessionID)
	if err != nil {
		return jobs.ErrSkip
	}
	if !sess.Dirty() {
		return jobs.ErrSkip
	}
	return m.save(ctx, sess)
}

// Close saves pending changes and disposes of the session. When the save
// fails the session stays open.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return NewError(ErrNotFound, "session not found").WithContext("session_id", id)
	}

	if sess.Dirty() && m.store != nil {
		if err := m.save(ctx, sess); err != nil {
			m.mu.Lock()
			m.sessions[id] = sess
			m.mu.Unlock()
			return err
		}
	}
	log.Info("Closed session %s", id)
	return nil
}

// SaveAll saves every session with unsaved changes. Sessions stay open.
func (m *Manager) SaveAll(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.RUnlock()

	var errs []error
	saved := 0
	for _, sess := range sessions {
		if !sess.Dirty() {
			continue
		}
		if err := m.save(ctx, sess); err != nil {
			errs = append(errs, err)
			continue
		}
		saved++
	}
	if saved > 0 {
		log.Info("Saved %d open sessions", saved)
	}
	return errors.Join(errs...)
}

// SweepIdle closes every session whose last access is older than the idle
// TTL and returns the ids closed.
func (m *Manager) SweepIdle(ctx context.Context, now time.Time) ([]string, error) {
	m.cfgMu.RLock()
	ttl := m.idleTTL
	m.cfgMu.RUnlock()

	m.mu.RLock()
	idle := make([]string, 0)
	for id, sess := range m.sessions {
		if now.Sub(sess.LastAccess()) > ttl {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()
	sort.Strings(idle)

	closed := make([]string, 0, len(idle))
	var errs []error
	for _, id := range idle {
		if err := m.Close(ctx, id); err != nil {
			if IsErrorType(err, ErrNotFound) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		closed = append(closed, id)
	}
	return closed, errors.Join(errs...)
}

// Schedule runs SweepIdle on the cron expression. Calling it again replaces
// the previous schedule.
func (m *Manager) Schedule(c *cron.Cron, expr string) error {
	m.schedMu.Lock()
	defer m.schedMu.Unlock()

	id, err := c.AddFunc(expr, m.runSweep)
	if err != nil {
		return fmt.Errorf("schedule idle sweep: %w", err)
	}
	if m.cron != nil && m.sweepID != 0 {
		m.cron.Remove(m.sweepID)
	}
	m.cron = c
	m.sweepID = id
	m.sweepExpr = expr
	return nil
}

func (m *Manager) runSweep() {
	_, _, _ = m.sweepGroup.Do("sweep", func() (any, error) {
		err := SafeExecute(func() error {
			closed, err := m.SweepIdle(context.Background(), m.now())
			if len(closed) > 0 {
				log.Info("Idle sweep closed %d sessions", len(closed))
			}
			return err
		})
		if err != nil {
			log.Error("Idle sweep failed: %v", err)
		}
		return nil, nil
	})
}

// NextSweep describes the sweep schedule relative to now.
func (m *Manager) NextSweep(now time.Time) (*icron.TriggerInfo, error) {
	m.schedMu.Lock()
	expr := m.sweepExpr
	m.schedMu.Unlock()
	if expr == "" {
		return nil, fmt.Errorf("idle sweep is not scheduled")
	}
	return icron.GetTriggerInfo(expr, now)
}
