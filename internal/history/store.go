package history

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/MimeLyc/subedit/internal/subtitle"
)

// Store owns the subtitle list of one editing session and a bounded linear
// undo/redo log over its mutations.
//
// Lists held by the store are never modified in place; every mutation builds
// a new slice, so snapshots in the log can share memory with the current
// list. Everything handed to callers is a copy.
type Store struct {
	maxSize int
	now     func() time.Time

	mu        sync.Mutex
	subtitles []subtitle.Record
	log       []Action
	cursor    int
}

type Option func(*Store)

// WithMaxSize bounds the log. Values <= 0 select DefaultMaxSize.
func WithMaxSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		maxSize:   DefaultMaxSize,
		now:       time.Now,
		subtitles: []subtitle.Record{},
		cursor:    -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetSubtitles replaces the current list. It is not recorded in the log.
func (s *Store) SetSubtitles(records []subtitle.Record) {
	s.mu.Lock()
	s.subtitles = subtitle.Clone(records)
	s.mu.Unlock()
}

// Load replaces the current list and starts a fresh history.
func (s *Store) Load(records []subtitle.Record) {
	s.mu.Lock()
	s.subtitles = subtitle.Clone(records)
	s.log = nil
	s.cursor = -1
	s.mu.Unlock()
}

func (s *Store) Subtitles() []subtitle.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return subtitle.Clone(s.subtitles)
}

// DeleteSubtitle removes every record with id. Unknown ids leave the list
// and the log untouched and report false.
func (s *Store) DeleteSubtitle(id int) ([]subtitle.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.indexLocked(id)
	if index == -1 {
		return subtitle.Clone(s.subtitles), false
	}
	deleted := s.subtitles[index]

	next := make([]subtitle.Record, 0, len(s.subtitles)-1)
	for _, rec := range s.subtitles {
		if rec.ID != id {
			next = append(next, rec)
		}
	}
	s.commitLocked(Action{
		Kind:        KindDelete,
		AffectedIDs: []int{id},
		Description: fmt.Sprintf("Delete subtitle #%d: %q", id, preview(deleted.Original)),
	}, next)
	return subtitle.Clone(next), true
}

// EditSubtitle merges changes onto the record with id.
func (s *Store) EditSubtitle(id int, changes Changes) ([]subtitle.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.indexLocked(id)
	if index == -1 {
		return subtitle.Clone(s.subtitles), false
	}

	next := subtitle.Clone(s.subtitles)
	next[index] = changes.apply(next[index])
	s.commitLocked(Action{
		Kind:        KindEdit,
		AffectedIDs: []int{id},
		Description: fmt.Sprintf("Edit subtitle #%d", id),
	}, next)
	return subtitle.Clone(next), true
}

// BatchDeleteSubtitles removes every record whose id is listed. One action
// covers all removed ids; nothing removed is a no-op.
func (s *Store) BatchDeleteSubtitles(ids []int) ([]subtitle.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if id == subtitle.InvalidID {
			continue
		}
		wanted[id] = struct{}{}
	}

	next := make([]subtitle.Record, 0, len(s.subtitles))
	removed := make([]int, 0)
	for _, rec := range s.subtitles {
		if _, ok := wanted[rec.ID]; ok && rec.HasValidID() {
			removed = append(removed, rec.ID)
			continue
		}
		next = append(next, rec)
	}
	if len(removed) == 0 {
		return subtitle.Clone(s.subtitles), false
	}

	s.commitLocked(Action{
		Kind:        KindBatchDelete,
		AffectedIDs: removed,
		Description: fmt.Sprintf("Delete %d subtitles", len(removed)),
	}, next)
	return subtitle.Clone(next), true
}

// AddSubtitle inserts rec before the first record with a larger id.
// Invalid or already present ids are a no-op.
func (s *Store) AddSubtitle(rec subtitle.Record) ([]subtitle.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !rec.HasValidID() || s.indexLocked(rec.ID) != -1 {
		return subtitle.Clone(s.subtitles), false
	}

	pos := len(s.subtitles)
	for i, cur := range s.subtitles {
		if cur.HasValidID() && cur.ID > rec.ID {
			pos = i
			break
		}
	}

	next := slices.Concat(s.subtitles[:pos], []subtitle.Record{rec}, s.subtitles[pos:])
	s.commitLocked(Action{
		Kind:        KindAdd,
		AffectedIDs: []int{rec.ID},
		Description: fmt.Sprintf("Add subtitle #%d", rec.ID),
	}, next)
	return subtitle.Clone(next), true
}

// BatchEditSubtitles applies every change whose id exists as one action.
func (s *Store) BatchEditSubtitles(changes map[int]Changes) ([]subtitle.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := subtitle.Clone(s.subtitles)
	edited := make([]int, 0, len(changes))
	for i, rec := range next {
		if !rec.HasValidID() {
			continue
		}
		change, ok := changes[rec.ID]
		if !ok {
			continue
		}
		next[i] = change.apply(rec)
		edited = append(edited, rec.ID)
	}
	if len(edited) == 0 {
		return subtitle.Clone(s.subtitles), false
	}

	s.commitLocked(Action{
		Kind:        KindBatchEdit,
		AffectedIDs: edited,
		Description: fmt.Sprintf("Edit %d subtitles", len(edited)),
	}, next)
	return subtitle.Clone(next), true
}

// Undo restores the list as it was before the action at the cursor.
func (s *Store) Undo() ([]subtitle.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor < 0 {
		return nil, false
	}
	action := s.log[s.cursor]
	s.subtitles = action.PreviousSubtitles
	s.cursor--
	return subtitle.Clone(s.subtitles), true
}

// Redo re-applies the action after the cursor.
func (s *Store) Redo() ([]subtitle.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor >= len(s.log)-1 {
		return nil, false
	}
	s.cursor++
	s.subtitles = s.log[s.cursor].Subtitles
	return subtitle.Clone(s.subtitles), true
}

func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor >= 0
}

func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor < len(s.log)-1
}

// ClearHistory drops the log. The current list is kept.
func (s *Store) ClearHistory() {
	s.mu.Lock()
	s.log = nil
	s.cursor = -1
	s.mu.Unlock()
}

func (s *Store) History() []Action {
	s.mu.Lock()
	defer s.mu.Unlock()

	ret := make([]Action, len(s.log))
	for i, action := range s.log {
		ret[i] = cloneAction(action)
	}
	return ret
}

// Len is the number of actions in the log.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.log)
}

// Cursor is the index of the last applied action, -1 when none is applied.
func (s *Store) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Store) MaxSize() int {
	return s.maxSize
}

// Position is a consistent view of the log state.
type Position struct {
	Cursor  int  `json:"current_history_index"`
	Length  int  `json:"history_length"`
	CanUndo bool `json:"can_undo"`
	CanRedo bool `json:"can_redo"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d/%d", p.Cursor+1, p.Length)
}

func (s *Store) Position() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Position{
		Cursor:  s.cursor,
		Length:  len(s.log),
		CanUndo: s.cursor >= 0,
		CanRedo: s.cursor < len(s.log)-1,
	}
}

func (s *Store) indexLocked(id int) int {
	if id == subtitle.InvalidID {
		return -1
	}
	return slices.IndexFunc(s.subtitles, func(rec subtitle.Record) bool {
		return rec.ID == id
	})
}

// commitLocked records action with the current list as its prior state and
// makes next current.
func (s *Store) commitLocked(action Action, next []subtitle.Record) {
	action.Timestamp = s.now()
	action.PreviousSubtitles = s.subtitles
	action.Subtitles = next
	s.recordLocked(action)
	s.subtitles = next
}

// recordLocked drops any redo future, appends action and evicts the oldest
// entries beyond maxSize.
func (s *Store) recordLocked(action Action) {
	s.log = append(s.log[:s.cursor+1:s.cursor+1], action)
	for len(s.log) > s.maxSize {
		s.log = s.log[1:]
	}
	s.cursor = len(s.log) - 1
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) > 30 {
		runes = runes[:30]
	}
	return string(runes) + "..."
}
