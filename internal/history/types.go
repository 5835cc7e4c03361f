package history

import (
	"time"

	"github.com/MimeLyc/subedit/internal/subtitle"
)

// DefaultMaxSize is the number of actions kept when no size is configured
const DefaultMaxSize = 50

type ActionKind string

const (
	KindAdd         ActionKind = "ADD"
	KindDelete      ActionKind = "DELETE"
	KindEdit        ActionKind = "EDIT"
	KindBatchDelete ActionKind = "BATCH_DELETE"
	KindBatchEdit   ActionKind = "BATCH_EDIT"
)

// Action is one reversible mutation. Both lists are full snapshots.
type Action struct {
	Kind              ActionKind        `json:"type"`
	Timestamp         time.Time         `json:"timestamp"`
	Subtitles         []subtitle.Record `json:"subtitles"`
	PreviousSubtitles []subtitle.Record `json:"previous_subtitles"`
	AffectedIDs       []int             `json:"affected_ids,omitempty"`
	Description       string            `json:"description"`
}

// Changes is a partial update of a record. Nil fields are left unchanged.
type Changes struct {
	Translated *string `json:"translated,omitempty"`
	StartTime  *string `json:"start_time,omitempty"`
	EndTime    *string `json:"end_time,omitempty"`
}

// IsEmpty reports whether no field is set.
func (c Changes) IsEmpty() bool {
	return c.Translated == nil && c.StartTime == nil && c.EndTime == nil
}

func (c Changes) apply(rec subtitle.Record) subtitle.Record {
	if c.Translated != nil {
		rec.Translated = *c.Translated
	}
	if c.StartTime != nil {
		rec.StartTime = *c.StartTime
	}
	if c.EndTime != nil {
		rec.EndTime = *c.EndTime
	}
	return rec
}

func cloneAction(a Action) Action {
	a.Subtitles = subtitle.Clone(a.Subtitles)
	a.PreviousSubtitles = subtitle.Clone(a.PreviousSubtitles)
	a.AffectedIDs = append([]int(nil), a.AffectedIDs...)
	return a
}
