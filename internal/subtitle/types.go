package subtitle

import "math"

// InvalidID marks a record whose SRT index line was not a number.
// Lookups by id never match it. The parser reserves it, so an index line
// holding this exact value is also treated as not a number.
const InvalidID = math.MinInt

// Record represents a single subtitle entry of an editing session
type Record struct {
	ID         int    `json:"id"`                   // sequence number from the SRT block
	StartTime  string `json:"start_time,omitempty"` // HH:MM:SS,mmm, empty when not parsed from SRT
	EndTime    string `json:"end_time,omitempty"`   // HH:MM:SS,mmm, empty when not parsed from SRT
	Original   string `json:"original"`             // source text, never edited
	Translated string `json:"translated"`           // translated text
}

// HasValidID reports whether the record can be addressed by id.
func (r Record) HasValidID() bool {
	return r.ID != InvalidID
}

// HasTiming reports whether both timestamps are present.
func (r Record) HasTiming() bool {
	return r.StartTime != "" && r.EndTime != ""
}

// Track selects which text of a record is written out
type Track string

const (
	TrackOriginal         Track = "original"
	TrackTranslated       Track = "translated"
	TrackPreferTranslated Track = "merged"
)

// ParseTrack maps a query value to a Track, defaulting to TrackPreferTranslated.
func ParseTrack(s string) (Track, bool) {
	switch Track(s) {
	case TrackOriginal, TrackTranslated, TrackPreferTranslated:
		return Track(s), true
	case "":
		return TrackPreferTranslated, true
	default:
		return "", false
	}
}

// Clone returns a copy of records that shares no backing array with the input.
func Clone(records []Record) []Record {
	ret := make([]Record, len(records))
	copy(ret, records)
	return ret
}
