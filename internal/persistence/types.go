package persistence

import (
	"time"

	"golang.org/x/text/language"

	"github.com/MimeLyc/subedit/internal/subtitle"
)

// SubtitleSet is the last saved subtitle list of a video.
type SubtitleSet struct {
	VideoID            string
	Records            []subtitle.Record
	OriginalLanguage   language.Tag
	TranslatedLanguage language.Tag
	// Source names where the session got its records from (inline, backend, store).
	Source string
	// Revision starts at 1 and grows with every save.
	Revision  int
	UpdatedAt time.Time
}

// SubtitleSetSummary is a SubtitleSet without its records.
type SubtitleSetSummary struct {
	VideoID            string       `json:"video_id"`
	RecordCount        int          `json:"record_count"`
	OriginalLanguage   language.Tag `json:"original_language"`
	TranslatedLanguage language.Tag `json:"translated_language"`
	Revision           int          `json:"revision"`
	UpdatedAt          time.Time    `json:"updated_at"`
}
