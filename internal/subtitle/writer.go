package subtitle

import (
	"bufio"
	"fmt"
	"io"
)

// WriteSRT writes records as SRT using the text selected by track.
// Records without timing or without text on the track are skipped, since a
// cue with no text line does not parse back. Invalid ids are renumbered by
// position.
func WriteSRT(w io.Writer, records []Record, track Track) error {
	writer := bufio.NewWriter(w)

	written := 0
	for _, rec := range records {
		text := textFor(rec, track)
		if !rec.HasTiming() || text == "" {
			continue
		}
		written++

		index := rec.ID
		if !rec.HasValidID() {
			index = written
		}

		// write index
		if _, err := fmt.Fprintf(writer, "%d\n", index); err != nil {
			return fmt.Errorf("failed to write index: %w", err)
		}

		// write time
		if _, err := fmt.Fprintf(writer, "%s --> %s\n", rec.StartTime, rec.EndTime); err != nil {
			return fmt.Errorf("failed to write timing: %w", err)
		}

		if _, err := fmt.Fprintf(writer, "%s\n\n", text); err != nil {
			return fmt.Errorf("failed to write text: %w", err)
		}
	}

	return writer.Flush()
}

func textFor(rec Record, track Track) string {
	switch track {
	case TrackOriginal:
		return rec.Original
	case TrackTranslated:
		return rec.Translated
	default:
		// use translated text, fallback to original if empty
		if rec.Translated != "" {
			return rec.Translated
		}
		return rec.Original
	}
}
