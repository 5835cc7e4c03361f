package subtitle

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	blockSeparator = regexp.MustCompile(`\n\s*\n`)
	// SRT timing line: 00:02:16,612 --> 00:02:19,376 (hours may exceed two digits)
	timingPattern = regexp.MustCompile(`(\d+:\d{2}:\d{2},\d{3})\s*-->\s*(\d+:\d{2}:\d{2},\d{3})`)
)

type parseOptions struct {
	strict bool
}

// ParseOption configures ParseSRT
type ParseOption func(*parseOptions)

// WithStrict drops blocks whose index line is not a number instead of
// emitting them with InvalidID.
func WithStrict(strict bool) ParseOption {
	return func(o *parseOptions) {
		o.strict = strict
	}
}

// ParseSRT parses SRT content into records in block order.
// Malformed blocks are dropped; it never fails.
func ParseSRT(content string, opts ...ParseOption) []Record {
	var o parseOptions
	for _, opt := range opts {
		opt(&o)
	}

	records := make([]Record, 0)

	content = normalizeNewlines(content)
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.TrimSpace(content)
	if content == "" {
		return records
	}

	for _, block := range blockSeparator.Split(content, -1) {
		rec, ok := parseBlock(strings.TrimSpace(block), o)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records
}

func parseBlock(block string, o parseOptions) (Record, bool) {
	lines := strings.Split(block, "\n")
	if len(lines) < 3 {
		return Record{}, false
	}

	id, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil || id == InvalidID {
		if o.strict {
			return Record{}, false
		}
		id = InvalidID
	}

	matches := timingPattern.FindStringSubmatch(lines[1])
	if matches == nil {
		return Record{}, false
	}

	return Record{
		ID:         id,
		StartTime:  matches[1],
		EndTime:    matches[2],
		Original:   strings.Join(lines[2:], "\n"),
		Translated: "",
	}, true
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
