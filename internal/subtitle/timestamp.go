package subtitle

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var timestampPattern = regexp.MustCompile(`^(\d+):(\d{2}):(\d{2}),(\d{3})$`)

// ParseTimestamp parses an SRT timestamp such as 00:02:16,612
func ParseTimestamp(s string) (time.Duration, error) {
	matches := timestampPattern.FindStringSubmatch(s)
	if len(matches) != 5 {
		return 0, fmt.Errorf("invalid timestamp: %q", s)
	}

	h, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %q: %w", s, err)
	}
	m, _ := strconv.Atoi(matches[2])
	sec, _ := strconv.Atoi(matches[3])
	ms, _ := strconv.Atoi(matches[4])
	if m > 59 || sec > 59 {
		return 0, fmt.Errorf("invalid timestamp: %q", s)
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// ValidateTiming checks that both timestamps parse and start does not come
// after end.
func ValidateTiming(start, end string) error {
	s, err := ParseTimestamp(start)
	if err != nil {
		return fmt.Errorf("start time: %w", err)
	}
	e, err := ParseTimestamp(end)
	if err != nil {
		return fmt.Errorf("end time: %w", err)
	}
	if s > e {
		return fmt.Errorf("start time %s is after end time %s", start, end)
	}
	return nil
}
