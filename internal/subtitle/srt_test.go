package subtitle

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSRT_WellFormed(t *testing.T) {
	type cue struct {
		start, end, text string
	}
	cues := []cue{
		{"00:00:01,000", "00:00:04,000", "Hello, world!"},
		{"00:00:05,500", "00:00:08,200", "This is a test.\nWith multiple lines."},
		{"00:00:10,000", "00:00:12,500", "Final subtitle."},
		{"100:00:00,000", "100:00:01,250", "Long hours."},
	}

	var sb strings.Builder
	for i, c := range cues {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n", i+1, c.start, c.end, c.text)
	}

	records := ParseSRT(sb.String())
	require.Len(t, records, len(cues))
	for i, c := range cues {
		assert.Equal(t, i+1, records[i].ID)
		assert.Equal(t, c.start, records[i].StartTime)
		assert.Equal(t, c.end, records[i].EndTime)
		assert.Equal(t, c.text, records[i].Original)
		assert.Empty(t, records[i].Translated)
	}
}

func TestParseSRT_DropsMalformedBlocks(t *testing.T) {
	content := "1\n00:00:01,000 --> 00:00:02,000\nHello\n\n" +
		"2\nnot a timing line\nBroken\n\n" +
		"3\n00:00:03,000 --> 00:00:04,000\nWorld\n"

	var records []Record
	require.NotPanics(t, func() { records = ParseSRT(content) })
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].ID)
	assert.Equal(t, 3, records[1].ID)
}

func TestParseSRT_DropsShortBlocks(t *testing.T) {
	content := "1\n00:00:01,000 --> 00:00:02,000\n\n2\n00:00:03,000 --> 00:00:04,000\nKept\n"

	records := ParseSRT(content)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].ID)
	assert.Equal(t, "Kept", records[0].Original)
}

func TestParseSRT_EmptyInput(t *testing.T) {
	records := ParseSRT("")
	require.NotNil(t, records)
	assert.Empty(t, records)

	assert.Empty(t, ParseSRT("  \n\n \t\n"))
}

func TestParseSRT_NonNumericIndex(t *testing.T) {
	content := "abc\n00:00:01,000 --> 00:00:02,000\nLenient\n\n2\n00:00:03,000 --> 00:00:04,000\nNumbered\n"

	lenient := ParseSRT(content)
	require.Len(t, lenient, 2)
	assert.Equal(t, InvalidID, lenient[0].ID)
	assert.False(t, lenient[0].HasValidID())
	assert.Equal(t, "Lenient", lenient[0].Original)

	strict := ParseSRT(content, WithStrict(true))
	require.Len(t, strict, 1)
	assert.Equal(t, 2, strict[0].ID)
}

func TestParseSRT_NegativeIndexIsAddressable(t *testing.T) {
	records := ParseSRT("-1\n00:00:01,000 --> 00:00:02,000\nNeg\n")
	require.Len(t, records, 1)
	assert.Equal(t, -1, records[0].ID)
	assert.True(t, records[0].HasValidID())
}

func TestParseSRT_CRLFAndBOM(t *testing.T) {
	content := "\ufeff1\r\n00:00:01,000 --> 00:00:02,000\r\nLine one\r\nLine two\r\n\r\n2\r\n00:00:03,000-->00:00:04,000\r\nNext\r\n"

	records := ParseSRT(content)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].ID)
	assert.Equal(t, "Line one\nLine two", records[0].Original)
	assert.Equal(t, "00:00:03,000", records[1].StartTime)
	assert.Equal(t, "00:00:04,000", records[1].EndTime)
}

func TestParseSRT_KeepsBlockOrder(t *testing.T) {
	content := "5\n00:00:05,000 --> 00:00:06,000\nFive\n\n2\n00:00:02,000 --> 00:00:03,000\nTwo\n"

	records := ParseSRT(content)
	require.Len(t, records, 2)
	assert.Equal(t, 5, records[0].ID)
	assert.Equal(t, 2, records[1].ID)
}

func TestParseSRT_BlankLinesWithWhitespace(t *testing.T) {
	content := "1\n00:00:01,000 --> 00:00:02,000\nA\n   \n\t\n2\n00:00:03,000 --> 00:00:04,000\nB"

	records := ParseSRT(content)
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[0].Original)
	assert.Equal(t, "B", records[1].Original)
}
