package subtitle

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestWriteSRT_Tracks(t *testing.T) {
	records := []Record{
		{ID: 1, StartTime: "00:00:01,000", EndTime: "00:00:02,000", Original: "Hello", Translated: "Xin chào"},
		{ID: 2, StartTime: "00:00:03,000", EndTime: "00:00:04,000", Original: "World"},
	}

	tests := []struct {
		name  string
		track Track
		want  string
	}{
		{
			name:  "original",
			track: TrackOriginal,
			want:  "1\n00:00:01,000 --> 00:00:02,000\nHello\n\n2\n00:00:03,000 --> 00:00:04,000\nWorld\n\n",
		},
		{
			name:  "translated",
			track: TrackTranslated,
			want:  "1\n00:00:01,000 --> 00:00:02,000\nXin chào\n\n",
		},
		{
			name:  "merged falls back to original",
			track: TrackPreferTranslated,
			want:  "1\n00:00:01,000 --> 00:00:02,000\nXin chào\n\n2\n00:00:03,000 --> 00:00:04,000\nWorld\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteSRT(&buf, records, tt.track))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriteSRT_SkipsUntimedAndRenumbersInvalid(t *testing.T) {
	records := []Record{
		{ID: 7, Original: "no timing"},
		{ID: InvalidID, StartTime: "00:00:01,000", EndTime: "00:00:02,000", Original: "first"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSRT(&buf, records, TrackOriginal))
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,000\nfirst\n\n", buf.String())
}

func TestWriteSRT_ParseRoundTrip(t *testing.T) {
	records := []Record{
		{ID: 1, StartTime: "00:00:01,000", EndTime: "00:00:02,000", Original: "one\ntwo"},
		{ID: 2, StartTime: "01:02:03,004", EndTime: "01:02:05,000", Original: "three"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSRT(&buf, records, TrackOriginal))
	assert.Equal(t, records, ParseSRT(buf.String()))
}

func TestWriteSRT_TranslatedTrackParsesBack(t *testing.T) {
	records := []Record{
		{ID: 1, StartTime: "00:00:01,000", EndTime: "00:00:02,000", Original: "One", Translated: "Một"},
		{ID: 2, StartTime: "00:00:03,000", EndTime: "00:00:04,000", Original: "Two"},
		{ID: 3, StartTime: "00:00:05,000", EndTime: "00:00:06,000", Original: "Three", Translated: "Ba"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSRT(&buf, records, TrackTranslated))

	reparsed := ParseSRT(buf.String())
	ids := make([]int, 0, len(reparsed))
	for _, rec := range reparsed {
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []int{1, 3}, ids)
	assert.Equal(t, "Ba", reparsed[1].Original)
}

func TestTimestamp(t *testing.T) {
	d, err := ParseTimestamp("01:02:03,004")
	require.NoError(t, err)
	assert.Equal(t, time.Hour+2*time.Minute+3*time.Second+4*time.Millisecond, d)

	_, err = ParseTimestamp("00:61:00,000")
	assert.Error(t, err)
	_, err = ParseTimestamp("00:00:00.000")
	assert.Error(t, err)

	assert.NoError(t, ValidateTiming("00:00:01,000", "00:00:01,000"))
	assert.Error(t, ValidateTiming("00:00:02,000", "00:00:01,000"))
	assert.Error(t, ValidateTiming("bad", "00:00:01,000"))
}

func TestMergeTranslated(t *testing.T) {
	originals := []Record{
		{ID: 1, Original: "Hello"},
		{ID: 2, Original: "World"},
		{ID: InvalidID, Original: "Stray"},
	}
	translated := []Record{
		{ID: 2, Original: "Thế giới"},
		{ID: 1, Original: "Xin chào"},
		{ID: InvalidID, Original: "ignored"},
	}

	merged := MergeTranslated(originals, translated)
	require.Len(t, merged, 3)
	assert.Equal(t, "Xin chào", merged[0].Translated)
	assert.Equal(t, "Thế giới", merged[1].Translated)
	assert.Empty(t, merged[2].Translated)
	assert.Equal(t, "Hello", merged[0].Original)

	// inputs are not modified
	assert.Empty(t, originals[0].Translated)
}

func TestDetectLanguage(t *testing.T) {
	records := []Record{
		{Original: "Hello, world!"},
		{Original: "こんにちは、世界!"},
		{Original: "こんにちは、世界!"},
		{Original: "Привет, мир!"},
	}
	assert.Equal(t, language.Japanese, DetectLanguage(records, FieldOriginal))
	assert.Equal(t, language.Und, DetectLanguage(records, FieldTranslated))
	assert.Equal(t, language.Und, DetectLanguage(nil, FieldOriginal))
}
