package file

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackPath(t *testing.T) {
	tests := []struct {
		path, track, ext string
		want             string
	}{
		{"movie.en.srt", "merged", "", "movie.en.merged.srt"},
		{"/data/movie.srt", "original", "", "/data/movie.original.srt"},
		{"42", "translated", ".srt", "42.translated.srt"},
		{"42", "translated", "srt", "42.translated.srt"},
		{"clip.txt", "", "srt", "clip.srt"},
		{".hidden", "merged", "", ".hidden.merged"},
		{"", "merged", ".srt", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path+"/"+tt.track, func(t *testing.T) {
			assert.Equal(t, tt.want, TrackPath(tt.path, tt.track, tt.ext))
		})
	}
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "a_b_c", SafeName("a/b:c"))
	assert.Equal(t, "video 1", SafeName("video 1"))
	assert.Equal(t, "x_y", SafeName("x\ny"))
}
