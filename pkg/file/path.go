package file

import (
	"path/filepath"
	"strings"
)

// TrackPath names the file holding one track of a subtitle file:
// "movie.en.srt" with track "merged" becomes "movie.en.merged.srt".
// ext replaces the original extension when set.
func TrackPath(path, track, ext string) string {
	if path == "" {
		return path
	}

	dir, name := filepath.Split(path)
	base := name
	origExt := ""
	if dot := strings.LastIndex(name, "."); dot > 0 {
		base, origExt = name[:dot], name[dot:]
	}
	if ext == "" {
		ext = origExt
	} else if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if track != "" {
		base += "." + track
	}
	return dir + base + ext
}

// SafeName replaces characters that are not allowed in file names.
func SafeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', ':', '*', '?', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, name)
}
