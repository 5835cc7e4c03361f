package subtitle

// MergeTranslated fills the Translated text of each original record with the
// text of the translated-track record carrying the same id.
func MergeTranslated(originals, translated []Record) []Record {
	byID := make(map[int]string, len(translated))
	for _, rec := range translated {
		if !rec.HasValidID() {
			continue
		}
		if _, seen := byID[rec.ID]; seen {
			continue
		}
		byID[rec.ID] = rec.Original
	}

	ret := make([]Record, len(originals))
	for i, rec := range originals {
		rec.Translated = ""
		if rec.HasValidID() {
			rec.Translated = byID[rec.ID]
		}
		ret[i] = rec
	}
	return ret
}
