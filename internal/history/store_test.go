package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/subedit/internal/subtitle"
)

func strPtr(s string) *string { return &s }

func sampleRecords(n int) []subtitle.Record {
	ret := make([]subtitle.Record, 0, n)
	for i := 1; i <= n; i++ {
		ret = append(ret, subtitle.Record{
			ID:       i,
			Original: string(rune('A' + i - 1)),
		})
	}
	return ret
}

func TestStore_InitialState(t *testing.T) {
	s := New()

	assert.Empty(t, s.Subtitles())
	assert.Equal(t, -1, s.Cursor())
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
	assert.Equal(t, DefaultMaxSize, s.MaxSize())

	_, ok := s.Undo()
	assert.False(t, ok)
	_, ok = s.Redo()
	assert.False(t, ok)
}

func TestStore_ConcreteScenario(t *testing.T) {
	s := New()
	s.SetSubtitles([]subtitle.Record{
		{ID: 1, Original: "A", Translated: ""},
		{ID: 2, Original: "B", Translated: ""},
	})

	list, ok := s.EditSubtitle(1, Changes{Translated: strPtr("A-vi")})
	require.True(t, ok)
	assert.Equal(t, []subtitle.Record{
		{ID: 1, Original: "A", Translated: "A-vi"},
		{ID: 2, Original: "B"},
	}, list)
	assert.True(t, s.CanUndo())

	list, ok = s.DeleteSubtitle(2)
	require.True(t, ok)
	assert.Equal(t, []subtitle.Record{{ID: 1, Original: "A", Translated: "A-vi"}}, list)

	list, ok = s.Undo()
	require.True(t, ok)
	assert.Equal(t, []subtitle.Record{
		{ID: 1, Original: "A", Translated: "A-vi"},
		{ID: 2, Original: "B"},
	}, list)

	list, ok = s.Undo()
	require.True(t, ok)
	assert.Equal(t, []subtitle.Record{
		{ID: 1, Original: "A"},
		{ID: 2, Original: "B"},
	}, list)
	assert.False(t, s.CanUndo())
	assert.Equal(t, list, s.Subtitles())
}

func TestStore_UndoRedoInverse(t *testing.T) {
	s := New()
	start := sampleRecords(5)
	s.SetSubtitles(start)

	_, ok := s.EditSubtitle(1, Changes{Translated: strPtr("one")})
	require.True(t, ok)
	_, ok = s.DeleteSubtitle(3)
	require.True(t, ok)
	_, ok = s.BatchDeleteSubtitles([]int{4, 5})
	require.True(t, ok)
	_, ok = s.AddSubtitle(subtitle.Record{ID: 9, Original: "Z"})
	require.True(t, ok)
	_, ok = s.BatchEditSubtitles(map[int]Changes{2: {Translated: strPtr("two")}})
	require.True(t, ok)
	final := s.Subtitles()
	k := s.Len()
	require.Equal(t, 5, k)

	for i := 0; i < k; i++ {
		_, ok := s.Undo()
		require.True(t, ok)
	}
	assert.Equal(t, start, s.Subtitles())
	assert.Equal(t, -1, s.Cursor())
	assert.False(t, s.CanUndo())

	for i := 0; i < k; i++ {
		_, ok := s.Redo()
		require.True(t, ok)
	}
	assert.Equal(t, final, s.Subtitles())
	assert.False(t, s.CanRedo())
	assert.Equal(t, k-1, s.Cursor())
}

func TestStore_NewMutationAfterUndoDiscardsRedo(t *testing.T) {
	s := New()
	s.SetSubtitles(sampleRecords(3))

	_, _ = s.EditSubtitle(1, Changes{Translated: strPtr("m1")})
	_, _ = s.EditSubtitle(2, Changes{Translated: strPtr("m2")})
	_, ok := s.Undo()
	require.True(t, ok)
	assert.True(t, s.CanRedo())

	_, ok = s.DeleteSubtitle(3)
	require.True(t, ok)

	assert.False(t, s.CanRedo())
	log := s.History()
	require.Len(t, log, 2)
	assert.Equal(t, KindEdit, log[0].Kind)
	assert.Equal(t, []int{1}, log[0].AffectedIDs)
	assert.Equal(t, KindDelete, log[1].Kind)
	assert.Equal(t, []int{3}, log[1].AffectedIDs)
	assert.Equal(t, log[0].Subtitles, log[1].PreviousSubtitles)
}

func TestStore_BoundedLogEviction(t *testing.T) {
	s := New(WithMaxSize(2))
	s.SetSubtitles(sampleRecords(3))

	_, _ = s.EditSubtitle(1, Changes{Translated: strPtr("m1")})
	afterM1 := s.Subtitles()
	_, _ = s.EditSubtitle(2, Changes{Translated: strPtr("m2")})
	_, _ = s.EditSubtitle(3, Changes{Translated: strPtr("m3")})

	log := s.History()
	require.Len(t, log, 2)
	assert.Equal(t, []int{2}, log[0].AffectedIDs)
	assert.Equal(t, []int{3}, log[1].AffectedIDs)
	assert.Equal(t, 1, s.Cursor())

	_, ok := s.Undo()
	require.True(t, ok)
	_, ok = s.Undo()
	require.True(t, ok)
	assert.Equal(t, afterM1, s.Subtitles())

	_, ok = s.Undo()
	assert.False(t, ok)
	assert.Equal(t, afterM1, s.Subtitles())
}

func TestStore_UnknownIDIsNoop(t *testing.T) {
	s := New()
	records := sampleRecords(2)
	s.SetSubtitles(records)

	list, ok := s.DeleteSubtitle(42)
	assert.False(t, ok)
	assert.Equal(t, records, list)

	list, ok = s.EditSubtitle(42, Changes{Translated: strPtr("x")})
	assert.False(t, ok)
	assert.Equal(t, records, list)

	list, ok = s.BatchDeleteSubtitles([]int{42, 43})
	assert.False(t, ok)
	assert.Equal(t, records, list)

	_, ok = s.BatchEditSubtitles(map[int]Changes{42: {Translated: strPtr("x")}})
	assert.False(t, ok)

	_, ok = s.AddSubtitle(subtitle.Record{ID: 1, Original: "dup"})
	assert.False(t, ok)

	assert.Equal(t, 0, s.Len())
	assert.False(t, s.CanUndo())
}

func TestStore_InvalidIDNeverMatches(t *testing.T) {
	s := New()
	s.SetSubtitles([]subtitle.Record{
		{ID: subtitle.InvalidID, Original: "stray"},
		{ID: 1, Original: "A"},
	})

	_, ok := s.DeleteSubtitle(subtitle.InvalidID)
	assert.False(t, ok)
	_, ok = s.BatchDeleteSubtitles([]int{subtitle.InvalidID})
	assert.False(t, ok)
	_, ok = s.AddSubtitle(subtitle.Record{ID: subtitle.InvalidID})
	assert.False(t, ok)
	assert.Len(t, s.Subtitles(), 2)
}

func TestStore_DeleteRemovesDuplicateIDs(t *testing.T) {
	s := New()
	s.SetSubtitles([]subtitle.Record{
		{ID: 1, Original: "A"},
		{ID: 1, Original: "B"},
		{ID: 2, Original: "C"},
	})

	list, ok := s.DeleteSubtitle(1)
	require.True(t, ok)
	assert.Equal(t, []subtitle.Record{{ID: 2, Original: "C"}}, list)
	assert.Equal(t, 1, s.Len())

	list, ok = s.Undo()
	require.True(t, ok)
	assert.Len(t, list, 3)
}

func TestStore_BatchDeleteRecordsRemovedIDs(t *testing.T) {
	s := New()
	s.SetSubtitles(sampleRecords(4))

	list, ok := s.BatchDeleteSubtitles([]int{2, 4, 99})
	require.True(t, ok)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].ID)
	assert.Equal(t, 3, list[1].ID)

	log := s.History()
	require.Len(t, log, 1)
	assert.Equal(t, KindBatchDelete, log[0].Kind)
	assert.Equal(t, []int{2, 4}, log[0].AffectedIDs)
	assert.Equal(t, "Delete 2 subtitles", log[0].Description)
}

func TestStore_AddSubtitleKeepsIDOrder(t *testing.T) {
	s := New()
	s.SetSubtitles([]subtitle.Record{{ID: 1}, {ID: 3}})

	list, ok := s.AddSubtitle(subtitle.Record{ID: 2, Original: "B"})
	require.True(t, ok)
	require.Len(t, list, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{list[0].ID, list[1].ID, list[2].ID})

	list, ok = s.AddSubtitle(subtitle.Record{ID: 10})
	require.True(t, ok)
	assert.Equal(t, 10, list[3].ID)
}

func TestStore_EditKeepsOriginalText(t *testing.T) {
	s := New()
	s.SetSubtitles([]subtitle.Record{{ID: 1, StartTime: "00:00:01,000", EndTime: "00:00:02,000", Original: "A"}})

	list, ok := s.EditSubtitle(1, Changes{StartTime: strPtr("00:00:01,500")})
	require.True(t, ok)
	assert.Equal(t, "A", list[0].Original)
	assert.Equal(t, "00:00:01,500", list[0].StartTime)
	assert.Equal(t, "00:00:02,000", list[0].EndTime)
}

func TestStore_SnapshotsAreIsolated(t *testing.T) {
	s := New()
	input := sampleRecords(2)
	s.SetSubtitles(input)
	input[0].Original = "mutated by caller"

	list, ok := s.EditSubtitle(1, Changes{Translated: strPtr("x")})
	require.True(t, ok)
	list[1].Original = "mutated again"

	current := s.Subtitles()
	assert.Equal(t, "A", current[0].Original)
	assert.Equal(t, "B", current[1].Original)

	log := s.History()
	log[0].PreviousSubtitles[0].Translated = "tampered"
	restored, ok := s.Undo()
	require.True(t, ok)
	assert.Empty(t, restored[0].Translated)
}

func TestStore_SetSubtitlesAndClearHistory(t *testing.T) {
	s := New()
	s.SetSubtitles(sampleRecords(2))
	_, _ = s.DeleteSubtitle(1)

	s.SetSubtitles(sampleRecords(3))
	assert.Equal(t, 1, s.Len(), "SetSubtitles does not record or clear history")
	assert.Len(t, s.Subtitles(), 3)

	s.ClearHistory()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, -1, s.Cursor())
	assert.Len(t, s.Subtitles(), 3)

	_, _ = s.DeleteSubtitle(1)
	s.Load(sampleRecords(1))
	assert.Equal(t, 0, s.Len())
	assert.Len(t, s.Subtitles(), 1)
}

func TestStore_ActionMetadata(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return now }))
	s.SetSubtitles([]subtitle.Record{{ID: 7, Original: "This line is definitely longer than thirty characters"}})

	_, ok := s.DeleteSubtitle(7)
	require.True(t, ok)

	log := s.History()
	require.Len(t, log, 1)
	assert.Equal(t, now, log[0].Timestamp)
	assert.Equal(t, `Delete subtitle #7: "This line is definitely longer..."`, log[0].Description)
	assert.Len(t, log[0].PreviousSubtitles, 1)
	assert.Empty(t, log[0].Subtitles)
}

func TestStore_Position(t *testing.T) {
	s := New()
	s.SetSubtitles(sampleRecords(3))
	_, _ = s.DeleteSubtitle(1)
	_, _ = s.DeleteSubtitle(2)
	_, _ = s.Undo()

	pos := s.Position()
	assert.Equal(t, 0, pos.Cursor)
	assert.Equal(t, 2, pos.Length)
	assert.True(t, pos.CanUndo)
	assert.True(t, pos.CanRedo)
	assert.Equal(t, "1/2", pos.String())
}
