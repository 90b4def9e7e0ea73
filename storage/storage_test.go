package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndListPastes(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().Add(-time.Hour)
	first := &Paste{Timestamp: base, Source: "hotkey", Kind: "date", FormatID: "date-1", Text: "2024-03-07", DurationMs: 340, ClipboardOK: true}
	second := &Paste{Timestamp: base.Add(time.Minute), Source: "api", Kind: "time", FormatID: "time-5", Text: "15时04分09秒", DurationMs: 341, ClipboardOK: false, FailedSteps: 1, ErrorMessage: "clipboard unavailable"}

	require.NoError(t, db.SavePaste(first))
	require.NoError(t, db.SavePaste(second))
	assert.NotZero(t, first.ID)
	assert.Equal(t, 7, second.CharacterCount, "counts runes, not bytes")

	pastes, err := db.GetPastes(10, 0)
	require.NoError(t, err)
	require.Len(t, pastes, 2)
	assert.Equal(t, second.ID, pastes[0].ID, "newest first")
	assert.Equal(t, "clipboard unavailable", pastes[0].ErrorMessage)
	assert.False(t, pastes[0].Success())
	assert.True(t, pastes[1].Success())
	assert.WithinDuration(t, base, pastes[1].Timestamp, time.Second)

	page, err := db.GetPastes(1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)

	count, err := db.GetPasteCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDeletePaste(t *testing.T) {
	db := openTestDB(t)

	p := &Paste{Source: "tray", Kind: "datetime", Text: "2024-03-07 15:04", ClipboardOK: true}
	require.NoError(t, db.SavePaste(p))

	require.NoError(t, db.DeletePaste(p.ID))
	assert.ErrorIs(t, db.DeletePaste(p.ID), ErrNotFound)
}

func TestClearPastes(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.SavePaste(&Paste{Source: "api", Kind: "date", Text: "x", ClipboardOK: true}))
	}

	n, err := db.ClearPastes()
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	count, err := db.GetPasteCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStats(t *testing.T) {
	db := openTestDB(t)

	now := time.Now()
	rows := []*Paste{
		{Timestamp: now, Source: "hotkey", Kind: "date", Text: "abc", DurationMs: 300, ClipboardOK: true},
		{Timestamp: now, Source: "hotkey", Kind: "date", Text: "abcd", DurationMs: 400, ClipboardOK: false},
		{Timestamp: now, Source: "tray", Kind: "time", Text: "ab", DurationMs: 350, ClipboardOK: true, FailedSteps: 2},
		{Timestamp: now.AddDate(0, 0, -30), Source: "tray", Kind: "time", Text: "old", DurationMs: 999, ClipboardOK: true},
	}
	for _, p := range rows {
		require.NoError(t, db.SavePaste(p))
	}

	overall, err := db.GetOverallStats(7)
	require.NoError(t, err)
	assert.Equal(t, 3, overall.TotalPastes)
	assert.Equal(t, 9, overall.TotalCharacters)
	assert.Equal(t, 1, overall.SuccessCount)
	assert.Equal(t, 2, overall.FailureCount)
	assert.Equal(t, 1, overall.ClipboardFailures)
	assert.InDelta(t, 350, overall.AvgDurationMs, 0.01)

	kinds, err := db.GetKindStats(7)
	require.NoError(t, err)
	require.Len(t, kinds, 2)
	assert.Equal(t, "date", kinds[0].Kind)
	assert.Equal(t, 2, kinds[0].TotalPastes)
	assert.Equal(t, 1, kinds[1].FailureCount)

	daily, err := db.GetDailyStats(7)
	require.NoError(t, err)
	total := 0
	for _, d := range daily {
		total += d.TotalPastes
	}
	assert.Equal(t, 3, total)

	all, err := db.GetOverallStats(60)
	require.NoError(t, err)
	assert.Equal(t, 4, all.TotalPastes)
}

func TestStatsOnEmptyDatabase(t *testing.T) {
	db := openTestDB(t)

	overall, err := db.GetOverallStats(7)
	require.NoError(t, err)
	assert.Zero(t, overall.TotalPastes)

	daily, err := db.GetDailyStats(7)
	require.NoError(t, err)
	assert.Empty(t, daily)
}
