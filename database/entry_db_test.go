package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/camden-git/echobackend/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitGormDB(filepath.Join(t.TempDir(), "entries.db"))
	require.NoError(t, err)
	require.NoError(t, AutoMigrateModels(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestFailStaleEntries(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()

	entries := []models.MoodEntry{
		{ID: "old-processing", UserID: "u1", MediaType: "image", MediaKey: "k1", Status: StatusProcessing, CreatedAt: now.Add(-time.Hour)},
		{ID: "new-processing", UserID: "u1", MediaType: "image", MediaKey: "k2", Status: StatusProcessing, CreatedAt: now},
		{ID: "old-complete", UserID: "u1", MediaType: "video", MediaKey: "k3", Status: StatusComplete, CreatedAt: now.Add(-time.Hour)},
	}
	require.NoError(t, db.Create(&entries).Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)

	n, err := FailStaleEntries(sqlDB, now.Add(-10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var stale models.MoodEntry
	require.NoError(t, db.First(&stale, "id = ?", "old-processing").Error)
	assert.Equal(t, StatusFailed, stale.Status)
	require.NotNil(t, stale.ErrorMessage)
	assert.Equal(t, StaleEntryMessage, *stale.ErrorMessage)

	var fresh models.MoodEntry
	require.NoError(t, db.First(&fresh, "id = ?", "new-processing").Error)
	assert.Equal(t, StatusProcessing, fresh.Status)

	var done models.MoodEntry
	require.NoError(t, db.First(&done, "id = ?", "old-complete").Error)
	assert.Equal(t, StatusComplete, done.Status)
	assert.Nil(t, done.ErrorMessage)

	count, err := CountEntriesByStatus(sqlDB, StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestFailStaleEntries_StartupSweepFailsAllProcessing(t *testing.T) {
	db := newTestDB(t)
	created := time.Now().UTC().Add(-time.Second)

	entries := []models.MoodEntry{
		{ID: "queued", UserID: "u1", MediaType: "image", MediaKey: "k1", Status: StatusProcessing, CreatedAt: created},
		{ID: "running", UserID: "u1", MediaType: "video", MediaKey: "k2", Status: StatusProcessing, CreatedAt: created},
	}
	require.NoError(t, db.Create(&entries).Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)

	n, err := FailStaleEntries(sqlDB, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := CountEntriesByStatus(sqlDB, StatusProcessing)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTruncateErrorMessage(t *testing.T) {
	short := "analysis failed"
	assert.Equal(t, short, TruncateErrorMessage(short))

	long := make([]rune, MaxErrorMessageLength+50)
	for i := range long {
		long[i] = 'é'
	}
	got := TruncateErrorMessage(string(long))
	assert.Equal(t, MaxErrorMessageLength, len([]rune(got)))
}

func TestIsTerminalStatus(t *testing.T) {
	assert.False(t, IsTerminalStatus(StatusProcessing))
	assert.True(t, IsTerminalStatus(StatusComplete))
	assert.True(t, IsTerminalStatus(StatusFailed))
}
