package repository

import (
	"errors"

	"github.com/camden-git/echobackend/models"
)

var (
	// ErrEntryNotFound is returned when no entry matches the given id
	ErrEntryNotFound = errors.New("mood entry not found")
	// ErrEntryFinalized is returned when finalizing an entry that already reached a terminal state
	ErrEntryFinalized = errors.New("mood entry already finalized")
)

// EntryRepository defines the methods for mood entry data operations
type EntryRepository interface {
	Create(entry *models.MoodEntry) error
	GetByID(id string) (*models.MoodEntry, error)
	ListByUser(userID string, limit, offset int) ([]models.MoodEntry, error)

	// terminal transitions, each applied at most once per entry
	MarkComplete(id string, result models.EntryResult) (*models.MoodEntry, error)
	MarkFailed(id string, errorMessage string) (*models.MoodEntry, error)
}
