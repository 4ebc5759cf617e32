package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/camden-git/echobackend/database"
	"github.com/camden-git/echobackend/models"
)

// EntryRepositoryGorm handles database operations for MoodEntry records
type EntryRepositoryGorm struct {
	DB *gorm.DB
}

// NewEntryRepository creates a new instance of EntryRepositoryGorm
func NewEntryRepository(db *gorm.DB) *EntryRepositoryGorm {
	return &EntryRepositoryGorm{DB: db}
}

// Create inserts a new entry. Entries always start out processing.
func (r *EntryRepositoryGorm) Create(entry *models.MoodEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("mood entry id is required")
	}
	entry.Status = database.StatusProcessing
	entry.ErrorMessage = nil
	if err := r.DB.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create mood entry %s: %w", entry.ID, err)
	}
	return nil
}

// GetByID returns ErrEntryNotFound when no entry has the id
func (r *EntryRepositoryGorm) GetByID(id string) (*models.MoodEntry, error) {
	var entry models.MoodEntry
	err := r.DB.Where("id = ?", id).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get mood entry %s: %w", id, err)
	}
	return &entry, nil
}

// ListByUser returns a page of the user's entries, newest first
func (r *EntryRepositoryGorm) ListByUser(userID string, limit, offset int) ([]models.MoodEntry, error) {
	var entries []models.MoodEntry
	err := r.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list mood entries for user %s: %w", userID, err)
	}
	return entries, nil
}

// MarkComplete stores the pipeline result and moves the entry to complete
func (r *EntryRepositoryGorm) MarkComplete(id string, result models.EntryResult) (*models.MoodEntry, error) {
	updates := map[string]interface{}{
		"status":               database.StatusComplete,
		"error_message":        gorm.Expr("NULL"),
		"primary_mood_tag":     models.SanitizeMoodTag(result.PrimaryMoodTag),
		"secondary_mood_tag":   models.SanitizeMoodTag(result.SecondaryMoodTag),
		"mood_summary":         result.MoodSummary,
		"emotional_insight":    result.EmotionalInsight,
		"reflection_paragraph": result.ReflectionParagraph,
		"energy_score":         result.EnergyScore,
		"stress_score":         result.StressScore,
		"mood_score":           result.MoodScore,
		"facial_analysis":      result.FacialAnalysis,
		"voice_analysis":       result.VoiceAnalysis,
		"eye_analysis":         result.EyeAnalysis,
	}
	if result.VoiceAnalysis == nil {
		updates["voice_analysis"] = gorm.Expr("NULL")
	}
	return r.finalize(id, updates)
}

// MarkFailed records the error and moves the entry to failed. Derived fields are left untouched.
func (r *EntryRepositoryGorm) MarkFailed(id string, errorMessage string) (*models.MoodEntry, error) {
	updates := map[string]interface{}{
		"status":        database.StatusFailed,
		"error_message": database.TruncateErrorMessage(errorMessage),
	}
	return r.finalize(id, updates)
}

func (r *EntryRepositoryGorm) finalize(id string, updates map[string]interface{}) (*models.MoodEntry, error) {
	result := r.DB.Model(&models.MoodEntry{}).
		Where("id = ? AND status = ?", id, database.StatusProcessing).
		Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to finalize mood entry %s: %w", id, result.Error)
	}

	entry, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		return entry, fmt.Errorf("%w: %s is %s", ErrEntryFinalized, id, entry.Status)
	}
	return entry, nil
}
