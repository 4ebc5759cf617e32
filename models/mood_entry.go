package models

import (
	"time"

	"gorm.io/datatypes"
)

// MoodEntry is a single check-in and the analysis derived from it.
// It corresponds to the 'mood_entries' table.
type MoodEntry struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	MediaType string `gorm:"type:varchar(10);not null" json:"media_type"` // image | video
	MediaKey  string `gorm:"type:text;not null" json:"media_s3_key"`      // object key in the bucket

	Status       string  `gorm:"type:varchar(20);not null;default:processing;index" json:"status"`
	ErrorMessage *string `gorm:"type:text" json:"error_message"`

	PrimaryMoodTag   *string `gorm:"type:varchar(50)" json:"primary_mood_tag"`
	SecondaryMoodTag *string `gorm:"type:varchar(50)" json:"secondary_mood_tag"`

	MoodScore   *int `json:"mood_score"`
	EnergyScore *int `json:"energy_score"`
	StressScore *int `json:"stress_score"`

	MoodSummary         *string `gorm:"type:text" json:"mood_summary"`
	EmotionalInsight    *string `gorm:"type:text" json:"emotional_insight"`
	ReflectionParagraph *string `gorm:"type:text" json:"reflection_paragraph"`

	FacialAnalysis datatypes.JSON `json:"facial_analysis"`
	VoiceAnalysis  datatypes.JSON `json:"voice_analysis"`
	EyeAnalysis    datatypes.JSON `json:"eye_analysis"`

	UserFeedback *string `gorm:"type:varchar(10)" json:"user_feedback,omitempty"`
	IsShared     bool    `gorm:"not null;default:false" json:"is_shared"`
	ShareToken   *string `gorm:"type:varchar(64)" json:"share_token,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (MoodEntry) TableName() string {
	return "mood_entries"
}

// EntryResult holds everything the pipeline writes when an entry completes.
type EntryResult struct {
	PrimaryMoodTag      string
	SecondaryMoodTag    string
	MoodSummary         string
	EmotionalInsight    string
	ReflectionParagraph string
	EnergyScore         int
	StressScore         int
	MoodScore           int
	FacialAnalysis      datatypes.JSON
	VoiceAnalysis       datatypes.JSON // nil when no prosody was analysed
	EyeAnalysis         datatypes.JSON
}
