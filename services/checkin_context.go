package services

import "time"

// time-of-day buckets used in prompts
const (
	PeriodMorning   = "morning"
	PeriodAfternoon = "afternoon"
	PeriodEvening   = "evening"
	PeriodNight     = "night"
)

// CheckinContext is the situational context a reflection is written for
type CheckinContext struct {
	Date       string `json:"date"`        // 2006-01-02
	DayOfWeek  string `json:"day_of_week"` // Monday
	LocalTime  string `json:"local_time"`  // 15:04
	TimePeriod string `json:"time_period"`
	MediaType  string `json:"media_type"`
	UserID     string `json:"user_id"`
}

// NewCheckinContext describes the moment at in loc. A nil loc means UTC.
func NewCheckinContext(at time.Time, loc *time.Location, mediaType, userID string) CheckinContext {
	if loc == nil {
		loc = time.UTC
	}
	local := at.In(loc)
	return CheckinContext{
		Date:       local.Format("2006-01-02"),
		DayOfWeek:  local.Weekday().String(),
		LocalTime:  local.Format("15:04"),
		TimePeriod: TimePeriod(local.Hour()),
		MediaType:  mediaType,
		UserID:     userID,
	}
}

// TimePeriod buckets an hour of the day
func TimePeriod(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return PeriodMorning
	case hour >= 12 && hour < 17:
		return PeriodAfternoon
	case hour >= 17 && hour < 21:
		return PeriodEvening
	default:
		return PeriodNight
	}
}
