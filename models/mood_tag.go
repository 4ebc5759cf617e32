package models

// FallbackMoodTag replaces any tag outside the approved vocabulary.
const FallbackMoodTag = "uncertain"

// MoodTags is the closed vocabulary a reflection may use to label a check-in.
var MoodTags = []string{
	"calm",
	"stressed",
	"driven",
	"low energy",
	"optimistic",
	"anxious",
	"focused",
	"disconnected",
	"energized",
	"melancholic",
	"content",
	"overwhelmed",
	"excited",
	"uncertain",
	"grateful",
	"tense",
	"reflective",
	"motivated",
	"drained",
	"hopeful",
}

var approvedMoodTags = func() map[string]struct{} {
	set := make(map[string]struct{}, len(MoodTags))
	for _, tag := range MoodTags {
		set[tag] = struct{}{}
	}
	return set
}()

// IsApprovedMoodTag reports whether tag is part of the vocabulary. Matching is exact.
func IsApprovedMoodTag(tag string) bool {
	_, ok := approvedMoodTags[tag]
	return ok
}

// SanitizeMoodTag returns tag unchanged when approved and FallbackMoodTag otherwise.
func SanitizeMoodTag(tag string) string {
	if IsApprovedMoodTag(tag) {
		return tag
	}
	return FallbackMoodTag
}
