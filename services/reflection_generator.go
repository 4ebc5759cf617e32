package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/camden-git/echobackend/models"
)

const reflectionSystemPrompt = "You are Echo, an empathetic emotional intelligence companion. Your role is to translate " +
	"a user's detected emotional signals into a warm, honest, and grounding reflection. You do not " +
	"diagnose. You do not give medical advice. You speak in second person ('you'). Your tone is calm, " +
	"observant, and supportive, like a wise friend who truly sees you. Keep all outputs concise. " +
	"Never be performatively positive. Be honest about what you detect."

// ReflectionSignals is what the generator sees about a check-in
type ReflectionSignals struct {
	SignalPayload
	MoodScore   int
	VoiceTone   string
	SpeechSpeed string
}

// ReflectionOutput is the structured narrative for a check-in
type ReflectionOutput struct {
	MoodSummary         string `json:"mood_summary" jsonschema:"required"`
	EmotionalInsight    string `json:"emotional_insight" jsonschema:"required"`
	ReflectionParagraph string `json:"reflection_paragraph" jsonschema:"required"`
	PrimaryMoodTag      string `json:"primary_mood_tag" jsonschema:"required"`
	SecondaryMoodTag    string `json:"secondary_mood_tag" jsonschema:"required"`
}

var reflectionFields = []string{"mood_summary", "emotional_insight", "reflection_paragraph", "primary_mood_tag", "secondary_mood_tag"}

// ResponseSchema names a JSON schema the provider must answer with
type ResponseSchema struct {
	Name        string
	Description string
	Schema      map[string]interface{}
}

// NarrativeProvider produces text constrained to a JSON schema
type NarrativeProvider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, schema ResponseSchema) (string, error)
}

var reflectionSchema = ResponseSchema{
	Name:        "echo_reflection",
	Description: "Mood reflection JSON",
	Schema:      GenerateSchema[ReflectionOutput](),
}

// ReflectionGenerator writes the narrative for a set of signals
type ReflectionGenerator struct {
	provider NarrativeProvider
	timeout  time.Duration
}

// NewReflectionGenerator creates a generator. timeout <= 0 leaves the call unbounded.
func NewReflectionGenerator(provider NarrativeProvider, timeout time.Duration) *ReflectionGenerator {
	return &ReflectionGenerator{provider: provider, timeout: timeout}
}

// Generate asks the provider for a reflection and sanitizes its tags
func (g *ReflectionGenerator) Generate(ctx context.Context, signals ReflectionSignals, checkin CheckinContext) (ReflectionOutput, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	text, err := g.provider.Generate(ctx, reflectionSystemPrompt, BuildReflectionPrompt(signals, checkin), reflectionSchema)
	if err != nil {
		return ReflectionOutput{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	out, err := parseReflection(text)
	if err != nil {
		return ReflectionOutput{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	out.PrimaryMoodTag = models.SanitizeMoodTag(out.PrimaryMoodTag)
	out.SecondaryMoodTag = models.SanitizeMoodTag(out.SecondaryMoodTag)
	return out, nil
}

// parseReflection requires exactly the five string fields and nothing else
func parseReflection(text string) (ReflectionOutput, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return ReflectionOutput{}, errors.New("empty response")
	}
	if !gjson.Valid(s) || !gjson.Parse(s).IsObject() {
		return ReflectionOutput{}, fmt.Errorf("response is not a JSON object (len=%d)", len(s))
	}
	for _, field := range reflectionFields {
		v := gjson.Get(s, field)
		if !v.Exists() {
			return ReflectionOutput{}, fmt.Errorf("response missing %s", field)
		}
		if v.Type != gjson.String {
			return ReflectionOutput{}, fmt.Errorf("response field %s is not a string", field)
		}
	}

	var out ReflectionOutput
	dec := json.NewDecoder(strings.NewReader(s))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return ReflectionOutput{}, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// BuildReflectionPrompt renders the user prompt. Output depends only on its inputs.
func BuildReflectionPrompt(signals ReflectionSignals, checkin CheckinContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Today's date: %s, %s\n", checkin.Date, checkin.DayOfWeek)
	fmt.Fprintf(&b, "User's local time: %s (%s)\n", checkin.LocalTime, checkin.TimePeriod)
	fmt.Fprintf(&b, "Entry type: %s\n", checkin.MediaType)
	b.WriteString("Detected signals:\n")
	fmt.Fprintf(&b, "- Energy level: %d/100\n", signals.EnergyScore)
	fmt.Fprintf(&b, "- Stress score: %d/100\n", signals.StressScore)
	fmt.Fprintf(&b, "- Composite mood score: %d/100\n", signals.MoodScore)
	fmt.Fprintf(&b, "- Voice tone: %s\n", signals.VoiceTone)
	fmt.Fprintf(&b, "- Speech speed: %s\n", signals.SpeechSpeed)
	if len(signals.TopEmotions) > 0 {
		parts := make([]string, 0, len(signals.TopEmotions))
		for _, e := range signals.TopEmotions {
			parts = append(parts, fmt.Sprintf("%s (%.2f)", e.Name, e.Score))
		}
		fmt.Fprintf(&b, "- Top facial emotions: %s\n", strings.Join(parts, ", "))
	} else {
		b.WriteString("- Top facial emotions: none detected\n")
	}
	fmt.Fprintf(&b, "Choose primary_mood_tag and secondary_mood_tag from: %s.", strings.Join(models.MoodTags, ", "))
	return b.String()
}
