package services

import (
	"math"

	"github.com/tidwall/gjson"

	"github.com/camden-git/echobackend/media"
)

const unknownEmotionName = "unknown"

// EmotionScore is a single detected emotion and its confidence
type EmotionScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// EmotionScores keeps emotions in the order the provider listed them
type EmotionScores []EmotionScore

// Get returns the score for name, or 0 when the emotion was not reported
func (s EmotionScores) Get(name string) float64 {
	for _, e := range s {
		if e.Name == name {
			return e.Score
		}
	}
	return 0
}

// Map returns the scores keyed by emotion name. Nil when empty.
func (s EmotionScores) Map() map[string]float64 {
	if len(s) == 0 {
		return nil
	}
	m := make(map[string]float64, len(s))
	for _, e := range s {
		m[e.Name] = e.Score
	}
	return m
}

// ModelEmotions holds the parsed per-model emotion scores of a job
type ModelEmotions struct {
	Face    EmotionScores
	Prosody EmotionScores
}

// ParsePredictions reads the predictions document returned for a job.
// Every missing level resolves to an empty result rather than an error:
// no predictions, no models, no grouped predictions and no emotions all
// yield empty score lists. Prosody is only read for video.
func ParsePredictions(raw []byte, mediaType string) ModelEmotions {
	doc := gjson.ParseBytes(raw)

	// the API returns a top-level array; older payloads wrap it in "predictions"
	sources := doc
	if !doc.IsArray() {
		sources = doc.Get("predictions")
	}
	models := sources.Get("0.results.predictions.0.models")

	out := ModelEmotions{Face: extractEmotions(models.Get(ModelFace))}
	if mediaType == media.TypeVideo {
		out.Prosody = extractEmotions(models.Get(ModelProsody))
	}
	return out
}

// extractEmotions reads grouped_predictions[0].predictions[0].emotions.
// A repeated name keeps its first position and takes the last score.
func extractEmotions(model gjson.Result) EmotionScores {
	emotions := model.Get("grouped_predictions.0.predictions.0.emotions")
	if !emotions.IsArray() {
		return EmotionScores{}
	}

	out := EmotionScores{}
	index := make(map[string]int)
	emotions.ForEach(func(_, item gjson.Result) bool {
		name := unknownEmotionName
		if n := item.Get("name"); n.Exists() {
			name = n.String()
		}
		score := 0.0
		if s := item.Get("score"); s.Exists() {
			score = s.Float()
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			score = 0
		}
		if i, ok := index[name]; ok {
			out[i].Score = score
			return true
		}
		index[name] = len(out)
		out = append(out, EmotionScore{Name: name, Score: score})
		return true
	})
	return out
}
