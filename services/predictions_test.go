package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const videoPredictions = `[
  {
    "source": {"type": "url", "url": "https://bucket/x.mp4"},
    "results": {
      "predictions": [
        {
          "file": "x.mp4",
          "models": {
            "face": {"grouped_predictions": [{"id": "unknown", "predictions": [{"frame": 0, "emotions": [
              {"name": "anxiety", "score": 0.6},
              {"name": "fear", "score": 0.2},
              {"name": "disgust", "score": 0.1}
            ]}]}]},
            "prosody": {"grouped_predictions": [{"id": "unknown", "predictions": [{"text": "hi", "emotions": [
              {"name": "excitement", "score": 0.5},
              {"name": "joy", "score": 0.4}
            ]}]}]}
          }
        }
      ],
      "errors": []
    }
  }
]`

func TestParsePredictions_Video(t *testing.T) {
	got := ParsePredictions([]byte(videoPredictions), "video")

	assert.Equal(t, EmotionScores{{"anxiety", 0.6}, {"fear", 0.2}, {"disgust", 0.1}}, got.Face)
	assert.Equal(t, EmotionScores{{"excitement", 0.5}, {"joy", 0.4}}, got.Prosody)
}

func TestParsePredictions_ImageIgnoresProsody(t *testing.T) {
	got := ParsePredictions([]byte(videoPredictions), "image")
	assert.Len(t, got.Face, 3)
	assert.Empty(t, got.Prosody)
}

func TestParsePredictions_WrappedDocument(t *testing.T) {
	raw := `{"predictions": ` + videoPredictions + `}`
	got := ParsePredictions([]byte(raw), "video")
	assert.Len(t, got.Face, 3)
	assert.Len(t, got.Prosody, 2)
}

func TestParsePredictions_MissingLevelsAreEmpty(t *testing.T) {
	docs := []string{
		``,
		`[]`,
		`{}`,
		`[{"results": {}}]`,
		`[{"results": {"predictions": []}}]`,
		`[{"results": {"predictions": [{"models": {}}]}}]`,
		`[{"results": {"predictions": [{"models": {"face": {"grouped_predictions": []}}}]}}]`,
		`[{"results": {"predictions": [{"models": {"face": {"grouped_predictions": [{"predictions": []}]}}}]}}]`,
		`[{"results": {"predictions": [{"models": {"face": {"grouped_predictions": [{"predictions": [{}]}]}}}]}}]`,
	}
	for _, doc := range docs {
		got := ParsePredictions([]byte(doc), "video")
		assert.Empty(t, got.Face, "doc %q", doc)
		assert.Empty(t, got.Prosody, "doc %q", doc)
	}
}

func TestParsePredictions_ItemDefaults(t *testing.T) {
	raw := `[{"results": {"predictions": [{"models": {"face": {"grouped_predictions": [{"predictions": [{"emotions": [
		{"score": 0.3},
		{"name": "joy"},
		{"name": "calmness", "score": 0.1},
		{"name": "calmness", "score": 0.7}
	]}]}]}}}]}}]`

	got := ParsePredictions([]byte(raw), "image")
	assert.Equal(t, EmotionScores{{"unknown", 0.3}, {"joy", 0}, {"calmness", 0.7}}, got.Face)
}

func TestEmotionScoresMap(t *testing.T) {
	assert.Nil(t, EmotionScores{}.Map())
	assert.Equal(t, map[string]float64{"joy": 0.5}, EmotionScores{{"joy", 0.5}}.Map())
	assert.Equal(t, 0.0, EmotionScores{{"joy", 0.5}}.Get("fear"))
}
