package services

import (
	"math"
	"sort"
)

// TopEmotionCount is how many facial emotions are kept in the ranked list
const TopEmotionCount = 5

// SignalPayload is the normalized output of signal extraction
type SignalPayload struct {
	TopEmotions  []EmotionScore
	FacialScores EmotionScores
	VoiceScores  EmotionScores // empty for images and for videos without prosody groupings
	EnergyScore  int
	StressScore  int
}

// DeriveSignals turns parsed model scores into the payload. Energy is taken
// from prosody when it is non-empty and from the face otherwise.
func DeriveSignals(emotions ModelEmotions) SignalPayload {
	energySource := emotions.Face
	if len(emotions.Prosody) > 0 {
		energySource = emotions.Prosody
	}
	return SignalPayload{
		TopEmotions:  RankEmotions(emotions.Face, TopEmotionCount),
		FacialScores: emotions.Face,
		VoiceScores:  emotions.Prosody,
		EnergyScore:  EnergyScore(energySource),
		StressScore:  StressScore(emotions.Face),
	}
}

// RankEmotions sorts by score descending, keeps provider order among equal
// scores, and truncates to n.
func RankEmotions(scores EmotionScores, n int) []EmotionScore {
	ranked := make([]EmotionScore, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// StressScore = round(100 × (0.5·anxiety + 0.3·fear + 0.2·disgust)), clamped to [0,100]
func StressScore(face EmotionScores) int {
	return percentScore(face.Get("anxiety")*0.5 + face.Get("fear")*0.3 + face.Get("disgust")*0.2)
}

// EnergyScore = round(100 × (0.4·excitement + 0.35·concentration + 0.25·joy)), clamped to [0,100]
func EnergyScore(source EmotionScores) int {
	return percentScore(source.Get("excitement")*0.4 + source.Get("concentration")*0.35 + source.Get("joy")*0.25)
}

// MoodScore = clamp(100 − stress + energy/2, 0, 100) with integer division
func MoodScore(stress, energy int) int {
	return ClampScore(100 - stress + energy/2)
}

// ClampScore bounds v to [0,100]
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func percentScore(weighted float64) int {
	v := math.RoundToEven(weighted * 100)
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}
