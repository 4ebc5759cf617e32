package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastExtractor(store *fakeStore, provider *fakeProvider) *SignalExtractor {
	return NewSignalExtractor(store, provider, ExtractorOptions{
		URLTTL:       time.Minute,
		PollInterval: 5 * time.Millisecond,
		PollTimeout:  60 * time.Millisecond,
	})
}

func TestExtract_VideoSuccess(t *testing.T) {
	store := &fakeStore{}
	provider := &fakeProvider{
		statuses:    []string{JobQueued, JobInProgress, JobCompleted},
		predictions: []byte(videoPredictions),
	}

	signals, err := fastExtractor(store, provider).Extract(context.Background(), "uploads/u1/a.mp4", "video")
	require.NoError(t, err)

	assert.Equal(t, []string{"uploads/u1/a.mp4"}, store.keys)
	require.Len(t, provider.models, 1)
	assert.Equal(t, []string{ModelFace, ModelProsody}, provider.models[0])
	assert.Equal(t, 3, provider.polls)

	assert.Equal(t, 38, signals.StressScore)
	assert.Equal(t, 30, signals.EnergyScore) // prosody: 0.4·0.5 + 0.25·0.4
	assert.Len(t, signals.TopEmotions, 3)
	assert.Len(t, signals.VoiceScores, 2)
}

func TestExtract_ImageRequestsFaceOnly(t *testing.T) {
	provider := &fakeProvider{statuses: []string{JobCompleted}, predictions: []byte(videoPredictions)}

	signals, err := fastExtractor(&fakeStore{}, provider).Extract(context.Background(), "k.jpg", "image")
	require.NoError(t, err)
	assert.Equal(t, []string{ModelFace}, provider.models[0])
	assert.Empty(t, signals.VoiceScores)
	assert.Equal(t, 0, signals.EnergyScore) // face has none of the energy emotions
}

func TestExtract_VideoWithEmptyProsodyUsesFace(t *testing.T) {
	raw := `[{"results": {"predictions": [{"models": {
		"face": {"grouped_predictions": [{"predictions": [{"emotions": [{"name": "joy", "score": 0.8}]}]}]},
		"prosody": {"grouped_predictions": []}
	}}]}}]`
	provider := &fakeProvider{statuses: []string{JobCompleted}, predictions: []byte(raw)}

	signals, err := fastExtractor(&fakeStore{}, provider).Extract(context.Background(), "k.mp4", "video")
	require.NoError(t, err)
	assert.Equal(t, 20, signals.EnergyScore)
	assert.Empty(t, signals.VoiceScores)
}

func TestExtract_JobFailure(t *testing.T) {
	for _, status := range []string{JobFailed, JobCancelled} {
		t.Run(status, func(t *testing.T) {
			provider := &fakeProvider{statuses: []string{JobInProgress, status}}
			_, err := fastExtractor(&fakeStore{}, provider).Extract(context.Background(), "k", "image")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrAnalysisFailed)
			assert.False(t, errors.Is(err, ErrAnalysisTimedOut))
			assert.False(t, provider.fetched)
		})
	}
}

func TestExtract_Timeout(t *testing.T) {
	provider := &fakeProvider{statuses: []string{"RUNNING"}}

	started := time.Now()
	_, err := fastExtractor(&fakeStore{}, provider).Extract(context.Background(), "k", "video")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAnalysisTimedOut)
	assert.False(t, provider.fetched)
	assert.GreaterOrEqual(t, time.Since(started), 60*time.Millisecond)
	assert.Greater(t, provider.polls, 1)
}

func TestExtract_ContextCancelled(t *testing.T) {
	provider := &fakeProvider{statuses: []string{JobInProgress}}
	extractor := NewSignalExtractor(&fakeStore{}, provider, ExtractorOptions{
		PollInterval: time.Second,
		PollTimeout:  time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := extractor.Extract(ctx, "k", "image")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExtract_HangingStatusCallIsBoundedByBudget(t *testing.T) {
	provider := &fakeProvider{statuses: []string{JobCompleted}, statusDelay: 2 * time.Second}
	extractor := NewSignalExtractor(&fakeStore{}, provider, ExtractorOptions{
		PollInterval: 5 * time.Millisecond,
		PollTimeout:  60 * time.Millisecond,
	})

	started := time.Now()
	_, err := extractor.Extract(context.Background(), "k", "image")
	elapsed := time.Since(started)

	assert.ErrorIs(t, err, ErrAnalysisTimedOut)
	assert.Less(t, elapsed, time.Second)
	assert.False(t, provider.fetched)
}

func TestExtract_CollaboratorErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := fastExtractor(&fakeStore{err: boom}, &fakeProvider{}).Extract(context.Background(), "k", "image")
	assert.ErrorIs(t, err, boom)

	_, err = fastExtractor(&fakeStore{}, &fakeProvider{submitErr: boom}).Extract(context.Background(), "k", "image")
	assert.ErrorIs(t, err, boom)

	_, err = fastExtractor(&fakeStore{}, &fakeProvider{statusErr: boom}).Extract(context.Background(), "k", "image")
	assert.ErrorIs(t, err, boom)

	_, err = fastExtractor(&fakeStore{}, &fakeProvider{statuses: []string{JobCompleted}}).Extract(context.Background(), "k", "image")
	assert.Error(t, err)
}

func TestNewSignalExtractorDefaults(t *testing.T) {
	e := NewSignalExtractor(&fakeStore{}, &fakeProvider{}, ExtractorOptions{})
	assert.Equal(t, 300*time.Second, e.urlTTL)
	assert.Equal(t, 2*time.Second, e.pollInterval)
	assert.Equal(t, 30*time.Second, e.pollTimeout)
}
