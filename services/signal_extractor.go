package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/camden-git/echobackend/media"
)

// SignalExtractor runs a check-in through the emotion provider and derives signals
type SignalExtractor struct {
	store        media.Store
	provider     EmotionProvider
	urlTTL       time.Duration
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// ExtractorOptions tunes how long the extractor waits on the provider
type ExtractorOptions struct {
	URLTTL       time.Duration
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// NewSignalExtractor creates an extractor. Zero options fall back to
// a 300s URL lifetime, a 2s poll interval and a 30s budget.
func NewSignalExtractor(store media.Store, provider EmotionProvider, opts ExtractorOptions) *SignalExtractor {
	if opts.URLTTL <= 0 {
		opts.URLTTL = 300 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30 * time.Second
	}
	return &SignalExtractor{
		store:        store,
		provider:     provider,
		urlTTL:       opts.URLTTL,
		pollInterval: opts.PollInterval,
		pollTimeout:  opts.PollTimeout,
	}
}

// Extract analyses the object at mediaKey and returns its signals
func (e *SignalExtractor) Extract(ctx context.Context, mediaKey, mediaType string) (SignalPayload, error) {
	mediaURL, err := e.store.PresignGet(ctx, mediaKey, e.urlTTL)
	if err != nil {
		return SignalPayload{}, fmt.Errorf("resolve media url: %w", err)
	}

	models := []string{ModelFace}
	if mediaType == media.TypeVideo {
		models = append(models, ModelProsody)
	}

	jobID, err := e.provider.SubmitJob(ctx, mediaURL, models)
	if err != nil {
		return SignalPayload{}, fmt.Errorf("submit analysis job: %w", err)
	}
	logger := log.WithFields(log.Fields{"job_id": jobID, "media_type": mediaType})
	logger.Debug("analysis job submitted")

	if err := e.waitForCompletion(ctx, jobID); err != nil {
		return SignalPayload{}, err
	}

	raw, err := e.provider.GetJobPredictions(ctx, jobID)
	if err != nil {
		return SignalPayload{}, fmt.Errorf("fetch predictions for job %s: %w", jobID, err)
	}

	signals := DeriveSignals(ParsePredictions(raw, mediaType))
	logger.WithFields(log.Fields{
		"face_emotions":    len(signals.FacialScores),
		"prosody_emotions": len(signals.VoiceScores),
		"energy":           signals.EnergyScore,
		"stress":           signals.StressScore,
	}).Debug("analysis job parsed")
	return signals, nil
}

// waitForCompletion polls until the job completes, fails, or the budget runs out.
// The budget also bounds each status call.
func (e *SignalExtractor) waitForCompletion(ctx context.Context, jobID string) error {
	pollCtx, cancel := context.WithTimeout(ctx, e.pollTimeout)
	defer cancel()

	for {
		status, err := e.provider.GetJobStatus(pollCtx, jobID)
		if err != nil {
			if budgetExpired(ctx, pollCtx) {
				return e.timedOut(jobID)
			}
			return fmt.Errorf("poll analysis job %s: %w", jobID, err)
		}
		switch status {
		case JobCompleted:
			return nil
		case JobFailed, JobCancelled:
			return fmt.Errorf("%w: job %s reported %s", ErrAnalysisFailed, jobID, status)
		}

		select {
		case <-pollCtx.Done():
			if budgetExpired(ctx, pollCtx) {
				return e.timedOut(jobID)
			}
			return fmt.Errorf("poll analysis job %s: %w", jobID, ctx.Err())
		case <-time.After(e.pollInterval):
		}
	}
}

// budgetExpired is true when pollCtx hit its own deadline while ctx is still live
func budgetExpired(ctx, pollCtx context.Context) bool {
	return ctx.Err() == nil && errors.Is(pollCtx.Err(), context.DeadlineExceeded)
}

func (e *SignalExtractor) timedOut(jobID string) error {
	return fmt.Errorf("%w: job %s did not complete within %s", ErrAnalysisTimedOut, jobID, e.pollTimeout)
}
