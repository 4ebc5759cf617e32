package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/camden-git/echobackend/database"
	"github.com/camden-git/echobackend/media"
	"github.com/camden-git/echobackend/metrics"
	"github.com/camden-git/echobackend/models"
	"github.com/camden-git/echobackend/repository"
)

// pipeline stages, used in logs and metrics
const (
	StageExtract  = "extract"
	StageGenerate = "generate"
	StagePersist  = "persist"
	StageQueue    = "queue" // never started
)

// Extractor produces signals for a stored check-in
type Extractor interface {
	Extract(ctx context.Context, mediaKey, mediaType string) (SignalPayload, error)
}

// Generator produces the reflection for a set of signals
type Generator interface {
	Generate(ctx context.Context, signals ReflectionSignals, checkin CheckinContext) (ReflectionOutput, error)
}

// EntryFinalizer applies the terminal transition of an entry
type EntryFinalizer interface {
	MarkComplete(id string, result models.EntryResult) (*models.MoodEntry, error)
	MarkFailed(id string, errorMessage string) (*models.MoodEntry, error)
}

// StatusNotifier is told about every entry that reaches a terminal state
type StatusNotifier interface {
	NotifyEntry(entry *models.MoodEntry)
}

// ProcessRequest identifies the check-in to process
type ProcessRequest struct {
	EntryID   string
	MediaKey  string
	MediaType string
	Context   CheckinContext
}

// Outcome is the terminal result of processing one entry
type Outcome struct {
	EntryID      string
	Status       string // status held by the store after processing
	Stage        string // stage that failed, empty on success
	ErrorMessage string
	Entry        *models.MoodEntry // nil if the store could not be updated
}

// Pipeline drives an entry from processing to a terminal state
type Pipeline struct {
	extractor Extractor
	generator Generator
	entries   EntryFinalizer
	notifier  StatusNotifier
	now       func() time.Time
}

// NewPipeline wires the two stages to the entry store. notifier may be nil.
func NewPipeline(extractor Extractor, generator Generator, entries EntryFinalizer, notifier StatusNotifier) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		generator: generator,
		entries:   entries,
		notifier:  notifier,
		now:       time.Now,
	}
}

// ProcessEntry runs extraction then generation and records the outcome.
// It never returns an error: every failure ends as a failed entry.
func (p *Pipeline) ProcessEntry(ctx context.Context, req ProcessRequest) Outcome {
	started := p.now()
	logger := log.WithFields(log.Fields{"entry_id": req.EntryID, "media_type": req.MediaType})

	signals, err := p.extract(ctx, req)
	if err != nil {
		return p.fail(logger, req.EntryID, StageExtract, err, started)
	}

	enriched := ReflectionSignals{
		SignalPayload: signals,
		MoodScore:     MoodScore(signals.StressScore, signals.EnergyScore),
		VoiceTone:     "N/A",
		SpeechSpeed:   "N/A",
	}
	if req.MediaType == media.TypeVideo {
		enriched.VoiceTone = "elevated"
		enriched.SpeechSpeed = "normal"
	}

	reflection, err := p.generate(ctx, enriched, req.Context)
	if err != nil {
		return p.fail(logger, req.EntryID, StageGenerate, err, started)
	}

	result, err := p.buildResult(signals, reflection)
	if err != nil {
		return p.fail(logger, req.EntryID, StagePersist, err, started)
	}

	entry, err := p.entries.MarkComplete(req.EntryID, result)
	if err != nil {
		logger.WithError(err).Error("failed to persist completed entry")
		metrics.ObservePipeline(database.StatusComplete, StagePersist, p.now().Sub(started))
		status := database.StatusProcessing
		if entry != nil {
			status = entry.Status
		}
		return Outcome{EntryID: req.EntryID, Status: status, Stage: StagePersist, ErrorMessage: err.Error(), Entry: entry}
	}

	logger.WithFields(log.Fields{
		"mood":    result.MoodScore,
		"energy":  result.EnergyScore,
		"stress":  result.StressScore,
		"primary": result.PrimaryMoodTag,
	}).Info("entry complete")
	metrics.ObservePipeline(database.StatusComplete, "", p.now().Sub(started))
	p.notify(entry)
	return Outcome{EntryID: req.EntryID, Status: database.StatusComplete, Entry: entry}
}

// AbandonEntry fails an entry that was accepted but will never be processed
func (p *Pipeline) AbandonEntry(entryID, reason string) Outcome {
	logger := log.WithField("entry_id", entryID)
	return p.fail(logger, entryID, StageQueue, errors.New(reason), p.now())
}

func (p *Pipeline) extract(ctx context.Context, req ProcessRequest) (signals SignalPayload, err error) {
	defer recoverStage(StageExtract, &err)
	stageStart := p.now()
	signals, err = p.extractor.Extract(ctx, req.MediaKey, req.MediaType)
	metrics.ObserveStage(StageExtract, err, p.now().Sub(stageStart))
	return signals, err
}

func (p *Pipeline) generate(ctx context.Context, signals ReflectionSignals, checkin CheckinContext) (out ReflectionOutput, err error) {
	defer recoverStage(StageGenerate, &err)
	stageStart := p.now()
	out, err = p.generator.Generate(ctx, signals, checkin)
	metrics.ObserveStage(StageGenerate, err, p.now().Sub(stageStart))
	return out, err
}

func recoverStage(stage string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s stage panicked: %v", stage, r)
	}
}

// buildResult recomputes the mood score from the signals rather than trusting
// anything echoed back by the generator
func (p *Pipeline) buildResult(signals SignalPayload, reflection ReflectionOutput) (models.EntryResult, error) {
	facial, err := json.Marshal(map[string]interface{}{
		"top_emotions":  nonNilEmotions(signals.TopEmotions),
		"facial_scores": nonNilScores(signals.FacialScores.Map()),
	})
	if err != nil {
		return models.EntryResult{}, fmt.Errorf("encode facial analysis: %w", err)
	}

	var voice datatypes.JSON
	if len(signals.VoiceScores) > 0 {
		voice, err = json.Marshal(signals.VoiceScores.Map())
		if err != nil {
			return models.EntryResult{}, fmt.Errorf("encode voice analysis: %w", err)
		}
	}

	eye, err := json.Marshal(map[string]string{"generated_at": p.now().UTC().Format(time.RFC3339)})
	if err != nil {
		return models.EntryResult{}, fmt.Errorf("encode eye analysis: %w", err)
	}

	return models.EntryResult{
		PrimaryMoodTag:      models.SanitizeMoodTag(reflection.PrimaryMoodTag),
		SecondaryMoodTag:    models.SanitizeMoodTag(reflection.SecondaryMoodTag),
		MoodSummary:         reflection.MoodSummary,
		EmotionalInsight:    reflection.EmotionalInsight,
		ReflectionParagraph: reflection.ReflectionParagraph,
		EnergyScore:         ClampScore(signals.EnergyScore),
		StressScore:         ClampScore(signals.StressScore),
		MoodScore:           MoodScore(signals.StressScore, signals.EnergyScore),
		FacialAnalysis:      datatypes.JSON(facial),
		VoiceAnalysis:       voice,
		EyeAnalysis:         datatypes.JSON(eye),
	}, nil
}

func (p *Pipeline) fail(logger *log.Entry, entryID, stage string, cause error, started time.Time) Outcome {
	msg := database.TruncateErrorMessage(cause.Error())
	logger.WithError(cause).WithField("stage", stage).Warn("entry failed")
	metrics.ObservePipeline(database.StatusFailed, stage, p.now().Sub(started))

	entry, err := p.entries.MarkFailed(entryID, msg)
	if err != nil {
		if errors.Is(err, repository.ErrEntryFinalized) {
			logger.WithError(err).Warn("entry was already finalized")
		} else {
			logger.WithError(err).Error("failed to persist failed entry")
		}
		status := database.StatusProcessing
		if entry != nil {
			status = entry.Status
		}
		return Outcome{EntryID: entryID, Status: status, Stage: stage, ErrorMessage: msg, Entry: entry}
	}
	p.notify(entry)
	return Outcome{EntryID: entryID, Status: database.StatusFailed, Stage: stage, ErrorMessage: msg, Entry: entry}
}

func (p *Pipeline) notify(entry *models.MoodEntry) {
	if p.notifier != nil && entry != nil {
		p.notifier.NotifyEntry(entry)
	}
}

func nonNilEmotions(e []EmotionScore) []EmotionScore {
	if e == nil {
		return []EmotionScore{}
	}
	return e
}

func nonNilScores(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
