package services

import "errors"

var (
	// ErrAnalysisFailed means the emotion provider reported the job as failed or cancelled
	ErrAnalysisFailed = errors.New("analysis failed")
	// ErrAnalysisTimedOut means the job did not complete within the polling budget
	ErrAnalysisTimedOut = errors.New("analysis timed out")
	// ErrGenerationFailed means the narrative provider call failed or returned an unusable response
	ErrGenerationFailed = errors.New("generation failed")
)
