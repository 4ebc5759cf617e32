package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// job states reported by the emotion provider
const (
	JobQueued     = "QUEUED"
	JobInProgress = "IN_PROGRESS"
	JobCompleted  = "COMPLETED"
	JobFailed     = "FAILED"
	JobCancelled  = "CANCELLED"
)

// provider model names
const (
	ModelFace    = "face"
	ModelProsody = "prosody"
)

const maxResponseBytes = 10 << 20

// EmotionProvider is the batch expression-measurement API the extractor drives
type EmotionProvider interface {
	SubmitJob(ctx context.Context, mediaURL string, models []string) (string, error)
	GetJobStatus(ctx context.Context, jobID string) (string, error)
	GetJobPredictions(ctx context.Context, jobID string) ([]byte, error)
}

// HumeClient talks to the Hume batch API over HTTP
type HumeClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHumeClient creates a client. requestsPerSecond <= 0 disables throttling.
func NewHumeClient(baseURL, apiKey string, requestsPerSecond int, httpClient *http.Client) *HumeClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
	return &HumeClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

// SubmitJob starts a batch inference job for a single media URL
func (c *HumeClient) SubmitJob(ctx context.Context, mediaURL string, models []string) (string, error) {
	modelConfig := make(map[string]struct{}, len(models))
	for _, m := range models {
		modelConfig[m] = struct{}{}
	}
	body, err := json.Marshal(map[string]interface{}{
		"urls":   []string{mediaURL},
		"models": modelConfig,
	})
	if err != nil {
		return "", fmt.Errorf("hume: encode job request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/batch/jobs", body)
	if err != nil {
		return "", err
	}
	jobID := gjson.GetBytes(resp, "job_id").String()
	if jobID == "" {
		return "", errors.New("hume: job submission returned no job_id")
	}
	return jobID, nil
}

// GetJobStatus returns the job's state.status value, or "" when absent
func (c *HumeClient) GetJobStatus(ctx context.Context, jobID string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/batch/jobs/"+jobID, nil)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(resp, "state.status").String(), nil
}

// GetJobPredictions returns the raw predictions document
func (c *HumeClient) GetJobPredictions(ctx context.Context, jobID string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/batch/jobs/"+jobID+"/predictions", nil)
}

func (c *HumeClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("hume: rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("hume: build request %s %s: %w", method, path, err)
	}
	req.Header.Set("X-Hume-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hume: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("hume: read response for %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(data, "message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return nil, fmt.Errorf("hume: %s %s returned %d: %s", method, path, resp.StatusCode, msg)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("hume: %s %s returned invalid JSON", method, path)
	}
	return data, nil
}
