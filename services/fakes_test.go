package services

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeStore struct {
	err  error
	keys []string
}

func (s *fakeStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.keys = append(s.keys, key)
	return "https://media.example/" + key + "?ttl=" + ttl.String(), nil
}

func (s *fakeStore) PresignPut(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://media.example/" + key, nil
}

// fakeProvider replays a scripted sequence of job statuses
type fakeProvider struct {
	mu          sync.Mutex
	statuses    []string // last status repeats
	statusErr   error
	statusDelay time.Duration // each status call blocks this long unless ctx ends first
	submitErr   error
	predictions []byte
	submitted   []string
	models      [][]string
	polls       int
	fetched     bool
}

func (p *fakeProvider) SubmitJob(_ context.Context, mediaURL string, models []string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.submitErr != nil {
		return "", p.submitErr
	}
	p.submitted = append(p.submitted, mediaURL)
	p.models = append(p.models, models)
	return "job-1", nil
}

func (p *fakeProvider) GetJobStatus(ctx context.Context, _ string) (string, error) {
	if p.statusDelay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.statusDelay):
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.statusErr != nil {
		return "", p.statusErr
	}
	i := p.polls
	if i >= len(p.statuses) {
		i = len(p.statuses) - 1
	}
	p.polls++
	return p.statuses[i], nil
}

func (p *fakeProvider) GetJobPredictions(_ context.Context, _ string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetched = true
	if p.predictions == nil {
		return nil, errors.New("no predictions scripted")
	}
	return p.predictions, nil
}

type fakeNarrative struct {
	text       string
	err        error
	calls      int
	lastSystem string
	lastUser   string
	lastSchema ResponseSchema
	delay      time.Duration
}

func (n *fakeNarrative) Generate(ctx context.Context, systemPrompt, userPrompt string, schema ResponseSchema) (string, error) {
	n.calls++
	n.lastSystem = systemPrompt
	n.lastUser = userPrompt
	n.lastSchema = schema
	if n.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(n.delay):
		}
	}
	return n.text, n.err
}
