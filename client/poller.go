// Package client is a Go client for the try-on service: submit a request,
// then poll its status until a terminal state or the attempt ceiling.
//
// The polling loop mirrors the storefront widget: a fixed 2-second interval,
// 60 attempts, and any network error during a poll aborts immediately rather
// than being retried.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// State of a try-on session as seen by the polling client.
type State string

const (
	StateIdle      State = "idle"
	StateUploading State = "uploading"
	StateSubmitted State = "submitted"
	StatePolling   State = "polling"
	StateDone      State = "done"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed-out"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxAttempts  = 60
)

// ErrGenerationFailed means the server reported the generation as failed.
var ErrGenerationFailed = errors.New("try-on generation failed")

// ErrPollTimeout means the attempt ceiling passed without a terminal status.
var ErrPollTimeout = errors.New("try-on polling timed out")

type Submission struct {
	Shop          string
	ProductID     string
	ProductTitle  string
	ProductImage  string
	CustomerImage string
}

type submitResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"requestId"`
	Error     string `json:"error"`
}

type statusResponse struct {
	Status      string  `json:"status"`
	ResultImage *string `json:"resultImage"`
	Error       string  `json:"error"`
}

type Poller struct {
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	maxAttempts  int

	state State
}

type Option func(*Poller)

// WithPollInterval overrides the 2-second default between status checks.
func WithPollInterval(d time.Duration) Option {
	return func(p *Poller) { p.pollInterval = d }
}

// WithMaxAttempts overrides the 60-attempt default polling ceiling.
func WithMaxAttempts(n int) Option {
	return func(p *Poller) { p.maxAttempts = n }
}

// WithHTTPClient overrides the default http client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Poller) { p.httpClient = c }
}

func New(baseURL string, opts ...Option) *Poller {
	p := &Poller{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: defaultPollInterval,
		maxAttempts:  defaultMaxAttempts,
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current position in the session state machine.
func (p *Poller) State() State {
	return p.state
}

// Run submits a try-on and polls until the result is ready. It returns the
// result image URL on success. On error the poller's state records how the
// session ended: failed for server-reported or network errors, timed-out for
// ceiling exhaustion.
func (p *Poller) Run(ctx context.Context, sub Submission) (string, error) {
	requestID, err := p.Submit(ctx, sub)
	if err != nil {
		p.state = StateFailed
		return "", err
	}

	return p.Poll(ctx, requestID)
}

// Submit posts the submission form and returns the request id.
func (p *Poller) Submit(ctx context.Context, sub Submission) (string, error) {
	p.state = StateUploading

	form := url.Values{}
	form.Set("shop", sub.Shop)
	form.Set("productId", sub.ProductID)
	form.Set("productTitle", sub.ProductTitle)
	form.Set("productImage", sub.ProductImage)
	form.Set("customerImage", sub.CustomerImage)

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/api/tryon",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to submit try-on: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var result submitResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !result.Success {
		msg := result.Error
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("try-on submission rejected: %s", msg)
	}

	p.state = StateSubmitted
	return result.RequestID, nil
}

// Poll reads the status endpoint until a terminal state or the ceiling.
// A network or decode error on any attempt aborts the loop immediately.
func (p *Poller) Poll(ctx context.Context, requestID string) (string, error) {
	p.state = StatePolling

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		status, err := p.getStatus(ctx, requestID)
		if err != nil {
			p.state = StateFailed
			return "", err
		}

		switch {
		case status.Status == "completed" && status.ResultImage != nil:
			p.state = StateDone
			return *status.ResultImage, nil
		case status.Status == "failed":
			p.state = StateFailed
			return "", ErrGenerationFailed
		}

		select {
		case <-ctx.Done():
			p.state = StateFailed
			return "", ctx.Err()
		case <-time.After(p.pollInterval):
		}
	}

	p.state = StateTimedOut
	return "", ErrPollTimeout
}

func (p *Poller) getStatus(ctx context.Context, requestID string) (*statusResponse, error) {
	statusURL := p.baseURL + "/api/tryon-status?requestId=" + url.QueryEscape(requestID)
	req, err := http.NewRequestWithContext(ctx, "GET", statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to poll status: %w", err)
	}
	defer resp.Body.Close()

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := status.Error
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("status check failed: %s", msg)
	}

	return &status, nil
}
