package comfyui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/karthik-excrin/shootx-v2/internal/poll"
)

// ErrGenerationTimeout means the polling ceiling was exhausted without the
// backend reporting completion. Distinct from backend-reported failures so
// the two show up differently in logs.
var ErrGenerationTimeout = errors.New("try-on generation timed out")

// ErrMalformedOutput means the backend reported completion but the expected
// output image was missing from the payload.
var ErrMalformedOutput = errors.New("completion payload missing output image")

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	pollCfg    poll.Config
	logger     *zap.Logger
}

type SubmitResponse struct {
	PromptID   string      `json:"prompt_id"`
	Number     int         `json:"number"`
	NodeErrors interface{} `json:"node_errors"`
}

type historyEntry struct {
	Status struct {
		Completed bool `json:"completed"`
	} `json:"status"`
	Outputs map[string]struct {
		Images []struct {
			Filename string `json:"filename"`
		} `json:"images"`
	} `json:"outputs"`
}

func NewClient(baseURL, apiKey string, pollCfg poll.Config, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		pollCfg: pollCfg,
		logger:  logger,
	}
}

// Generate runs one try-on generation end to end: submit the workflow, wait
// for completion, return the URL of the result image. There is no retry; a
// failed generation is failed for good.
func (c *Client) Generate(ctx context.Context, customerImage, garmentImage string) (string, error) {
	promptID, err := c.SubmitWorkflow(ctx, BuildTryOnWorkflow(customerImage, garmentImage))
	if err != nil {
		return "", err
	}

	return c.WaitForResult(ctx, promptID)
}

// SubmitWorkflow posts a workflow to the backend and returns the opaque
// prompt token used to poll for completion.
func (c *Client) SubmitWorkflow(ctx context.Context, workflow PromptRequest) (string, error) {
	jsonData, err := json.Marshal(workflow)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/prompt", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to submit workflow: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to submit workflow: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode submit response: %w", err)
	}

	if result.PromptID == "" {
		return "", fmt.Errorf("prompt_id is empty in submit response")
	}

	return result.PromptID, nil
}

// WaitForResult polls the history endpoint until the prompt completes or the
// attempt ceiling runs out. Transient poll errors count as attempts and are
// not retried immediately.
func (c *Client) WaitForResult(ctx context.Context, promptID string) (string, error) {
	var resultURL string
	attempt := 0

	err := poll.Until(ctx, c.pollCfg, func(ctx context.Context) (bool, error) {
		attempt++

		entry, err := c.getHistory(ctx, promptID)
		if err != nil {
			c.logger.Warn("history poll failed",
				zap.String("prompt_id", promptID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return false, nil
		}

		if entry == nil || !entry.Status.Completed {
			return false, nil
		}

		output, ok := entry.Outputs[saveImageNode]
		if !ok || len(output.Images) == 0 || output.Images[0].Filename == "" {
			return true, ErrMalformedOutput
		}

		resultURL = c.viewURL(output.Images[0].Filename)
		return true, nil
	})
	if err != nil {
		if errors.Is(err, poll.ErrCeilingExceeded) {
			c.logger.Error("generation timed out",
				zap.String("prompt_id", promptID),
				zap.Int("attempts", attempt))
			return "", ErrGenerationTimeout
		}
		return "", err
	}

	return resultURL, nil
}

func (c *Client) getHistory(ctx context.Context, promptID string) (*historyEntry, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/history/"+promptID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get history: status %d, body: %s", resp.StatusCode, string(body))
	}

	var history map[string]historyEntry
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return nil, fmt.Errorf("failed to decode history response: %w", err)
	}

	entry, ok := history[promptID]
	if !ok {
		return nil, nil
	}

	return &entry, nil
}

func (c *Client) viewURL(filename string) string {
	return c.baseURL + "/view?filename=" + url.QueryEscape(filename)
}
