/*
 * This file is part of Speechy (https://github.com/speechy/speechy).
 * Copyright (C) 2025 Speechy
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/speechy/speechy/internal/logging"
)

var (
	// ErrUnreachable means the Ollama server could not be contacted.
	ErrUnreachable = errors.New("ollama server unreachable")
	// ErrTimeout means a correction request exceeded its deadline.
	ErrTimeout = errors.New("ollama request timed out")
	// ErrEmptyResponse means the model produced no usable text.
	ErrEmptyResponse = errors.New("ollama returned an empty response")
)

const (
	availabilityTimeout = 5 * time.Second
	correctTimeout      = 30 * time.Second
)

type generateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	System  string                 `json:"system,omitempty"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Client talks to a local Ollama server to clean up raw transcripts.
type Client struct {
	mu          sync.RWMutex
	model       string
	baseURL     string
	httpClient  *http.Client
	prompts     *PromptManager
	temperature float64
}

// NewClient creates a client for the given server URL and model. The
// prompt manager decides which system prompt each correction carries.
func NewClient(baseURL, model string, prompts *PromptManager) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if prompts == nil {
		prompts = NewPromptManager(StrategyTranscription)
	}
	return &Client{
		model:       model,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: correctTimeout},
		prompts:     prompts,
		temperature: 0.3,
	}
}

// Model returns the model currently used for corrections.
func (c *Client) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// SetModel switches the correction model. Takes effect on the next request.
func (c *Client) SetModel(model string) {
	c.mu.Lock()
	c.model = model
	c.mu.Unlock()
	if logging.Sugar != nil {
		logging.Sugar.Infow("Correction model changed", "model", model)
	}
}

// Prompts exposes the prompt manager for strategy changes.
func (c *Client) Prompts() *PromptManager {
	return c.prompts
}

// SetStrategy switches the correction prompt strategy.
func (c *Client) SetStrategy(strategy string) error {
	return c.prompts.SetStrategy(strategy)
}

// IsAvailable probes the server with a short deadline. It never blocks
// longer than five seconds, so it is safe to call from startup paths.
func (c *Client) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, availabilityTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.LogWarn("Ollama availability probe failed", zap.Error(err))
		return false
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.LogWarn("failed to close response body")
		}
	}()
	return resp.StatusCode == http.StatusOK
}

// ListModels returns the model names the server has pulled.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.LogWarn("failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list models failed with status %d", resp.StatusCode)
	}

	var payload struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse model list: %w", err)
	}

	names := make([]string, 0, len(payload.Models))
	for _, m := range payload.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Correct sends raw transcript text through the active system prompt and
// returns the cleaned version. The request is bounded at thirty seconds.
func (c *Client) Correct(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}

	ctx, cancel := context.WithTimeout(ctx, correctTimeout)
	defer cancel()

	reqBody := generateRequest{
		Model:  c.Model(),
		Prompt: text,
		System: c.prompts.SystemPrompt(),
		Stream: false,
		Options: map[string]interface{}{
			"temperature": c.temperature,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || (ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, correctTimeout)
		}
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.LogWarn("failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("generate failed with status %d: %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("failed to parse generate response: %w", err)
	}
	if genResp.Error != "" {
		return "", fmt.Errorf("ollama error: %s", genResp.Error)
	}

	corrected := strings.TrimSpace(genResp.Response)
	if corrected == "" {
		return "", ErrEmptyResponse
	}

	if logging.Sugar != nil {
		logging.Sugar.Infow("🧠 Transcript corrected",
			"model", reqBody.Model,
			"strategy", c.prompts.Strategy(),
			"duration_ms", time.Since(start).Milliseconds(),
			"input_length", len(text),
			"output_length", len(corrected),
		)
	}
	return corrected, nil
}
