package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultXAIBaseURL = "https://api.x.ai/v1"
	DefaultXAIModel   = "grok-beta"
)

type xaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type xaiRequest struct {
	Model       string       `json:"model"`
	Messages    []xaiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature float64      `json:"temperature"`
}

type xaiResponse struct {
	Choices []struct {
		Message xaiMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// XAIClient calls the xAI (Grok) chat completions API.
type XAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewXAIClient(apiKey, baseURL, model string, timeout time.Duration) (*XAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: xAI API key is required", ErrModelUnavailable)
	}
	if baseURL == "" {
		baseURL = DefaultXAIBaseURL
	}
	if model == "" {
		model = DefaultXAIModel
	}
	return &XAIClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *XAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := xaiRequest{
		Model: c.model,
		Messages: []xaiMessage{
			{Role: "system", Content: "You write landing page copy and answer with a single JSON object."},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   2048,
		Temperature: 0.7,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var xaiResp xaiResponse
	if err := json.Unmarshal(body, &xaiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if xaiResp.Error != nil {
		return "", fmt.Errorf("API error: %s", xaiResp.Error.Message)
	}
	if len(xaiResp.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}
	return strings.TrimSpace(xaiResp.Choices[0].Message.Content), nil
}
