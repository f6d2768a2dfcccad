package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jlcedu/rechtszaal-backend/internal/courtroom"
	"github.com/jlcedu/rechtszaal-backend/internal/logger"
	"github.com/jlcedu/rechtszaal-backend/internal/utils"
)

const (
	defaultCompletionModel = "gpt-4o-mini"
	completionMaxTokens    = 300
	completionTemperature  = 0.8
)

// CompletionClient talks to an OpenAI-compatible chat completion API
// with the student's own key. It implements courtroom.Gateway and makes
// exactly one attempt per call; a transient failure surfaces as a
// system turn in the session rather than a retry loop.
type CompletionClient struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

func NewCompletionClient(log *logger.Logger) *CompletionClient {
	baseURL := utils.GetEnv("OPENAI_BASE_URL", "https://api.openai.com", log)
	timeoutSec := utils.GetEnvAsInt("OPENAI_TIMEOUT_SECONDS", 60, log)
	return &CompletionClient{
		log:        log.With("service", "CompletionClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *CompletionClient) Generate(ctx context.Context, credential, model string, prompt courtroom.Prompt) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", courtroom.ErrMissingCredential
	}
	if model == "" {
		model = defaultCompletionModel
	}

	payload := chatCompletionRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		MaxTokens:   completionMaxTokens,
		Temperature: completionTemperature,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", courtroom.ErrInvalidCredential
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", courtroom.ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", &courtroom.ProviderError{Status: resp.StatusCode, Body: truncateBody(body)}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", &courtroom.ProviderError{Status: resp.StatusCode, Body: "no choices in response"}
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", &courtroom.ProviderError{Status: resp.StatusCode, Body: "empty completion"}
	}
	return content, nil
}

func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
