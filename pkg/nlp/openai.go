package nlp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/sashabaranov/go-openai"
)

var thinkTags = regexp.MustCompile(`(?s)<think>.*?</think>`)

// NewOpenAIClient creates an OpenAI client. A BaseURL selects an
// OpenAI-compatible service (Ollama, vLLM, LM Studio, ...).
func NewOpenAIClient(config Config) (*openai.Client, error) {
	if config.BaseURL == "" {
		return openai.NewClient(config.APIKey), nil
	}
	if err := validateBaseURL(config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	apiKey := config.APIKey
	if apiKey == "" {
		// Some compatible services don't require authentication
		apiKey = "dummy-key"
	}
	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = config.BaseURL
	if !hasAPIPath(config.BaseURL) {
		clientConfig.BaseURL = strings.TrimSuffix(config.BaseURL, "/") + "/v1"
	}
	return openai.NewClientWithConfig(clientConfig), nil
}

// ChatJSON sends a system and user prompt and returns the repaired JSON
// content of the first choice.
func ChatJSON(ctx context.Context, client *openai.Client, config Config, system, user string) (string, error) {
	model := config.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: config.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	if config.BaseURL != "" {
		req.Messages[1].Content += "\n\nPlease respond with valid JSON only."
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	content := strings.TrimSpace(thinkTags.ReplaceAllString(resp.Choices[0].Message.Content, ""))
	if content == "" {
		return "", ErrEmptyResponse
	}
	repaired, err := jsonrepair.JSONRepair(content)
	if err != nil {
		return "", fmt.Errorf("model returned unrecoverable JSON: %w", err)
	}
	return repaired, nil
}

// classify maps provider errors onto the package errors.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return NewRateLimitError(apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return NewRateLimitError()
	}
	return fmt.Errorf("openai chat completion failed: %w", err)
}

// validateBaseURL validates the base URL format.
func validateBaseURL(baseURL string) error {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid baseURL format: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("baseURL must use http:// or https:// scheme")
	}
	return nil
}

// hasAPIPath checks if the base URL already includes an API path component.
func hasAPIPath(baseURL string) bool {
	for _, path := range []string{"/v1", "/api", "/v1/", "/api/"} {
		if strings.HasSuffix(baseURL, path) {
			return true
		}
	}
	return false
}
