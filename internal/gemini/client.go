// Package gemini implements the generative backend on top of Google's Gemini
// API, optionally reached through a Cloudflare AI gateway.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/digestbot/internal/config"
	"github.com/edgard/digestbot/internal/errs"
	"github.com/edgard/digestbot/internal/prompt"
)

// gatewayURLFormat is the Google AI Studio route of a Cloudflare AI gateway.
const gatewayURLFormat = "https://gateway.ai.cloudflare.com/v1/%s/%s/google-ai-studio/"

// Client generates text from an ordered list of prompt fragments.
type Client interface {
	Generate(ctx context.Context, fragments []prompt.Fragment) (string, error)
}

// generateFunc is the single SDK call the client depends on.
type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

type sdkClient struct {
	generate      generateFunc
	log           *slog.Logger
	contentConfig *genai.GenerateContentConfig
	modelName     string
	maxRetries    int
	retryDelay    time.Duration
}

// BaseURL returns the endpoint the client talks to, or "" for the SDK default.
func BaseURL(cfg config.GeminiConfig) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	if cfg.AccountID != "" && cfg.GatewayName != "" {
		return fmt.Sprintf(gatewayURLFormat, cfg.AccountID, cfg.GatewayName)
	}
	return ""
}

// NewClient creates a Gemini client. Safety filtering is set to the minimum
// blocking level for every category.
func NewClient(
	ctx context.Context,
	cfg config.GeminiConfig,
	log *slog.Logger,
) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errs.Config("gemini API key is required", nil)
	}
	if log == nil {
		log = slog.Default()
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	baseURL := BaseURL(cfg)
	if baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	gi, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, errs.Backend("failed to create genai client", err)
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized successfully", "model", cfg.ModelName, "gateway", baseURL != "")
	return newSDKClient(gi.Models.GenerateContent, cfg, logger), nil
}

func newSDKClient(generate generateFunc, cfg config.GeminiConfig, log *slog.Logger) *sdkClient {
	temperature := cfg.Temperature
	return &sdkClient{
		generate: generate,
		log:      log,
		contentConfig: &genai.GenerateContentConfig{
			Temperature: &temperature,
			SafetySettings: []*genai.SafetySetting{
				{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
				{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
				{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
				{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
			},
		},
		modelName:  cfg.ModelName,
		maxRetries: cfg.MaxRetries,
		retryDelay: time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}
}

// Generate sends the fragments as a single user turn and returns the text of
// the first candidate.
func (c *sdkClient) Generate(ctx context.Context, fragments []prompt.Fragment) (string, error) {
	if len(fragments) == 0 {
		return "", errs.InvalidArgument("prompt has no fragments")
	}

	c.log.DebugContext(ctx, "Generating content", "fragment_count", len(fragments))
	contents := []*genai.Content{genai.NewContentFromParts(toParts(fragments), genai.RoleUser)}

	resp, err := c.generateContentWithRetries(ctx, contents)
	if err != nil {
		return "", errs.Backend("gemini generation failed", err)
	}

	text, err := c.extractTextFromResponse(ctx, resp)
	if err != nil {
		return "", errs.Backend("gemini returned no usable text", err)
	}
	return text, nil
}

// toParts maps fragments to SDK parts one to one, preserving order.
func toParts(fragments []prompt.Fragment) []*genai.Part {
	parts := make([]*genai.Part, 0, len(fragments))
	for _, f := range fragments {
		if f.IsInline() {
			parts = append(parts, genai.NewPartFromBytes(f.Data, f.MIMEType))
			continue
		}
		parts = append(parts, genai.NewPartFromText(f.Text))
	}
	return parts
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var err error

	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.generate(ctx, c.modelName, contents, c.contentConfig)
		if err == nil {
			return resp, nil
		}

		code, ok := apiErrorCode(err)
		if !ok || (code != 500 && code != 503) {
			c.log.ErrorContext(ctx, "Gemini API call failed with non-retriable error", "error", err)
			return nil, fmt.Errorf("gemini API call failed: %w", err)
		}

		if i == c.maxRetries {
			break
		}

		c.log.WarnContext(ctx, "Retrying Gemini API call", "attempt", i+1, "max_retries", c.maxRetries, "delay", c.retryDelay, "code", code)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}

	c.log.ErrorContext(ctx, "Gemini API call failed after retries", "max_retries", c.maxRetries, "error", err)
	return nil, fmt.Errorf("gemini API call failed after %d retries: %w", c.maxRetries, err)
}

// apiErrorCode returns the HTTP status of a genai.APIError in err's chain.
func apiErrorCode(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}

func (c *sdkClient) extractTextFromResponse(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("empty response")
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := string(resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "reason", reasonMsg)
		return "", fmt.Errorf("blocked by safety filter: %s", reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			finishReason = string(resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "finish_reason", finishReason)
		return "", fmt.Errorf("no content, finish reason: %s", finishReason)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("empty text")
	}
	return text, nil
}
