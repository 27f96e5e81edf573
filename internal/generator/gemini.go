package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stencil/internal/infra"
)

// GeminiOptions controls how the Gemini client is configured.
type GeminiOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// GeminiClient talks to the Gemini generateContent REST surface. Without
// an API key it degrades to the deterministic synthetic generator so local
// and CI environments stay fully operational end to end.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
	synthetic  Synthetic
}

const defaultRateLimitRetryAfter = 60 * time.Second

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type geminiGenerationConfig struct {
	ImageConfig *geminiImageConfig `json:"imageConfig,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewGeminiClient constructs a Gemini client with sane defaults. Callers
// may provide a nil HTTP client; a reusable one with sensible timeouts
// will be created.
func NewGeminiClient(opts GeminiOptions) (*GeminiClient, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash-image"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &GeminiClient{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured Gemini model identifier.
func (c *GeminiClient) Model() string { return c.model }

// Generate renders the subject on the requested background.
func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	if c.apiKey == "" {
		c.logger.Debug().Str("request_id", req.RequestID).Msg("gemini: no api key, using synthetic generation")
		return c.synthetic.Generate(ctx, req)
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: req.Prompt}},
		}},
	}
	if req.AspectRatio != "" {
		payload.GenerationConfig = &geminiGenerationConfig{
			ImageConfig: &geminiImageConfig{AspectRatio: req.AspectRatio},
		}
	}
	return c.invoke(ctx, req.RequestID, payload)
}

// Edit alters a previous render per the instruction, preserving the
// subject.
func (c *GeminiClient) Edit(ctx context.Context, req EditRequest) ([]byte, error) {
	if c.apiKey == "" {
		c.logger.Debug().Str("request_id", req.RequestID).Msg("gemini: no api key, using synthetic edit")
		return c.synthetic.Edit(ctx, req)
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: req.Instruction},
				{InlineData: &geminiInlineData{
					MimeType: "image/png",
					Data:     base64.StdEncoding.EncodeToString(req.Image),
				}},
			},
		}},
	}
	return c.invoke(ctx, req.RequestID, payload)
}

func (c *GeminiClient) invoke(ctx context.Context, requestID string, payload geminiGenerateContentRequest) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gemini: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini: call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("gemini: read response: %w", err)
	}

	c.logger.Debug().
		Str("request_id", requestID).
		Str("model", c.model).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("gemini: generateContent")

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{RetryAfter: retryAfterHint(resp)}
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr geminiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("gemini: status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("gemini: unexpected status %d", resp.StatusCode)
	}

	var parsed geminiGenerateContentResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", err)
	}
	for _, candidate := range parsed.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("gemini: decode image data: %w", err)
			}
			return data, nil
		}
	}
	return nil, fmt.Errorf("gemini: response contained no image data")
}

// retryAfterHint parses the provider's Retry-After header, falling back to
// a default cooldown when absent.
func retryAfterHint(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultRateLimitRetryAfter
}

var _ Generator = (*GeminiClient)(nil)
