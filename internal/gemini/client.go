package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const defaultModel = "gemini-2.5-flash"

var (
	ErrMalformedResponse = errors.New("gemini: malformed response")
	ErrEmptyResponse     = errors.New("gemini: empty response")
)

type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		model:      model,
		httpClient: opts.HTTPClient,
		logger:     logger,
	}
}

func (c *Client) Model() string {
	return c.model
}

// Generate sends the parts as one user turn and returns the concatenated
// text of the first candidate. It issues exactly one HTTP request.
func (c *Client) Generate(ctx context.Context, parts ...Part) (Response, error) {
	if len(parts) == 0 {
		return Response{}, errors.New("gemini: no parts to send")
	}

	req := generateContentRequest{
		Contents: []content{{Role: "user", Parts: buildParts(parts)}},
	}
	return c.generateContent(ctx, req)
}

func buildParts(parts []Part) []part {
	out := make([]part, 0, len(parts))
	for _, p := range parts {
		if p.Image != nil {
			out = append(out, part{InlineData: &blob{
				MimeType: p.Image.MimeType,
				Data:     base64.StdEncoding.EncodeToString(p.Image.Data),
			}})
			continue
		}
		// The API rejects parts with no data, so an empty question is
		// simply not sent.
		if p.Text == "" {
			continue
		}
		out = append(out, part{Text: p.Text})
	}
	return out
}

func (c *Client) generateContent(ctx context.Context, payload generateContentRequest) (Response, error) {
	if c.httpClient == nil {
		return Response{}, errors.New("http client is nil")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("gemini generateContent",
		"model", c.model,
		"status", httpResp.StatusCode,
		"dur_ms", time.Since(start).Milliseconds(),
	)

	if httpResp.StatusCode >= 400 {
		return Response{}, parseAPIError(httpResp, rawBody)
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return extractResponse(decoded)
}

func parseAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Status:     http.StatusText(resp.StatusCode),
	}

	if !gjson.ValidBytes(body) {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}

	root := gjson.ParseBytes(body).Get("error")
	if status := root.Get("status").String(); status != "" {
		apiErr.Status = status
	}
	apiErr.Message = root.Get("message").String()
	root.Get("details").ForEach(func(_, detail gjson.Result) bool {
		if reason := detail.Get("reason").String(); reason != "" {
			apiErr.Reason = reason
			return false
		}
		return true
	})

	return apiErr
}

func extractResponse(resp generateContentResponse) (Response, error) {
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return Response{}, &BlockedError{Reason: resp.PromptFeedback.BlockReason}
		}
		return Response{}, ErrEmptyResponse
	}

	cand := resp.Candidates[0]

	var textBuilder strings.Builder
	for _, p := range cand.Content.Parts {
		if p.Thought {
			continue
		}
		textBuilder.WriteString(p.Text)
	}
	text := textBuilder.String()

	if text == "" {
		switch cand.FinishReason {
		case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII":
			return Response{}, &BlockedError{Reason: cand.FinishReason}
		}
		return Response{}, ErrEmptyResponse
	}

	return Response{
		Text:         text,
		FinishReason: cand.FinishReason,
		ModelVersion: resp.ModelVersion,
	}, nil
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	Thought    bool   `json:"thought,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateContentResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
	ModelVersion   string          `json:"modelVersion,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}
