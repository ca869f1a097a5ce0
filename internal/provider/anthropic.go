package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"invoice-extractor/internal/invoice"
)

const nameAnthropic = "anthropic"

type AnthropicOptions struct {
	APIKey     string
	Model      string
	MaxTokens  int64
	BaseURL    string
	HTTPClient *http.Client
}

// Anthropic sends the query through the Messages API.
type Anthropic struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropic(opts AnthropicOptions) *Anthropic {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	model := opts.Model
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	client := anthropic.NewClient(reqOpts...)
	return &Anthropic{client: &client, model: model, maxTokens: maxTokens}
}

func (a *Anthropic) Ask(ctx context.Context, q invoice.Query) (string, error) {
	blocks := []anthropic.ContentBlockParamUnion{
		anthropic.NewTextBlock(q.Instruction),
		anthropic.NewImageBlockBase64(wireMimeType(q.Image.MimeType), base64.StdEncoding.EncodeToString(q.Image.Data)),
	}
	if q.Question != "" {
		blocks = append(blocks, anthropic.NewTextBlock(q.Question))
	}

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", statusError(nameAnthropic, apiErr.StatusCode, err)
		}
		return "", &invoice.ServiceError{Provider: nameAnthropic, Kind: invoice.KindUnreachable, Err: err}
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}
	if text.Len() == 0 {
		return "", &invoice.ServiceError{Provider: nameAnthropic, Kind: invoice.KindEmpty, Err: errors.New("response has no text blocks")}
	}
	return text.String(), nil
}
