package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"

	"invoice-extractor/internal/invoice"
)

const nameOpenAI = "openai"

type OpenAIOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// OpenAI sends the query through the Responses API.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(opts OpenAIOptions) *OpenAI {
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
		model = string(openai.ChatModelGPT4o)
	}

	client := openai.NewClient(reqOpts...)
	return &OpenAI{client: &client, model: model}
}

func (o *OpenAI) Ask(ctx context.Context, q invoice.Query) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", wireMimeType(q.Image.MimeType), base64.StdEncoding.EncodeToString(q.Image.Data))

	parts := responses.ResponseInputMessageContentListParam{
		{OfInputText: &responses.ResponseInputTextParam{Text: q.Instruction}},
		{OfInputImage: &responses.ResponseInputImageParam{
			Detail:   responses.ResponseInputImageDetailAuto,
			ImageURL: openai.String(dataURL),
		}},
	}
	if q.Question != "" {
		parts = append(parts, responses.ResponseInputMessageContentListParam{
			{OfInputText: &responses.ResponseInputTextParam{Text: q.Question}},
		}...)
	}

	resp, err := o.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: openai.ChatModel(o.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(parts, responses.EasyInputMessageRoleUser),
			},
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", statusError(nameOpenAI, apiErr.StatusCode, err)
		}
		return "", &invoice.ServiceError{Provider: nameOpenAI, Kind: invoice.KindUnreachable, Err: err}
	}

	text := resp.OutputText()
	if text == "" {
		return "", &invoice.ServiceError{Provider: nameOpenAI, Kind: invoice.KindEmpty, Err: errors.New("response has no output text")}
	}
	return text, nil
}
