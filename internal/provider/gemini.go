package provider

import (
	"context"
	"errors"

	"invoice-extractor/internal/gemini"
	"invoice-extractor/internal/invoice"
)

const nameGemini = "gemini"

type Gemini struct {
	client *gemini.Client
}

func NewGemini(client *gemini.Client) *Gemini {
	return &Gemini{client: client}
}

func (g *Gemini) Ask(ctx context.Context, q invoice.Query) (string, error) {
	resp, err := g.client.Generate(ctx,
		gemini.TextPart(q.Instruction),
		gemini.ImagePart(wireMimeType(q.Image.MimeType), q.Image.Data),
		gemini.TextPart(q.Question),
	)
	if err != nil {
		return "", classifyGemini(err)
	}
	return resp.Text, nil
}

func classifyGemini(err error) error {
	var apiErr *gemini.APIError
	var blocked *gemini.BlockedError

	switch {
	case errors.As(err, &apiErr):
		se := statusError(nameGemini, apiErr.StatusCode, err)
		if apiErr.IsAuth() {
			se.Kind = invoice.KindAuth
		}
		return se
	case errors.As(err, &blocked):
		return &invoice.ServiceError{Provider: nameGemini, Kind: invoice.KindBlocked, Err: err}
	case errors.Is(err, gemini.ErrMalformedResponse):
		return &invoice.ServiceError{Provider: nameGemini, Kind: invoice.KindMalformed, Err: err}
	case errors.Is(err, gemini.ErrEmptyResponse):
		return &invoice.ServiceError{Provider: nameGemini, Kind: invoice.KindEmpty, Err: err}
	default:
		return &invoice.ServiceError{Provider: nameGemini, Kind: invoice.KindUnreachable, Err: err}
	}
}
