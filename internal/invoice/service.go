package invoice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"
)

type Options struct {
	Asker       Asker
	Instruction string
	Logger      *slog.Logger
}

// Submission is the form state at the moment of a submit event.
// A nil Upload means no file was selected.
type Submission struct {
	Question string
	Upload   *Upload
}

// Service turns one submit event into one model call.
type Service struct {
	asker       Asker
	instruction string
	logger      *slog.Logger
}

func NewService(opts Options) *Service {
	instruction := opts.Instruction
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultInstruction
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Service{
		asker:       opts.Asker,
		instruction: instruction,
		logger:      logger,
	}
}

func (s *Service) Instruction() string {
	return s.instruction
}

func (s *Service) Submit(ctx context.Context, sub Submission) (Response, error) {
	if sub.Upload == nil {
		return Response{}, ErrNoFileUploaded
	}

	img, err := ImageFromUpload(*sub.Upload)
	if err != nil {
		return Response{}, err
	}

	return s.Ask(ctx, img, sub.Question)
}

// Ask sends an already extracted image. Surfaces that download images
// themselves (the bot) enter here.
func (s *Service) Ask(ctx context.Context, img Image, question string) (Response, error) {
	if err := validateImage(img); err != nil {
		return Response{}, err
	}
	if s.asker == nil {
		return Response{}, errors.New("model client is not configured")
	}

	q := Query{
		Instruction: s.instruction,
		Image:       img,
		Question:    question,
	}

	start := time.Now()
	text, err := s.asker.Ask(ctx, q)
	if err != nil {
		s.logger.Error("model call failed", "mime", img.MimeType, "bytes", len(img.Data), "err", err)
		return Response{}, err
	}
	s.logger.Info("model call done",
		"mime", img.MimeType,
		"bytes", len(img.Data),
		"question_len", len(question),
		"answer_len", len(text),
		"dur_ms", time.Since(start).Milliseconds(),
	)

	return Response{Text: text}, nil
}
