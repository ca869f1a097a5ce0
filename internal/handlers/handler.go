package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"invoice-extractor/internal/invoice"
	"invoice-extractor/internal/mediagroup"
	"invoice-extractor/internal/telegram"
)

const helpText = "Invoice Extractor\n\n" +
	"Send a photo of an invoice (jpg or png, as a photo or as a file) " +
	"with your question in the caption.\n" +
	"Several pages can be sent as one album; each page is answered separately.\n\n" +
	"/start - show this message\n" +
	"/help - show this message"

// Messenger is the part of the Telegram client the handler needs.
type Messenger interface {
	SendTyping(chatID int64)
	SendReply(chatID int64, replyTo int, text string) error
	DownloadFile(ctx context.Context, fileID, filename string) (invoice.Upload, error)
}

// Submitter runs one submit event.
type Submitter interface {
	Submit(ctx context.Context, sub invoice.Submission) (invoice.Response, error)
}

type Options struct {
	Telegram  Messenger
	Submitter Submitter
	Logger    *slog.Logger
}

type Handler struct {
	tg         Messenger
	submitter  Submitter
	logger     *slog.Logger
	aggregator *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Handler{
		tg:        opts.Telegram,
		submitter: opts.Submitter,
		logger:    logger,
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.Message == nil || update.Message.Chat == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		return h.handleCommand(chatID, msg)
	}

	if file, ok := imageFile(msg); ok {
		if msg.MediaGroupID != "" && h.aggregator != nil {
			h.aggregator.Add(mediagroup.Item{
				ChatID:       chatID,
				MessageID:    msg.MessageID,
				MediaGroupID: msg.MediaGroupID,
				Caption:      msg.Caption,
				File:         file,
			})
			return nil
		}
		return h.processFiles(ctx, chatID, msg.MessageID, msg.Caption, []mediagroup.File{file})
	}

	if msg.Document != nil {
		return h.tg.SendReply(chatID, msg.MessageID, "Unsupported file. Send a jpg or png image.")
	}

	if msg.Text != "" {
		// A question without an image is the "no file" submit.
		_, err := h.submitter.Submit(ctx, invoice.Submission{Question: msg.Text})
		return h.replyError(chatID, msg.MessageID, err)
	}

	return nil
}

func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) {
	if err := h.processFiles(ctx, group.ChatID, group.MessageID, group.Caption, group.Files); err != nil {
		h.logger.Error("media group processing failed", "err", err)
	}
}

func (h *Handler) handleCommand(chatID int64, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start", "help":
		return h.tg.SendReply(chatID, 0, helpText)
	default:
		return h.tg.SendReply(chatID, msg.MessageID, "Unknown command. Use /help.")
	}
}

// processFiles downloads every page concurrently, then submits them one at a
// time so each page is exactly one model call.
func (h *Handler) processFiles(ctx context.Context, chatID int64, replyTo int, caption string, files []mediagroup.File) error {
	h.tg.SendTyping(chatID)

	uploads := make([]invoice.Upload, len(files))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, f := range files {
		eg.Go(func() error {
			up, err := h.tg.DownloadFile(egCtx, f.FileID, f.Filename)
			if err != nil {
				return err
			}
			uploads[i] = up
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		h.logger.Error("image download failed", "chat_id", chatID, "err", err)
		return h.tg.SendReply(chatID, replyTo, "Could not download the image. Please send it again.")
	}

	for i := range uploads {
		if len(uploads) > 1 {
			h.tg.SendTyping(chatID)
		}

		resp, err := h.submitter.Submit(ctx, invoice.Submission{
			Question: caption,
			Upload:   &uploads[i],
		})
		if err != nil {
			if replyErr := h.replyError(chatID, replyTo, err); replyErr != nil {
				return replyErr
			}
			continue
		}

		text := resp.Text
		if len(uploads) > 1 {
			text = fmt.Sprintf("Page %d/%d\n\n%s", i+1, len(uploads), resp.Text)
		}
		if err := h.tg.SendReply(chatID, replyTo, text); err != nil {
			return err
		}
	}

	return nil
}

func (h *Handler) replyError(chatID int64, replyTo int, err error) error {
	if err == nil {
		return nil
	}

	var inputErr *invoice.InputError
	if errors.As(err, &inputErr) {
		return h.tg.SendReply(chatID, replyTo, inputErr.Msg)
	}

	h.logger.Error("invoice question failed", "chat_id", chatID, "err", err)
	if se, ok := invoice.AsServiceError(err); ok {
		return h.tg.SendReply(chatID, replyTo, fmt.Sprintf("The model request failed (%s). Please try again.", se.Kind))
	}
	return h.tg.SendReply(chatID, replyTo, "Something went wrong. Please try again.")
}

// imageFile picks the largest photo size, or an image document with an
// accepted extension or MIME type.
func imageFile(msg *tgbotapi.Message) (mediagroup.File, bool) {
	if len(msg.Photo) > 0 {
		photo := msg.Photo[len(msg.Photo)-1]
		return mediagroup.File{FileID: photo.FileID}, true
	}

	if doc := msg.Document; doc != nil {
		ext := strings.ToLower(filepath.Ext(doc.FileName))
		if invoice.AllowedMimeType(doc.MimeType) || ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
			return mediagroup.File{FileID: doc.FileID, Filename: doc.FileName}, true
		}
	}

	return mediagroup.File{}, false
}
