package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/solsentinel/pixelterm/internal/gate"
	"github.com/solsentinel/pixelterm/internal/models"
	"github.com/solsentinel/pixelterm/internal/pixelapi"
)

// Generator is the upstream image client. Satisfied by *pixelapi.Client.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*pixelapi.Output, error)
}

// HistoryLogger records accepted generation attempts. Satisfied by
// *repository.HistoryRepository.
type HistoryLogger interface {
	Log(ctx context.Context, userID, requestID, prompt, status string) error
}

// ShareUploader stores an image and returns a public URL. Satisfied by
// *storage.Uploader.
type ShareUploader interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// GenerationService runs one validated request through sanitization, the
// upstream call, the optional share upload, and the audit log. History and
// uploader are optional; a nil dependency skips that step.
type GenerationService struct {
	log      *slog.Logger
	client   Generator
	history  HistoryLogger
	uploader ShareUploader
}

type GenerationInput struct {
	UserID    string
	RequestID string
	Prompt    string
}

func NewGenerationService(log *slog.Logger, client Generator, history HistoryLogger, uploader ShareUploader) *GenerationService {
	return &GenerationService{
		log:      log,
		client:   client,
		history:  history,
		uploader: uploader,
	}
}

// Generate calls the image API with the sanitized prompt. The returned error
// is one of the pixelapi error kinds (or a transport error) for the handler
// to map; the result is only meaningful when err is nil.
func (s *GenerationService) Generate(ctx context.Context, input GenerationInput) (models.GenerationResult, error) {
	sanitized := gate.SanitizePrompt(input.Prompt)
	if sanitized == "" {
		return models.GenerationResult{}, fmt.Errorf("prompt cannot be empty")
	}

	out, err := s.client.Generate(ctx, sanitized)
	if err != nil {
		s.logHistory(ctx, input, models.StatusFailed)
		return models.GenerationResult{}, err
	}

	imageURL := out.ImageURL
	if s.uploader != nil {
		if shared, upErr := s.shareURL(ctx, imageURL); upErr != nil {
			s.log.Error("share upload failed, falling back to data URL", "err", upErr)
		} else if shared != "" {
			imageURL = shared
		}
	}

	s.logHistory(ctx, input, models.StatusSucceeded)

	return models.GenerationResult{
		Success:          true,
		ImageURL:         imageURL,
		Message:          "image generated",
		Prompt:           input.Prompt,
		RemainingCredits: out.RemainingCredits,
	}, nil
}

// shareURL uploads an embedded base64 image and returns its public URL.
// Remote URIs pass through untouched; there is nothing to upload.
func (s *GenerationService) shareURL(ctx context.Context, imageURL string) (string, error) {
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(imageURL, prefix) {
		return "", nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(imageURL, prefix))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	return s.uploader.Upload(ctx, data, "image/png")
}

// logHistory is best effort: an audit failure never blocks the response.
func (s *GenerationService) logHistory(ctx context.Context, input GenerationInput, status string) {
	if s.history == nil {
		return
	}
	if err := s.history.Log(ctx, input.UserID, input.RequestID, input.Prompt, status); err != nil {
		s.log.Error("failed to log generation", "err", err)
	}
}
