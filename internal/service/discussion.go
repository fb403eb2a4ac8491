package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/piano-library/internal/apperror"
	"github.com/sakif/piano-library/internal/model"
	"github.com/sakif/piano-library/internal/repository"
)

// MaxContentLength bounds discussion message and reply bodies.
const MaxContentLength = 5000

// DiscussionService handles per-piece discussion threads.
type DiscussionService struct {
	discussions repository.DiscussionRepository
	logger      *slog.Logger
}

// NewDiscussionService creates a DiscussionService.
func NewDiscussionService(discussions repository.DiscussionRepository, logger *slog.Logger) *DiscussionService {
	return &DiscussionService{
		discussions: discussions,
		logger:      logger,
	}
}

// ForPiece returns the piece's discussion thread, empty if nobody has
// posted.
func (s *DiscussionService) ForPiece(ctx context.Context, pieceID int) ([]model.Message, error) {
	return s.discussions.ForPiece(ctx, pieceID)
}

func validateContent(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", apperror.ValidationFailed("content", "message content is required")
	}
	if len(content) > MaxContentLength {
		return "", apperror.ValidationFailed("content",
			fmt.Sprintf("message content must be %d characters or less", MaxContentLength))
	}
	return content, nil
}

// AddMessage posts a top-level message to a piece's thread.
func (s *DiscussionService) AddMessage(ctx context.Context, pieceID, userID int, content string) (*model.Message, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}

	msg, err := s.discussions.AddMessage(ctx, pieceID, userID, content)
	if err != nil {
		s.logger.Error("failed to add message",
			slog.Int("pieceId", pieceID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("adding message: %w", err)
	}

	s.logger.Info("message added", slog.Int("pieceId", pieceID), slog.String("messageId", msg.ID))
	return msg, nil
}

// AddReply posts a reply under an existing message.
func (s *DiscussionService) AddReply(ctx context.Context, pieceID int, messageID string, userID int, content string) (*model.Reply, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}

	reply, err := s.discussions.AddReply(ctx, pieceID, messageID, userID, content)
	if err != nil {
		return nil, err
	}

	s.logger.Info("reply added",
		slog.Int("pieceId", pieceID),
		slog.String("messageId", messageID),
		slog.String("replyId", reply.ID),
	)
	return reply, nil
}

// ToggleLike flips the user's like on a message and returns the updated
// message.
func (s *DiscussionService) ToggleLike(ctx context.Context, pieceID int, messageID string, userID int) (*model.Message, error) {
	msg, err := s.discussions.ToggleLike(ctx, pieceID, messageID, userID)
	if err != nil {
		return nil, err
	}
	return msg, nil
}
