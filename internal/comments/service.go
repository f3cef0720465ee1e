// Package comments loads and posts a video's comments through the query
// cache, sharing the video invalidation protocol.
package comments

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/vidsync/internal/domain"
	"github.com/mmcdole/vidsync/internal/query"
)

// CreateCommentInput is a comment as entered by a user
type CreateCommentInput struct {
	VideoID string
	UserID  string
	Content string
}

func (in CreateCommentInput) validate() error {
	switch {
	case strings.TrimSpace(in.VideoID) == "":
		return &domain.ValidationError{Field: "video_id"}
	case strings.TrimSpace(in.UserID) == "":
		return &domain.ValidationError{Field: "user_id"}
	case strings.TrimSpace(in.Content) == "":
		return &domain.ValidationError{Field: "content"}
	}
	return nil
}

// Service orchestrates the comment gateway, the cache and the video store
type Service struct {
	gateway domain.CommentGateway
	store   domain.VideoStore
	cache   *query.Cache
	logger  *slog.Logger
}

// NewService creates a new comment service
func NewService(gateway domain.CommentGateway, store domain.VideoStore, cache *query.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gateway: gateway, store: store, cache: cache, logger: logger}
}

// Load returns a video's comments. Failures read as an empty list.
func (s *Service) Load(ctx context.Context, videoID string) ([]domain.Comment, error) {
	return query.Get(ctx, s.cache, query.Query[[]domain.Comment]{
		Key: query.VideoComments(videoID),
		Fetch: func(ctx context.Context) ([]domain.Comment, error) {
			comments := s.gateway.FetchComments(ctx, videoID)
			s.logger.Debug("fetched comments", "videoID", videoID, "count", len(comments))
			return comments, nil
		},
	})
}

// Create posts a comment and bumps the video's comment count. The returned
// comment is nil when the backend acknowledged without echoing it.
func (s *Service) Create(ctx context.Context, in CreateCommentInput) (*domain.Comment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	comment, err := s.gateway.CreateComment(ctx, domain.CreateCommentPayload{
		VideoID: in.VideoID,
		Content: strings.TrimSpace(in.Content),
		UserID:  in.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("create comment on %s: %w", in.VideoID, err)
	}

	s.cache.Invalidate(query.VideoComments(in.VideoID))
	s.cache.Invalidate(query.VideoDetail(in.VideoID))
	s.store.UpdateFunc(in.VideoID, func(v *domain.Video) { v.NumComments++ })

	s.logger.Info("created comment", "videoID", in.VideoID, "userID", in.UserID)
	return comment, nil
}
