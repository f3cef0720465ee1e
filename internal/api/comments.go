package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/mmcdole/vidsync/internal/domain"
)

// CommentGateway implements domain.CommentGateway over a Transport
type CommentGateway struct {
	transport Transport
	logger    *slog.Logger
}

// NewCommentGateway creates a new comment gateway
func NewCommentGateway(transport Transport, logger *slog.Logger) *CommentGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentGateway{transport: transport, logger: logger}
}

// FetchComments returns a video's comments, or an empty slice on any failure
func (g *CommentGateway) FetchComments(ctx context.Context, videoID string) []domain.Comment {
	query := url.Values{}
	query.Set("video_id", videoID)

	raw, err := g.transport.Do(ctx, http.MethodGet, pathVideoComment, query, nil)
	if err != nil {
		g.logger.Warn("failed to fetch comments", "videoID", videoID, "error", err)
		return []domain.Comment{}
	}

	comments, err := decodeCommentList(raw)
	if err != nil {
		g.logger.Warn("unexpected comments payload", "videoID", videoID, "error", err)
		return []domain.Comment{}
	}
	return comments
}

// CreateComment posts a comment. A nil comment with a nil error means the
// backend acknowledged without returning the record.
func (g *CommentGateway) CreateComment(ctx context.Context, payload domain.CreateCommentPayload) (*domain.Comment, error) {
	raw, err := g.transport.Do(ctx, http.MethodPost, pathVideoComment, nil, payload)
	if err != nil {
		g.logger.Error("failed to create comment", "videoID", payload.VideoID, "error", err)
		return nil, withOp(err, "create comment")
	}

	comment, err := decodeComment(raw)
	if err != nil {
		g.logger.Warn("unexpected comment payload", "videoID", payload.VideoID, "error", err)
		return nil, nil
	}
	return comment, nil
}
