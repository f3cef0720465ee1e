package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/mmcdole/vidsync/internal/domain"
)

const (
	pathVideos       = "/videos"
	pathVideoSingle  = "/videos/single"
	pathVideoComment = "/videos/comments"
)

// VideoGateway implements domain.VideoGateway over a Transport
type VideoGateway struct {
	transport Transport
	logger    *slog.Logger
}

// NewVideoGateway creates a new video gateway
func NewVideoGateway(transport Transport, logger *slog.Logger) *VideoGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoGateway{transport: transport, logger: logger}
}

// FetchByUser returns the user's videos with categories and courses decoded.
// Transport failures and unrecognized payloads degrade to an empty slice.
func (g *VideoGateway) FetchByUser(ctx context.Context, userID string) []domain.Video {
	query := url.Values{}
	query.Set("user_id", userID)

	raw, err := g.transport.Do(ctx, http.MethodGet, pathVideos, query, nil)
	if err != nil {
		g.logger.Warn("failed to fetch user videos", "userID", userID, "error", err)
		return []domain.Video{}
	}

	videos, err := decodeVideoList(raw)
	if err != nil {
		g.logger.Warn("unexpected user videos payload", "userID", userID, "error", err)
		return []domain.Video{}
	}

	g.logger.Debug("fetched user videos", "userID", userID, "count", len(videos))
	return videos
}

// FetchByID returns the detail payload as sent. Transport failures propagate.
func (g *VideoGateway) FetchByID(ctx context.Context, videoID string) (domain.RawVideoResponse, error) {
	query := url.Values{}
	query.Set("video_id", videoID)

	raw, err := g.transport.Do(ctx, http.MethodGet, pathVideoSingle, query, nil)
	if err != nil {
		g.logger.Error("failed to fetch video", "videoID", videoID, "error", err)
		return nil, withOp(err, "fetch video")
	}
	return domain.RawVideoResponse(raw), nil
}

// Create posts a new video. The result is unconfirmed when the backend sent no id.
func (g *VideoGateway) Create(ctx context.Context, payload domain.CreateVideoPayload) (domain.CreateResult, error) {
	raw, err := g.transport.Do(ctx, http.MethodPost, pathVideos, nil, payload)
	if err != nil {
		g.logger.Error("failed to create video", "title", payload.Title, "error", err)
		return domain.CreateResult{}, withOp(err, "create video")
	}

	result := decodeCreateResponse(raw)
	if !result.Confirmed {
		g.logger.Warn("create response missing id", "body", string(raw))
	}
	return result, nil
}

// Edit updates title and description
func (g *VideoGateway) Edit(ctx context.Context, payload domain.EditVideoPayload) error {
	raw, err := g.transport.Do(ctx, http.MethodPut, pathVideos, nil, payload)
	if err != nil {
		g.logger.Error("failed to edit video", "videoID", payload.VideoID, "error", err)
		return withOp(err, "edit video")
	}
	g.logger.Debug("edited video", "videoID", payload.VideoID, "ack", string(raw))
	return nil
}

// withOp names the gateway operation on transport errors
func withOp(err error, op string) error {
	var te *domain.TransportError
	if errors.As(err, &te) {
		cp := *te
		cp.Op = op
		return &cp
	}
	return err
}
