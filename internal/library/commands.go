package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/mmcdole/vidsync/internal/api"
	"github.com/mmcdole/vidsync/internal/domain"
	"github.com/mmcdole/vidsync/internal/metadata"
	"github.com/mmcdole/vidsync/internal/query"
	"github.com/mmcdole/vidsync/internal/users"
	"golang.org/x/sync/errgroup"
)

// TempIDPrefix marks ids synthesized while the backend has not confirmed one
const TempIDPrefix = "temp-"

// maxConcurrentUserFetches bounds the all-users fan-out
const maxConcurrentUserFetches = 4

// CreateVideoInput is a video as entered by a user. Categories and Courses
// are raw lists; they are normalized before encoding.
type CreateVideoInput struct {
	UserID      string
	Title       string
	Description string
	VideoURL    string
	Categories  []string
	Courses     []string
}

func (in CreateVideoInput) validate() error {
	switch {
	case strings.TrimSpace(in.UserID) == "":
		return &domain.ValidationError{Field: "user_id"}
	case strings.TrimSpace(in.Title) == "":
		return &domain.ValidationError{Field: "title"}
	case strings.TrimSpace(in.Description) == "":
		return &domain.ValidationError{Field: "description"}
	case strings.TrimSpace(in.VideoURL) == "":
		return &domain.ValidationError{Field: "video_url"}
	}
	return nil
}

// EditVideoInput carries the editable fields. The URL and its metadata are
// fixed at creation.
type EditVideoInput struct {
	VideoID     string
	Title       string
	Description string
}

func (in EditVideoInput) validate() error {
	switch {
	case strings.TrimSpace(in.VideoID) == "":
		return &domain.ValidationError{Field: "video_id"}
	case strings.TrimSpace(in.Title) == "":
		return &domain.ValidationError{Field: "title"}
	}
	return nil
}

// Commands are the network-backed operations. Reads go through the query
// cache and merge into the store on commit; writes update the store only
// after the backend accepted them.
type Commands struct {
	gateway domain.VideoGateway
	store   domain.VideoStore
	cache   *query.Cache
	users   *users.Registry
	clock   domain.Clock
	logger  *slog.Logger
}

// NewCommands creates a new Commands instance.
func NewCommands(
	gateway domain.VideoGateway,
	store domain.VideoStore,
	cache *query.Cache,
	registry *users.Registry,
	clock domain.Clock,
	logger *slog.Logger,
) *Commands {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if registry == nil {
		registry = users.Default()
	}
	return &Commands{
		gateway: gateway,
		store:   store,
		cache:   cache,
		users:   registry,
		clock:   clock,
		logger:  logger,
	}
}

// LoadUserVideos returns one user's videos and makes them the store's list
func (c *Commands) LoadUserVideos(ctx context.Context, userID string) ([]domain.Video, error) {
	return query.Get(ctx, c.cache, query.Query[[]domain.Video]{
		Key: query.UserVideos(userID),
		Fetch: func(ctx context.Context) ([]domain.Video, error) {
			videos := c.gateway.FetchByUser(ctx, userID)
			c.logger.Debug("fetched user videos", "userID", userID, "count", len(videos))
			return videos, nil
		},
		OnSuccess: c.mergeList,
	})
}

// LoadAllUsersVideos fetches every registry user's videos concurrently and
// makes the merged list, newest first, the store's list.
func (c *Commands) LoadAllUsersVideos(ctx context.Context) ([]domain.Video, error) {
	return query.Get(ctx, c.cache, query.Query[[]domain.Video]{
		Key:       query.AllUsersVideos(),
		Fetch:     c.fetchAllUsers,
		OnSuccess: c.mergeList,
	})
}

func (c *Commands) fetchAllUsers(ctx context.Context) ([]domain.Video, error) {
	all := c.users.All()
	perUser := make([][]domain.Video, len(all))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentUserFetches)
	for i, u := range all {
		i, u := i, u
		g.Go(func() error {
			perUser[i] = c.gateway.FetchByUser(gctx, u.ID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []domain.Video
	for _, videos := range perUser {
		merged = append(merged, videos...)
	}
	if merged == nil {
		merged = []domain.Video{}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	c.logger.Debug("fetched all users videos", "users", len(all), "count", len(merged))
	return merged, nil
}

// mergeList confirms pending videos that the fetched list now carries, then
// replaces the store's list.
func (c *Commands) mergeList(videos []domain.Video) {
	snap := c.store.Snapshot()
	for _, p := range snap.Videos {
		if !p.IsPending() {
			continue
		}
		for _, v := range videos {
			if v.UserID == p.UserID && v.VideoURL == p.VideoURL {
				c.store.ConfirmID(p.ID, v.ID)
				c.logger.Info("confirmed pending video", "tempID", p.ID, "videoID", v.ID)
				break
			}
		}
	}
	c.store.ReplaceAll(videos)
}

// LoadVideo returns a single video and selects it in the store.
// A transport failure leaves the detail entry in the error state and is
// returned. An unrecognized payload yields no video and no error.
func (c *Commands) LoadVideo(ctx context.Context, videoID string) (*domain.Video, error) {
	return query.Get(ctx, c.cache, query.Query[*domain.Video]{
		Key: query.VideoDetail(videoID),
		Fetch: func(ctx context.Context) (*domain.Video, error) {
			raw, err := c.gateway.FetchByID(ctx, videoID)
			if err != nil {
				return nil, err
			}
			v, err := api.NormalizeVideo(raw)
			if err != nil {
				c.logger.Warn("unexpected video payload", "videoID", videoID, "error", err)
				return nil, nil
			}
			return &v, nil
		},
		OnSuccess: func(v *domain.Video) {
			if v != nil {
				c.store.Select(v)
			}
		},
	})
}

// CreateVideo encodes the metadata into the URL, creates the video and
// appends it to the store. When the backend answers without an id the video
// is stored under a pending temporary id until a list fetch confirms it.
func (c *Commands) CreateVideo(ctx context.Context, in CreateVideoInput) (domain.Video, error) {
	if err := in.validate(); err != nil {
		return domain.Video{}, err
	}
	if _, ok := c.users.ByID(in.UserID); !ok {
		return domain.Video{}, fmt.Errorf("create video for %q: %w", in.UserID, domain.ErrUserNotFound)
	}

	categories := metadata.Normalize(in.Categories)
	courses := metadata.Normalize(in.Courses)
	videoURL, err := metadata.Encode(in.VideoURL, categories, courses)
	if err != nil {
		return domain.Video{}, err
	}

	payload := domain.CreateVideoPayload{
		UserID:      in.UserID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		VideoURL:    videoURL,
		Categories:  categories,
		Courses:     courses,
	}
	result, err := c.gateway.Create(ctx, payload)
	if err != nil {
		return domain.Video{}, fmt.Errorf("create video: %w", err)
	}

	v := domain.Video{
		ID:          result.ID,
		Title:       payload.Title,
		Description: payload.Description,
		VideoURL:    videoURL,
		UserID:      in.UserID,
		CreatedAt:   c.clock.Now(),
		IDState:     domain.IDConfirmed,
	}
	if !result.Confirmed {
		v.ID = TempIDPrefix + uuid.NewString()
		v.IDState = domain.IDPending
		c.logger.Warn("create returned no id, using temporary id", "tempID", v.ID)
	}
	v = metadata.Apply(v)

	c.store.Append(v)
	c.invalidateUserLists(in.UserID)
	c.logger.Info("created video", "videoID", v.ID, "userID", v.UserID, "pending", v.IsPending())
	return v, nil
}

// EditVideo changes a video's title and description. The detail entry and
// the owner's lists are invalidated so the next reads refetch.
func (c *Commands) EditVideo(ctx context.Context, in EditVideoInput) error {
	if err := in.validate(); err != nil {
		return err
	}

	payload := domain.EditVideoPayload{
		VideoID:     in.VideoID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
	}
	if err := c.gateway.Edit(ctx, payload); err != nil {
		return fmt.Errorf("edit video %s: %w", in.VideoID, err)
	}

	c.cache.Invalidate(query.VideoDetail(in.VideoID))

	owner := ""
	c.store.UpdateFunc(in.VideoID, func(v *domain.Video) {
		v.Title = payload.Title
		v.Description = payload.Description
		owner = v.UserID
	})
	if owner != "" {
		c.invalidateUserLists(owner)
	} else {
		c.cache.InvalidatePrefix(query.Key{query.ScopeVideos, "user"})
		c.cache.Invalidate(query.AllUsersVideos())
	}

	c.logger.Info("edited video", "videoID", in.VideoID)
	return nil
}

// InvalidateUser marks a user's list stale
func (c *Commands) InvalidateUser(userID string) {
	c.invalidateUserLists(userID)
}

// InvalidateVideo marks a video's detail stale
func (c *Commands) InvalidateVideo(videoID string) {
	c.cache.Invalidate(query.VideoDetail(videoID))
	c.logger.Info("invalidated video cache", "videoID", videoID)
}

// InvalidateAll marks every video key stale
func (c *Commands) InvalidateAll() {
	c.cache.InvalidatePrefix(query.Key{query.ScopeVideos})
	c.logger.Info("invalidated all video caches")
}

// DetailError returns the failure recorded for a video's detail fetch, if any
func (c *Commands) DetailError(videoID string) error {
	return c.cache.Err(query.VideoDetail(videoID))
}

// IsTransportFailure reports whether err came from the network layer
func IsTransportFailure(err error) bool {
	return errors.Is(err, domain.ErrTransport)
}

func (c *Commands) invalidateUserLists(userID string) {
	for _, k := range query.UserListKeys(userID) {
		c.cache.Invalidate(k)
	}
	c.logger.Debug("invalidated user lists", "userID", userID)
}
