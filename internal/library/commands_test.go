package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/vidsync/internal/domain"
	"github.com/mmcdole/vidsync/internal/metadata"
	"github.com/mmcdole/vidsync/internal/query"
	"github.com/mmcdole/vidsync/internal/store"
	"github.com/mmcdole/vidsync/internal/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGateway is an in-memory backend with call counters
type stubGateway struct {
	mu sync.Mutex

	byUser  map[string][]domain.Video
	details map[string]string
	created []domain.CreateVideoPayload
	edits   []domain.EditVideoPayload

	createResult domain.CreateResult
	createErr    error
	editErr      error
	detailErr    error

	fetchByUserCalls int
	fetchByIDCalls   int
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		byUser:       make(map[string][]domain.Video),
		details:      make(map[string]string),
		createResult: domain.CreateResult{ID: "srv-1", Confirmed: true},
	}
}

func (g *stubGateway) FetchByUser(_ context.Context, userID string) []domain.Video {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetchByUserCalls++
	return append([]domain.Video{}, g.byUser[userID]...)
}

func (g *stubGateway) FetchByID(_ context.Context, videoID string) (domain.RawVideoResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetchByIDCalls++
	if g.detailErr != nil {
		return nil, g.detailErr
	}
	body, ok := g.details[videoID]
	if !ok {
		return domain.RawVideoResponse(`{"message":"not found"}`), nil
	}
	return domain.RawVideoResponse(body), nil
}

func (g *stubGateway) Create(_ context.Context, p domain.CreateVideoPayload) (domain.CreateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return domain.CreateResult{}, g.createErr
	}
	g.created = append(g.created, p)
	return g.createResult, nil
}

func (g *stubGateway) Edit(_ context.Context, p domain.EditVideoPayload) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.editErr != nil {
		return g.editErr
	}
	g.edits = append(g.edits, p)
	return nil
}

func (g *stubGateway) setDetail(id, title, videoURL string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	body, _ := json.Marshal(map[string]any{"video": map[string]any{
		"id": id, "title": title, "video_url": videoURL, "user_id": "ahmed_awad",
	}})
	g.details[id] = string(body)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type harness struct {
	gw    *stubGateway
	store *store.VideoStore
	cache *query.Cache
	cmds  *Commands
	q     *Queries
}

func newHarness() *harness {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := fixedClock{now: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	gw := newStubGateway()
	st := store.New(logger)
	cache := query.New(clock, time.Minute, logger)
	return &harness{
		gw:    gw,
		store: st,
		cache: cache,
		cmds:  NewCommands(gw, st, cache, users.Default(), clock, logger),
		q:     NewQueries(st),
	}
}

func at(day int) time.Time {
	return time.Date(2024, 4, day, 0, 0, 0, 0, time.UTC)
}

func TestLoadUserVideosFillsStoreOnce(t *testing.T) {
	h := newHarness()
	h.gw.byUser["ahmed_awad"] = []domain.Video{{ID: "v1", UserID: "ahmed_awad", Title: "One"}}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			videos, err := h.cmds.LoadUserVideos(context.Background(), "ahmed_awad")
			assert.NoError(t, err)
			assert.Len(t, videos, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.gw.fetchByUserCalls)
	assert.Len(t, h.q.Videos(), 1)
}

func TestLoadUserVideosEmptyAndUnreachableLookAlike(t *testing.T) {
	h := newHarness()
	videos, err := h.cmds.LoadUserVideos(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, []domain.Video{}, videos)
	assert.Empty(t, h.q.Videos())
}

func TestLoadAllUsersVideosNewestFirst(t *testing.T) {
	h := newHarness()
	h.gw.byUser["ahmed_awad"] = []domain.Video{
		{ID: "a1", UserID: "ahmed_awad", CreatedAt: at(1)},
		{ID: "a3", UserID: "ahmed_awad", CreatedAt: at(3)},
	}
	h.gw.byUser["ahmed_awad_moe_shmoe"] = []domain.Video{
		{ID: "m2", UserID: "ahmed_awad_moe_shmoe", CreatedAt: at(2)},
	}

	videos, err := h.cmds.LoadAllUsersVideos(context.Background())
	require.NoError(t, err)

	got := []string{}
	for _, v := range videos {
		got = append(got, v.ID)
	}
	assert.Equal(t, []string{"a3", "m2", "a1"}, got)
	assert.Equal(t, len(users.Default().All()), h.gw.fetchByUserCalls)
	assert.Len(t, h.q.Videos(), 3)
	assert.Len(t, h.q.VideosByUser("ahmed_awad"), 2)
}

func TestCreateVideoEncodesMetadata(t *testing.T) {
	h := newHarness()

	v, err := h.cmds.CreateVideo(context.Background(), CreateVideoInput{
		UserID:      "ahmed_awad",
		Title:       " Intro ",
		Description: "desc",
		VideoURL:    "https://cdn.example.com/intro.mp4",
		Categories:  metadata.ParseList("Web Dev, AI"),
		Courses:     []string{"React 101"},
	})
	require.NoError(t, err)

	require.Len(t, h.gw.created, 1)
	sent := h.gw.created[0]
	assert.Contains(t, sent.VideoURL, "categories=Web-Dev,AI")
	assert.Contains(t, sent.VideoURL, "courses=React-101")
	assert.Equal(t, "Intro", sent.Title)

	assert.Equal(t, "srv-1", v.ID)
	assert.Equal(t, []string{"Web-Dev", "AI"}, v.Categories)
	assert.Len(t, h.q.Videos(), 1)

	// A later detail fetch of the stored URL decodes the same lists
	h.gw.setDetail("srv-1", "Intro", sent.VideoURL)
	detail, err := h.cmds.LoadVideo(context.Background(), "srv-1")
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, []string{"Web-Dev", "AI"}, detail.Categories)
	assert.Equal(t, []string{"React-101"}, detail.Courses)
}

func TestCreateVideoInvalidatesUserLists(t *testing.T) {
	h := newHarness()
	_, err := h.cmds.LoadUserVideos(context.Background(), "ahmed_awad")
	require.NoError(t, err)
	_, err = h.cmds.LoadAllUsersVideos(context.Background())
	require.NoError(t, err)

	_, err = h.cmds.CreateVideo(context.Background(), CreateVideoInput{
		UserID: "ahmed_awad", Title: "t", Description: "d", VideoURL: "https://x.example.com/a",
	})
	require.NoError(t, err)

	assert.Equal(t, query.StateStale, h.cache.State(query.UserVideos("ahmed_awad")))
	assert.Equal(t, query.StateStale, h.cache.State(query.AllUsersVideos()))
}

func TestCreateVideoValidation(t *testing.T) {
	h := newHarness()
	cases := map[string]CreateVideoInput{
		"user_id":     {Title: "t", Description: "d", VideoURL: "https://x.example.com"},
		"title":       {UserID: "ahmed_awad", VideoURL: "https://x.example.com"},
		"description": {UserID: "ahmed_awad", Title: "t", VideoURL: "https://x.example.com"},
		"video_url":   {UserID: "ahmed_awad", Title: "t", Description: "d"},
	}
	for field, in := range cases {
		_, err := h.cmds.CreateVideo(context.Background(), in)
		var ve *domain.ValidationError
		require.True(t, errors.As(err, &ve), field)
		assert.Equal(t, field, ve.Field)
	}

	_, err := h.cmds.CreateVideo(context.Background(), CreateVideoInput{UserID: "ahmed_awad", Title: "t", Description: "d", VideoURL: "not a url"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.cmds.CreateVideo(context.Background(), CreateVideoInput{UserID: "ghost", Title: "t", Description: "d", VideoURL: "https://x.example.com"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	assert.Empty(t, h.gw.created)
	assert.Empty(t, h.q.Videos())
}

func TestCreateVideoFailureLeavesStoreUntouched(t *testing.T) {
	h := newHarness()
	h.gw.createErr = &domain.TransportError{Op: "create video", Status: 500}

	_, err := h.cmds.CreateVideo(context.Background(), CreateVideoInput{
		UserID: "ahmed_awad", Title: "t", Description: "d", VideoURL: "https://x.example.com/a",
	})
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.True(t, IsTransportFailure(err))
	assert.Empty(t, h.q.Videos())
	assert.Equal(t, uint64(0), h.store.Snapshot().Version)
}

func TestCreateWithoutIDIsConfirmedByListFetch(t *testing.T) {
	h := newHarness()
	h.gw.createResult = domain.CreateResult{}

	v, err := h.cmds.CreateVideo(context.Background(), CreateVideoInput{
		UserID: "ahmed_awad", Title: "Mine", Description: "d", VideoURL: "https://x.example.com/mine.mp4",
	})
	require.NoError(t, err)
	assert.True(t, v.IsPending())
	assert.True(t, strings.HasPrefix(v.ID, TempIDPrefix))
	require.Len(t, h.q.Pending(), 1)

	h.gw.byUser["ahmed_awad"] = []domain.Video{{ID: "srv-9", UserID: "ahmed_awad", Title: "Mine", Description: "d", VideoURL: v.VideoURL}}
	_, err = h.cmds.LoadUserVideos(context.Background(), "ahmed_awad")
	require.NoError(t, err)

	videos := h.q.Videos()
	require.Len(t, videos, 1)
	assert.Equal(t, "srv-9", videos[0].ID)
	assert.Empty(t, h.q.Pending())
}

func TestEditWhileDetailFresh(t *testing.T) {
	h := newHarness()
	h.gw.setDetail("v1", "Old title", "https://x.example.com/v1")

	first, err := h.cmds.LoadVideo(context.Background(), "v1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, query.StateFresh, h.cache.State(query.VideoDetail("v1")))
	assert.Equal(t, 1, h.gw.fetchByIDCalls)

	require.NoError(t, h.cmds.EditVideo(context.Background(), EditVideoInput{VideoID: "v1", Title: "New title", Description: "d"}))
	assert.Equal(t, query.StateStale, h.cache.State(query.VideoDetail("v1")))
	assert.Equal(t, domain.EditVideoPayload{VideoID: "v1", Title: "New title", Description: "d"}, h.gw.edits[0])

	h.gw.setDetail("v1", "New title", "https://x.example.com/v1")
	_, err = h.cmds.LoadVideo(context.Background(), "v1")
	require.NoError(t, err)
	h.cache.Wait()

	assert.Equal(t, 2, h.gw.fetchByIDCalls)
	assert.Equal(t, query.StateFresh, h.cache.State(query.VideoDetail("v1")))
	current, ok := h.q.Current()
	require.True(t, ok)
	assert.Equal(t, "New title", current.Title)
}

func TestEditUpdatesListedVideo(t *testing.T) {
	h := newHarness()
	h.gw.byUser["ahmed_awad"] = []domain.Video{{ID: "v1", UserID: "ahmed_awad", Title: "Old"}}
	_, err := h.cmds.LoadUserVideos(context.Background(), "ahmed_awad")
	require.NoError(t, err)

	require.NoError(t, h.cmds.EditVideo(context.Background(), EditVideoInput{VideoID: "v1", Title: "New"}))

	v, ok := h.q.VideoByID("v1")
	require.True(t, ok)
	assert.Equal(t, "New", v.Title)
	assert.Equal(t, query.StateStale, h.cache.State(query.UserVideos("ahmed_awad")))
}

func TestEditFailureLeavesStoreUntouched(t *testing.T) {
	h := newHarness()
	h.gw.byUser["ahmed_awad"] = []domain.Video{{ID: "v1", UserID: "ahmed_awad", Title: "Old"}}
	_, err := h.cmds.LoadUserVideos(context.Background(), "ahmed_awad")
	require.NoError(t, err)
	h.gw.editErr = &domain.TransportError{Op: "edit video", Status: 502}

	err = h.cmds.EditVideo(context.Background(), EditVideoInput{VideoID: "v1", Title: "New"})
	require.ErrorIs(t, err, domain.ErrTransport)

	v, _ := h.q.VideoByID("v1")
	assert.Equal(t, "Old", v.Title)
	assert.Equal(t, query.StateFresh, h.cache.State(query.UserVideos("ahmed_awad")))

	var ve *domain.ValidationError
	require.True(t, errors.As(h.cmds.EditVideo(context.Background(), EditVideoInput{Title: "x"}), &ve))
	assert.Equal(t, "video_id", ve.Field)
}

func TestLoadVideoFailureModes(t *testing.T) {
	h := newHarness()

	// Unrecognized payload: no video, no error
	v, err := h.cmds.LoadVideo(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, v)
	_, selected := h.q.Current()
	assert.False(t, selected)

	// Transport failure: visible as the detail entry's error state
	h.gw.detailErr = &domain.TransportError{Op: "fetch video", Status: 503}
	_, err = h.cmds.LoadVideo(context.Background(), "v2")
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, query.StateError, h.cache.State(query.VideoDetail("v2")))
	assert.ErrorIs(t, h.cmds.DetailError("v2"), domain.ErrTransport)

	// Recovery re-enters pending and succeeds
	h.gw.detailErr = nil
	h.gw.setDetail("v2", "Back", "https://x.example.com/v2")
	v, err = h.cmds.LoadVideo(context.Background(), "v2")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "Back", v.Title)
	assert.NoError(t, h.cmds.DetailError("v2"))
}

func TestInvalidateHelpers(t *testing.T) {
	h := newHarness()
	for i := 0; i < 2; i++ {
		id := fmt.Sprintf("v%d", i)
		h.gw.setDetail(id, id, "https://x.example.com/"+id)
		_, err := h.cmds.LoadVideo(context.Background(), id)
		require.NoError(t, err)
	}

	h.cmds.InvalidateVideo("v0")
	assert.Equal(t, query.StateStale, h.cache.State(query.VideoDetail("v0")))
	assert.Equal(t, query.StateFresh, h.cache.State(query.VideoDetail("v1")))

	h.cmds.InvalidateAll()
	assert.Equal(t, query.StateStale, h.cache.State(query.VideoDetail("v1")))
}
