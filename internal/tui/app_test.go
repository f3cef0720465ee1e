package tui

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/vidsync/internal/breadcrumb"
	"github.com/mmcdole/vidsync/internal/comments"
	"github.com/mmcdole/vidsync/internal/domain"
	"github.com/mmcdole/vidsync/internal/index"
	"github.com/mmcdole/vidsync/internal/library"
	"github.com/mmcdole/vidsync/internal/notes"
	"github.com/mmcdole/vidsync/internal/query"
	"github.com/mmcdole/vidsync/internal/store"
	"github.com/mmcdole/vidsync/internal/tui/styles"
	"github.com/mmcdole/vidsync/internal/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopGateway struct{}

func (nopGateway) FetchByUser(context.Context, string) []domain.Video { return []domain.Video{} }
func (nopGateway) FetchByID(context.Context, string) (domain.RawVideoResponse, error) {
	return nil, &domain.TransportError{Op: "fetch video", Status: 500}
}
func (nopGateway) Create(context.Context, domain.CreateVideoPayload) (domain.CreateResult, error) {
	return domain.CreateResult{}, nil
}
func (nopGateway) Edit(context.Context, domain.EditVideoPayload) error { return nil }
func (nopGateway) FetchComments(context.Context, string) []domain.Comment {
	return []domain.Comment{}
}
func (nopGateway) CreateComment(context.Context, domain.CreateCommentPayload) (*domain.Comment, error) {
	return nil, nil
}

func newTestModel(t *testing.T) (Model, *store.VideoStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := users.Default()
	st := store.New(logger)
	cache := query.New(nil, time.Minute, logger)

	builder := index.NewBuilder(registry.All(), logger)
	t.Cleanup(builder.Attach(st))
	observer := NewChannelObserver(4)
	t.Cleanup(st.Subscribe(observer))

	ns, err := notes.Open("", logger)
	require.NoError(t, err)

	m := NewModel(Services{
		Library:  library.NewCommands(nopGateway{}, st, cache, registry, nil, logger),
		Queries:  library.NewQueries(st),
		Comments: comments.NewService(nopGateway{}, st, cache, logger),
		Notes:    ns,
		Index:    builder,
		Crumbs:   breadcrumb.NewResolver(st, registry, cache),
		Observer: observer,
		Username: "ahmed_awad",
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model), st
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

var sample = []domain.Video{
	{ID: "v1", Title: "Intro to React", UserID: "ahmed_awad", CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	{ID: "v2", Title: "Go Concurrency", UserID: "ahmed_awad", CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
}

func TestSnapshotRefreshesRows(t *testing.T) {
	m, st := newTestModel(t)
	assert.Empty(t, m.Rows)

	st.ReplaceAll(sample)
	m = send(m, SnapshotMsg{Snapshot: st.Snapshot()})
	require.Len(t, m.Rows, 2)
	assert.Contains(t, m.View(), "Intro to React")
}

func TestSearchFiltersRows(t *testing.T) {
	m, st := newTestModel(t)
	st.ReplaceAll(sample)

	m = send(m, runes("/"), runes("r"), runes("e"), runes("a"), runes("c"), runes("t"))
	assert.Equal(t, StateSearching, m.State)
	assert.Equal(t, "react", m.Query)
	require.Len(t, m.Rows, 1)
	assert.Equal(t, "v1", m.Rows[0].ID)

	m = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, StateBrowsing, m.State)
	assert.Empty(t, m.Query)
	assert.Len(t, m.Rows, 2)
}

func TestOpenAndCloseDetail(t *testing.T) {
	m, st := newTestModel(t)
	st.ReplaceAll(sample)
	m = send(m, SnapshotMsg{Snapshot: st.Snapshot()}, runes("j"))
	assert.Equal(t, 1, m.Cursor)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	assert.NotNil(t, cmd)
	assert.Equal(t, StateDetail, m.State)
	assert.Equal(t, "v2", m.DetailID)

	m = send(m, DetailLoadedMsg{VideoID: "v2", Err: &domain.TransportError{Op: "fetch video", Status: 500}})
	assert.True(t, m.StatusIsErr)
	require.NotNil(t, m.Detail)
	assert.Equal(t, "Go Concurrency", m.Detail.Title, "list copy stays visible")

	m = send(m, CommentsLoadedMsg{VideoID: "v2", Comments: []domain.Comment{{ID: "c1", Content: "great", UserID: "u"}}})
	assert.Contains(t, m.View(), "great")

	m = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, StateBrowsing, m.State)
	assert.Empty(t, m.DetailID)
}

func TestStaleDetailMessageIgnored(t *testing.T) {
	m, st := newTestModel(t)
	st.ReplaceAll(sample)
	m = send(m, SnapshotMsg{Snapshot: st.Snapshot()}, tea.KeyMsg{Type: tea.KeyEnter})

	other := domain.Video{ID: "v2", Title: "Other"}
	m = send(m, DetailLoadedMsg{VideoID: "v2", Video: &other})
	assert.Equal(t, "Intro to React", m.Detail.Title)
}

func TestNoteRoundTrip(t *testing.T) {
	m, st := newTestModel(t)
	st.ReplaceAll(sample)
	m = send(m, SnapshotMsg{Snapshot: st.Snapshot()}, tea.KeyMsg{Type: tea.KeyEnter}, runes("n"))
	require.Equal(t, StateEditingNote, m.State)

	assert.Contains(t, m.View(), "╭", "editor is framed")

	m = send(m, runes("h"), runes("i"))
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Equal(t, StateDetail, m.State)

	msg := cmd()
	saved, ok := msg.(NoteSavedMsg)
	require.True(t, ok)
	require.NoError(t, saved.Err)
	assert.Equal(t, "hi", m.svc.Notes.Get("ahmed_awad", "v1"))
	assert.Contains(t, m.View(), "╭", "saved note is framed")
}

func TestHelpUsesPaletteStyles(t *testing.T) {
	m, _ := newTestModel(t)
	assert.Equal(t, styles.HelpKeyStyle, m.Help.Styles.ShortKey)
	assert.Equal(t, styles.HelpDescStyle, m.Help.Styles.ShortDesc)
	assert.Equal(t, styles.HelpKeyStyle, m.Help.Styles.FullKey)
	assert.Equal(t, styles.HelpDescStyle, m.Help.Styles.FullDesc)
}

func TestChannelObserverKeepsNewest(t *testing.T) {
	o := NewChannelObserver(1)
	o.OnVideosChanged(domain.VideoSnapshot{Version: 1})
	o.OnVideosChanged(domain.VideoSnapshot{Version: 2})

	msg := o.Wait()()
	assert.Equal(t, uint64(2), msg.(SnapshotMsg).Snapshot.Version)
}
