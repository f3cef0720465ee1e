package store

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/mmcdole/vidsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *VideoStore {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func video(id, title string) domain.Video {
	return domain.Video{ID: id, Title: title, UserID: "u1", Categories: []string{}, Courses: []string{}}
}

func ids(videos []domain.Video) []string {
	out := make([]string, len(videos))
	for i, v := range videos {
		out[i] = v.ID
	}
	return out
}

// recorder collects every notification
type recorder struct {
	mu    sync.Mutex
	snaps []domain.VideoSnapshot
}

func (r *recorder) OnVideosChanged(s domain.VideoSnapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func TestReplaceAllDedupes(t *testing.T) {
	s := newTestStore()
	s.ReplaceAll([]domain.Video{video("a", "A1"), video("b", "B"), video("a", "A2")})

	snap := s.Snapshot()
	assert.Equal(t, []string{"a", "b"}, ids(snap.Videos))
	assert.Equal(t, "A2", snap.Videos[0].Title)
}

func TestReplaceAllIdempotent(t *testing.T) {
	s := newTestStore()
	list := []domain.Video{video("a", "A"), video("b", "B")}
	s.ReplaceAll(list)
	first := s.Snapshot().Videos
	s.ReplaceAll(list)
	assert.Equal(t, first, s.Snapshot().Videos)
}

func TestReplaceAllKeepsCurrent(t *testing.T) {
	s := newTestStore()
	v := video("x", "Open")
	s.Select(&v)
	s.ReplaceAll([]domain.Video{video("a", "A")})

	snap := s.Snapshot()
	require.NotNil(t, snap.Current)
	assert.Equal(t, "x", snap.Current.ID)
}

func TestAppendThenReplaceAllListWins(t *testing.T) {
	s := newTestStore()
	s.Append(video("new", "optimistic"))
	s.ReplaceAll([]domain.Video{video("old", "Old"), video("new", "from list")})

	snap := s.Snapshot()
	assert.Equal(t, []string{"old", "new"}, ids(snap.Videos))
	assert.Equal(t, "from list", snap.Videos[1].Title)
}

func TestUpdateByIDPreservesOrderAndCurrent(t *testing.T) {
	s := newTestStore()
	s.ReplaceAll([]domain.Video{video("a", "A"), video("b", "B"), video("c", "C")})
	cur := video("b", "B")
	s.Select(&cur)

	assert.True(t, s.UpdateByID(video("b", "B edited")))

	snap := s.Snapshot()
	assert.Equal(t, []string{"a", "b", "c"}, ids(snap.Videos))
	assert.Equal(t, "B edited", snap.Videos[1].Title)
	assert.Equal(t, "B edited", snap.Current.Title)

	assert.False(t, s.UpdateByID(video("zzz", "none")))
}

func TestUpdateFunc(t *testing.T) {
	s := newTestStore()
	v := video("a", "A")
	v.NumComments = 2
	s.ReplaceAll([]domain.Video{v})

	ok := s.UpdateFunc("a", func(v *domain.Video) { v.NumComments++ })
	require.True(t, ok)
	got, _ := s.VideoByID("a")
	assert.Equal(t, 3, got.NumComments)

	// Only selected, not listed
	sel := video("s", "Selected")
	s.Select(&sel)
	require.True(t, s.UpdateFunc("s", func(v *domain.Video) { v.Title = "Renamed" }))
	assert.Equal(t, "Renamed", s.Snapshot().Current.Title)

	assert.False(t, s.UpdateFunc("missing", func(v *domain.Video) {}))
}

func TestSelectReplacesListedEntry(t *testing.T) {
	s := newTestStore()
	s.ReplaceAll([]domain.Video{video("a", "A stale")})
	before := s.Snapshot().Version

	fresh := video("a", "A fresh")
	s.Select(&fresh)

	snap := s.Snapshot()
	assert.Equal(t, "A fresh", snap.Videos[0].Title)
	assert.Equal(t, "A fresh", snap.Current.Title)
	assert.Greater(t, snap.Version, before)

	s.Select(nil)
	assert.Nil(t, s.Snapshot().Current)
}

func TestSelectUnlistedKeepsVersion(t *testing.T) {
	s := newTestStore()
	s.ReplaceAll([]domain.Video{video("a", "A")})
	before := s.Snapshot().Version

	v := video("z", "Z")
	s.Select(&v)
	assert.Equal(t, before, s.Snapshot().Version)
}

func TestConfirmID(t *testing.T) {
	s := newTestStore()
	pending := video("temp-1", "Mine")
	pending.IDState = domain.IDPending
	s.Append(pending)
	s.Select(&pending)

	require.True(t, s.ConfirmID("temp-1", "real-1"))
	snap := s.Snapshot()
	assert.Equal(t, []string{"real-1"}, ids(snap.Videos))
	assert.Equal(t, domain.IDConfirmed, snap.Videos[0].IDState)
	assert.Equal(t, "real-1", snap.Current.ID)
	assert.False(t, snap.Current.IsPending())

	assert.False(t, s.ConfirmID("temp-missing", "x"))
}

func TestConfirmIDDropsDuplicate(t *testing.T) {
	s := newTestStore()
	pending := video("temp-1", "Mine")
	pending.IDState = domain.IDPending
	s.ReplaceAll([]domain.Video{video("real-1", "Server copy")})
	s.Append(pending)

	s.ConfirmID("temp-1", "real-1")
	snap := s.Snapshot()
	assert.Equal(t, []string{"real-1"}, ids(snap.Videos))
	assert.Equal(t, "Server copy", snap.Videos[0].Title)
}

func TestObserversNotifiedInOrder(t *testing.T) {
	s := newTestStore()
	var order []string
	s.Subscribe(domain.VideoObserverFunc(func(domain.VideoSnapshot) { order = append(order, "first") }))
	unsub := s.Subscribe(domain.VideoObserverFunc(func(domain.VideoSnapshot) { order = append(order, "second") }))

	s.Append(video("a", "A"))
	assert.Equal(t, []string{"first", "second"}, order)

	unsub()
	s.Append(video("b", "B"))
	assert.Equal(t, []string{"first", "second", "first"}, order)
}

func TestNotificationCarriesChangeAndVersion(t *testing.T) {
	s := newTestStore()
	rec := &recorder{}
	s.Subscribe(rec)

	s.ReplaceAll([]domain.Video{video("a", "A")})
	v := video("a", "A")
	s.Select(&v)
	s.Select(nil)
	s.UpdateByID(video("a", "A2"))

	require.Len(t, rec.snaps, 4)
	assert.Equal(t, domain.ChangeReplaceAll, rec.snaps[0].Change)
	assert.Equal(t, domain.ChangeSelect, rec.snaps[1].Change)
	assert.Equal(t, domain.ChangeUpdate, rec.snaps[3].Change)
	assert.Equal(t, rec.snaps[1].Version, rec.snaps[2].Version, "clearing the selection leaves the list alone")
	assert.Greater(t, rec.snaps[3].Version, rec.snaps[2].Version)
}

func TestObserverMayReadSnapshot(t *testing.T) {
	s := newTestStore()
	var seen int
	s.Subscribe(domain.VideoObserverFunc(func(domain.VideoSnapshot) {
		seen = len(s.Snapshot().Videos)
	}))
	s.ReplaceAll([]domain.Video{video("a", "A"), video("b", "B")})
	assert.Equal(t, 2, seen)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newTestStore()
	v := video("a", "A")
	v.Categories = []string{"AI"}
	s.ReplaceAll([]domain.Video{v})

	snap := s.Snapshot()
	snap.Videos[0].Title = "mutated"
	snap.Videos[0].Categories[0] = "mutated"

	again := s.Snapshot()
	assert.Equal(t, "A", again.Videos[0].Title)
	assert.Equal(t, []string{"AI"}, again.Videos[0].Categories)
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	s := newTestStore()
	var mu sync.Mutex
	inside := 0
	maxInside := 0
	s.Subscribe(domain.VideoObserverFunc(func(domain.VideoSnapshot) {
		mu.Lock()
		inside++
		if inside > maxInside {
			maxInside = inside
		}
		mu.Unlock()

		mu.Lock()
		inside--
		mu.Unlock()
	}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append(video(string(rune('a'+i%26))+"-x", "t"))
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Snapshot().Videos, 50)
	assert.Equal(t, 1, maxInside)
	assert.Equal(t, uint64(50), s.Snapshot().Version)
}
