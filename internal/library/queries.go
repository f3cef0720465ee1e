package library

import "github.com/mmcdole/vidsync/internal/domain"

// Queries provides synchronous, store-only reads.
// Never blocks on network; safe to call from View() code.
type Queries struct {
	store domain.VideoStore
}

// NewQueries creates a new Queries instance.
func NewQueries(store domain.VideoStore) *Queries {
	return &Queries{store: store}
}

func (q *Queries) Videos() []domain.Video {
	return q.store.Snapshot().Videos
}

func (q *Queries) Current() (domain.Video, bool) {
	snap := q.store.Snapshot()
	if snap.Current == nil {
		return domain.Video{}, false
	}
	return *snap.Current, true
}

// VideoByID checks the selection first, then the list
func (q *Queries) VideoByID(id string) (domain.Video, bool) {
	snap := q.store.Snapshot()
	if snap.Current != nil && snap.Current.ID == id {
		return *snap.Current, true
	}
	return q.store.VideoByID(id)
}

func (q *Queries) VideosByUser(userID string) []domain.Video {
	out := []domain.Video{}
	for _, v := range q.store.Snapshot().Videos {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out
}

// Pending returns videos still waiting for a server id
func (q *Queries) Pending() []domain.Video {
	out := []domain.Video{}
	for _, v := range q.store.Snapshot().Videos {
		if v.IsPending() {
			out = append(out, v)
		}
	}
	return out
}
