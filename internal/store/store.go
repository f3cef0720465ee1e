// Package store holds the canonical, observable collection of videos and the
// current video selection. Every fetch and mutation merges into it through a
// small set of mutators; consumers read snapshots and subscribe to changes.
package store

import (
	"log/slog"
	"sync"

	"github.com/mmcdole/vidsync/internal/domain"
)

type subscription struct {
	id       int
	observer domain.VideoObserver
}

// VideoStore is the canonical video store.
//
// Mutations are serialized: each mutator updates the state and then notifies
// every observer, in subscription order, before the next mutator starts.
// Observers may read Snapshot but must not call mutators.
type VideoStore struct {
	// mutMu serializes mutate+notify
	mutMu sync.Mutex

	mu      sync.RWMutex
	videos  []domain.Video
	current *domain.Video
	version uint64

	obsMu     sync.Mutex
	observers []subscription
	nextObsID int

	logger *slog.Logger
}

// New creates an empty store
func New(logger *slog.Logger) *VideoStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoStore{videos: []domain.Video{}, logger: logger}
}

// Subscribe registers an observer. The returned func removes it.
func (s *VideoStore) Subscribe(o domain.VideoObserver) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.nextObsID++
	id := s.nextObsID
	s.observers = append(s.observers, subscription{id: id, observer: o})

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		for i, sub := range s.observers {
			if sub.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns a copy of the current state
func (s *VideoStore) Snapshot() domain.VideoSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(domain.ChangeReplaceAll)
}

// VideoByID returns the stored video with id
func (s *VideoStore) VideoByID(id string) (domain.Video, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.videos[i].Clone(), true
	}
	return domain.Video{}, false
}

// ReplaceAll discards the previous list. Duplicate ids collapse to one entry
// at the first occurrence's position carrying the last occurrence's value.
// The current selection is left alone even when it is no longer listed.
func (s *VideoStore) ReplaceAll(videos []domain.Video) {
	s.mutate(domain.ChangeReplaceAll, func() {
		next := make([]domain.Video, 0, len(videos))
		pos := make(map[string]int, len(videos))
		for _, v := range videos {
			if i, ok := pos[v.ID]; ok {
				next[i] = v.Clone()
				continue
			}
			pos[v.ID] = len(next)
			next = append(next, v.Clone())
		}
		s.setVideosLocked(next)
		s.logger.Debug("store replaced", "count", len(next), "version", s.version)
	})
}

// Append adds a video, typically right after a create. It does not check for
// an existing entry; the next ReplaceAll collapses any duplicate.
func (s *VideoStore) Append(v domain.Video) {
	s.mutate(domain.ChangeAppend, func() {
		next := make([]domain.Video, len(s.videos), len(s.videos)+1)
		copy(next, s.videos)
		next = append(next, v.Clone())
		s.setVideosLocked(next)
		s.logger.Debug("store appended", "videoID", v.ID, "pending", v.IsPending())
	})
}

// UpdateByID replaces the entry with v.ID in place and, when it is the
// current video, the current selection too. It reports whether anything matched.
func (s *VideoStore) UpdateByID(v domain.Video) bool {
	matched := false
	s.mutate(domain.ChangeUpdate, func() {
		matched = s.replaceLocked(v)
	})
	return matched
}

// UpdateFunc applies fn to the stored value of id (the listed entry, else the
// current selection) and stores the result as UpdateByID does.
func (s *VideoStore) UpdateFunc(id string, fn func(*domain.Video)) bool {
	matched := false
	s.mutate(domain.ChangeUpdate, func() {
		var v domain.Video
		if i := s.indexLocked(id); i >= 0 {
			v = s.videos[i].Clone()
		} else if s.current != nil && s.current.ID == id {
			v = s.current.Clone()
		} else {
			return
		}
		fn(&v)
		v.ID = id
		matched = s.replaceLocked(v)
	})
	return matched
}

// Select sets the current video; nil clears it. A listed entry with the same
// id is replaced so the list and the selection hold one value.
func (s *VideoStore) Select(v *domain.Video) {
	s.mutate(domain.ChangeSelect, func() {
		if v == nil {
			s.current = nil
			return
		}
		c := v.Clone()
		s.current = &c
		if i := s.indexLocked(c.ID); i >= 0 {
			next := s.copyVideosLocked()
			next[i] = c.Clone()
			s.setVideosLocked(next)
		}
	})
}

// ConfirmID swaps a pending video's temporary id for the server id. When the
// server id is already listed, the pending duplicate is dropped.
func (s *VideoStore) ConfirmID(tempID, realID string) bool {
	matched := false
	s.mutate(domain.ChangeConfirmID, func() {
		if s.current != nil && s.current.ID == tempID {
			c := s.current.Clone()
			c.ID = realID
			c.IDState = domain.IDConfirmed
			s.current = &c
			matched = true
		}

		i := s.indexLocked(tempID)
		if i < 0 {
			return
		}
		matched = true
		next := s.copyVideosLocked()
		if s.indexLocked(realID) >= 0 {
			next = append(next[:i], next[i+1:]...)
		} else {
			next[i].ID = realID
			next[i].IDState = domain.IDConfirmed
		}
		s.setVideosLocked(next)
		s.logger.Debug("store confirmed id", "tempID", tempID, "videoID", realID)
	})
	return matched
}

// mutate runs fn under the state lock, then notifies observers while still
// holding the mutation lock.
func (s *VideoStore) mutate(change domain.ChangeKind, fn func()) {
	s.mutMu.Lock()
	defer s.mutMu.Unlock()

	s.mu.Lock()
	fn()
	snap := s.snapshotLocked(change)
	s.mu.Unlock()

	s.obsMu.Lock()
	subs := make([]subscription, len(s.observers))
	copy(subs, s.observers)
	s.obsMu.Unlock()

	for _, sub := range subs {
		sub.observer.OnVideosChanged(snap)
	}
}

func (s *VideoStore) replaceLocked(v domain.Video) bool {
	matched := false
	if i := s.indexLocked(v.ID); i >= 0 {
		next := s.copyVideosLocked()
		next[i] = v.Clone()
		s.setVideosLocked(next)
		matched = true
	}
	if s.current != nil && s.current.ID == v.ID {
		c := v.Clone()
		s.current = &c
		matched = true
	}
	return matched
}

func (s *VideoStore) setVideosLocked(videos []domain.Video) {
	s.videos = videos
	s.version++
}

func (s *VideoStore) copyVideosLocked() []domain.Video {
	next := make([]domain.Video, len(s.videos))
	copy(next, s.videos)
	return next
}

func (s *VideoStore) indexLocked(id string) int {
	for i := range s.videos {
		if s.videos[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *VideoStore) snapshotLocked(change domain.ChangeKind) domain.VideoSnapshot {
	videos := make([]domain.Video, len(s.videos))
	for i, v := range s.videos {
		videos[i] = v.Clone()
	}
	snap := domain.VideoSnapshot{Videos: videos, Version: s.version, Change: change}
	if s.current != nil {
		c := s.current.Clone()
		snap.Current = &c
	}
	return snap
}
