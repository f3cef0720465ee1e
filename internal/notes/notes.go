// Package notes persists per-user scratch notes for videos.
package notes

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/vidsync/internal/users"
	bolt "go.etcd.io/bbolt"
)

const keyPrefix = "scratchpad-"

var bucketNotes = []byte("notes")

// Key returns the storage key for a user's note on a video.
// An empty username is stored under the guest account.
func Key(username, videoID string) string {
	if username == "" {
		username = users.GuestUsername
	}
	return keyPrefix + username + "-" + videoID
}

// Store keeps notes in memory and, when a path is configured, in a bolt file
type Store struct {
	db     *bolt.DB
	mu     sync.RWMutex
	cache  map[string]string
	logger *slog.Logger
}

// Open opens the notes database at path. An empty path keeps notes in memory
// for the lifetime of the process only.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{cache: make(map[string]string), logger: logger}
	if path == "" {
		return s, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create notes directory: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open notes db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketNotes)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	s.db = db
	return s, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the note text, or "" when none was saved
func (s *Store) Get(username, videoID string) string {
	key := Key(username, videoID)

	s.mu.RLock()
	if text, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return text
	}
	s.mu.RUnlock()

	if s.db == nil {
		return ""
	}

	var text string
	found := false
	s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketNotes).Get([]byte(key)); v != nil {
			text = string(v)
			found = true
		}
		return nil
	})
	if !found {
		return ""
	}

	s.mu.Lock()
	s.cache[key] = text
	s.mu.Unlock()
	return text
}

// Set saves text as the note. Saving an empty note clears it.
func (s *Store) Set(username, videoID, text string) error {
	if text == "" {
		return s.Clear(username, videoID)
	}
	key := Key(username, videoID)

	s.mu.Lock()
	s.cache[key] = text
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNotes).Put([]byte(key), []byte(text))
	}); err != nil {
		return fmt.Errorf("failed to save note %s: %w", key, err)
	}
	s.logger.Debug("saved note", "key", key, "length", len(text))
	return nil
}

// Clear removes the note
func (s *Store) Clear(username, videoID string) error {
	key := Key(username, videoID)

	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNotes).Delete([]byte(key))
	})
}

// VideoIDs lists the videos a user has notes for, sorted
func (s *Store) VideoIDs(username string) []string {
	prefix := Key(username, "")
	seen := make(map[string]bool)

	s.mu.RLock()
	for k := range s.cache {
		if strings.HasPrefix(k, prefix) {
			seen[strings.TrimPrefix(k, prefix)] = true
		}
	}
	s.mu.RUnlock()

	if s.db != nil {
		s.db.View(func(tx *bolt.Tx) error {
			c := tx.Bucket(bucketNotes).Cursor()
			p := []byte(prefix)
			for k, _ := c.Seek(p); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
				seen[strings.TrimPrefix(string(k), prefix)] = true
			}
			return nil
		})
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ClearUser removes every note the user saved
func (s *Store) ClearUser(username string) error {
	prefix := Key(username, "")

	s.mu.Lock()
	for k := range s.cache {
		if strings.HasPrefix(k, prefix) {
			delete(s.cache, k)
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	// Collect first; deleting while iterating skips keys
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotes)
		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.Seek([]byte(prefix)); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
