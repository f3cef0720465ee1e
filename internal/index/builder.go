package index

import (
	"log/slog"
	"sync"

	"github.com/mmcdole/vidsync/internal/domain"
)

// Source is the store the builder follows
type Source interface {
	domain.VideoReader
	Subscribe(o domain.VideoObserver) func()
}

// Builder keeps an Index current with the store. It rebuilds only when the
// store's videos version moves forward; selection-only changes are ignored.
type Builder struct {
	mu       sync.RWMutex
	current  *Index
	users    []domain.User
	rebuilds int
	logger   *slog.Logger
}

// NewBuilder creates a builder holding an empty index
func NewBuilder(users []domain.User, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		current: Build(nil, users, 0),
		users:   users,
		logger:  logger,
	}
}

// Attach subscribes to src and indexes its current contents.
// The returned func detaches the builder.
func (b *Builder) Attach(src Source) func() {
	unsubscribe := src.Subscribe(b)
	b.OnVideosChanged(src.Snapshot())
	return unsubscribe
}

// OnVideosChanged implements domain.VideoObserver
func (b *Builder) OnVideosChanged(s domain.VideoSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.Version <= b.current.version {
		return
	}
	b.current = Build(s.Videos, b.users, s.Version)
	b.rebuilds++
	b.logger.Debug("index rebuilt",
		"version", s.Version,
		"videos", len(s.Videos),
		"categories", len(b.current.categories),
		"courses", len(b.current.courses),
	)
}

// Index returns the latest index
func (b *Builder) Index() *Index {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// Rebuilds counts how many times the index was recomputed
func (b *Builder) Rebuilds() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rebuilds
}
