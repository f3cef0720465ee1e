package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/vidsync/internal/domain"
)

// ChannelObserver adapts domain.VideoObserver to a channel for Bubble Tea.
type ChannelObserver struct {
	ch chan domain.VideoSnapshot
}

// NewChannelObserver creates a new channel-based observer.
func NewChannelObserver(buffer int) *ChannelObserver {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelObserver{ch: make(chan domain.VideoSnapshot, buffer)}
}

// OnVideosChanged forwards the snapshot. When the buffer is full the oldest
// pending snapshot is dropped; only the newest matters to the view.
func (o *ChannelObserver) OnVideosChanged(s domain.VideoSnapshot) {
	for {
		select {
		case o.ch <- s:
			return
		default:
		}
		select {
		case <-o.ch:
		default:
		}
	}
}

// Wait returns a command that delivers the next snapshot as a SnapshotMsg
func (o *ChannelObserver) Wait() tea.Cmd {
	return func() tea.Msg {
		return SnapshotMsg{Snapshot: <-o.ch}
	}
}
