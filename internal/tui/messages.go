package tui

import (
	"github.com/mmcdole/vidsync/internal/domain"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// SnapshotMsg carries a store notification into the update loop
type SnapshotMsg struct {
	Snapshot domain.VideoSnapshot
}

// VideosLoadedMsg signals that the all-users list has been fetched
type VideosLoadedMsg struct {
	Count int
}

// DetailLoadedMsg signals that a video's detail fetch finished.
// Video is nil when the backend answered in an unrecognized shape.
type DetailLoadedMsg struct {
	VideoID string
	Video   *domain.Video
	Err     error
}

// CommentsLoadedMsg signals that a video's comments are ready
type CommentsLoadedMsg struct {
	VideoID  string
	Comments []domain.Comment
}

// NoteSavedMsg signals that a scratch note was written
type NoteSavedMsg struct {
	VideoID string
	Cleared bool
	Err     error
}

// PlaybackStartedMsg signals that the player was launched (or failed to)
type PlaybackStartedMsg struct {
	Title string
	Err   error
}
