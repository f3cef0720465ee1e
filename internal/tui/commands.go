package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/vidsync/internal/comments"
	"github.com/mmcdole/vidsync/internal/domain"
	"github.com/mmcdole/vidsync/internal/library"
	"github.com/mmcdole/vidsync/internal/notes"
	"github.com/mmcdole/vidsync/internal/player"
)

// Command factories for async operations

const loadTimeout = 30 * time.Second

// LoadAllVideosCmd loads every registry user's videos into the store
func LoadAllVideosCmd(lib *library.Commands) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		videos, err := lib.LoadAllUsersVideos(ctx)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading videos"}
		}
		return VideosLoadedMsg{Count: len(videos)}
	}
}

// LoadDetailCmd fetches a video's detail and selects it in the store
func LoadDetailCmd(lib *library.Commands, videoID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		v, err := lib.LoadVideo(ctx, videoID)
		return DetailLoadedMsg{VideoID: videoID, Video: v, Err: err}
	}
}

// LoadCommentsCmd fetches a video's comments
func LoadCommentsCmd(svc *comments.Service, videoID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		list, err := svc.Load(ctx, videoID)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading comments"}
		}
		return CommentsLoadedMsg{VideoID: videoID, Comments: list}
	}
}

// SaveNoteCmd writes (or, for empty text, clears) a scratch note
func SaveNoteCmd(store *notes.Store, username, videoID, text string) tea.Cmd {
	return func() tea.Msg {
		err := store.Set(username, videoID, text)
		return NoteSavedMsg{VideoID: videoID, Cleared: text == "", Err: err}
	}
}

// PlayCmd opens the video in an external player
func PlayCmd(launcher *player.Launcher, v domain.Video) tea.Cmd {
	return func() tea.Msg {
		return PlaybackStartedMsg{Title: v.Title, Err: launcher.Launch(v)}
	}
}
