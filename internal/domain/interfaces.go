package domain

import (
	"context"
	"encoding/json"
)

// RawVideoResponse is the detail payload exactly as the backend sent it.
// It is either a bare video object or {"video": {...}}.
type RawVideoResponse json.RawMessage

// CreateVideoPayload is the body of a create request.
// VideoURL already carries the encoded categories and courses.
type CreateVideoPayload struct {
	UserID      string   `json:"user_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	VideoURL    string   `json:"video_url"`
	Categories  []string `json:"categories,omitempty"`
	Courses     []string `json:"courses,omitempty"`
}

// EditVideoPayload is the body of an edit request. URL and metadata are immutable after creation.
type EditVideoPayload struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateResult is the normalized create response.
// Confirmed is false when the backend answered without any id.
type CreateResult struct {
	ID        string
	Confirmed bool
}

// CreateCommentPayload is the body of a comment create request
type CreateCommentPayload struct {
	VideoID string `json:"video_id"`
	Content string `json:"content"`
	UserID  string `json:"user_id"`
}

// VideoGateway performs the video REST calls.
// Reads degrade to empty results; writes propagate failures.
type VideoGateway interface {
	FetchByUser(ctx context.Context, userID string) []Video
	FetchByID(ctx context.Context, videoID string) (RawVideoResponse, error)
	Create(ctx context.Context, payload CreateVideoPayload) (CreateResult, error)
	Edit(ctx context.Context, payload EditVideoPayload) error
}

// CommentGateway performs the comment REST calls
type CommentGateway interface {
	FetchComments(ctx context.Context, videoID string) []Comment
	CreateComment(ctx context.Context, payload CreateCommentPayload) (*Comment, error)
}

// ChangeKind names the store mutation that produced a snapshot
type ChangeKind int

const (
	ChangeReplaceAll ChangeKind = iota
	ChangeAppend
	ChangeUpdate
	ChangeSelect
	ChangeConfirmID
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeReplaceAll:
		return "replace_all"
	case ChangeAppend:
		return "append"
	case ChangeUpdate:
		return "update"
	case ChangeSelect:
		return "select"
	case ChangeConfirmID:
		return "confirm_id"
	default:
		return "unknown"
	}
}

// VideoSnapshot is an immutable view of the canonical store.
// Version changes whenever the Videos slice is replaced.
type VideoSnapshot struct {
	Videos  []Video
	Current *Video
	Version uint64
	Change  ChangeKind
}

// VideoObserver receives a snapshot after every store mutation
type VideoObserver interface {
	OnVideosChanged(snapshot VideoSnapshot)
}

// VideoObserverFunc adapts a function to VideoObserver
type VideoObserverFunc func(VideoSnapshot)

func (f VideoObserverFunc) OnVideosChanged(s VideoSnapshot) { f(s) }

// VideoReader provides synchronous reads of the canonical store
type VideoReader interface {
	Snapshot() VideoSnapshot
}

// VideoStore is the canonical store's mutation surface
type VideoStore interface {
	VideoReader
	Subscribe(o VideoObserver) func()
	VideoByID(id string) (Video, bool)
	ReplaceAll(videos []Video)
	Append(v Video)
	UpdateByID(v Video) bool
	UpdateFunc(id string, fn func(*Video)) bool
	Select(v *Video)
	ConfirmID(tempID, realID string) bool
}
