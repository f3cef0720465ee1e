package domain

import (
	"time"
)

// IDState distinguishes server-assigned video ids from client placeholders
type IDState int

const (
	// IDConfirmed means the id was assigned by the backend
	IDConfirmed IDState = iota
	// IDPending means the create response carried no id and a temporary one is in use
	IDPending
)

func (s IDState) String() string {
	switch s {
	case IDPending:
		return "pending"
	default:
		return "confirmed"
	}
}

// Video is a video record as held by the canonical store.
// Categories and Courses are derived from VideoURL and never sent by the backend.
type Video struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	VideoURL    string    `json:"video_url"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	NumComments int       `json:"num_comments"`
	Categories  []string  `json:"categories,omitempty"`
	Courses     []string  `json:"courses,omitempty"`
	IDState     IDState   `json:"-"`
}

// IsPending returns true while the video carries a client-generated id
func (v Video) IsPending() bool {
	return v.IDState == IDPending
}

// Clone returns a copy that shares no slices with v
func (v Video) Clone() Video {
	c := v
	if v.Categories != nil {
		c.Categories = append([]string(nil), v.Categories...)
	}
	if v.Courses != nil {
		c.Courses = append([]string(nil), v.Courses...)
	}
	return c
}

// User is an entry of the fixed user registry
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// Comment belongs to exactly one video
type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	VideoID   string    `json:"video_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Clock abstracts time for staleness and timestamps
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
