package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/vidsync/internal/domain"
	"github.com/mmcdole/vidsync/internal/metadata"
)

// Shape records how a payload was delivered
type Shape int

const (
	// ShapeBare means the payload was the value itself
	ShapeBare Shape = iota
	// ShapeWrapped means the value sat under a named field of an object
	ShapeWrapped
)

// Envelope is a decoded payload that was either bare or wrapped
type Envelope[T any] struct {
	Value T
	Shape Shape
}

// DecodeEnvelope decodes raw as {field: T} when the object carries field,
// otherwise as a bare T.
func DecodeEnvelope[T any](raw []byte, field string) (Envelope[T], error) {
	var env Envelope[T]
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return env, fmt.Errorf("empty payload: %w", domain.ErrShapeMismatch)
	}

	if raw[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return env, fmt.Errorf("decode object: %v: %w", err, domain.ErrShapeMismatch)
		}
		if inner, ok := obj[field]; ok {
			if err := json.Unmarshal(inner, &env.Value); err != nil {
				return env, fmt.Errorf("decode %q: %v: %w", field, err, domain.ErrShapeMismatch)
			}
			env.Shape = ShapeWrapped
			return env, nil
		}
	}

	if err := json.Unmarshal(raw, &env.Value); err != nil {
		return env, fmt.Errorf("decode bare payload: %v: %w", err, domain.ErrShapeMismatch)
	}
	env.Shape = ShapeBare
	return env, nil
}

// flexString accepts a JSON string or number
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts a JSON number or numeric string
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return err
	}
	*f = flexInt(int(n))
	return nil
}

// videoDTO is the wire form of a video
type videoDTO struct {
	ID          *flexString `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	VideoURL    *string     `json:"video_url"`
	UserID      flexString  `json:"user_id"`
	CreatedAt   string      `json:"created_at"`
	NumComments flexInt     `json:"num_comments"`
}

// commentDTO is the wire form of a comment
type commentDTO struct {
	ID        flexString `json:"id"`
	Content   string     `json:"content"`
	VideoID   flexString `json:"video_id"`
	UserID    flexString `json:"user_id"`
	CreatedAt string     `json:"created_at"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// mapVideo converts the wire form and derives categories/courses from the URL
func mapVideo(d videoDTO) domain.Video {
	v := domain.Video{
		Title:       d.Title,
		Description: d.Description,
		UserID:      string(d.UserID),
		CreatedAt:   parseTime(d.CreatedAt),
		NumComments: int(d.NumComments),
		IDState:     domain.IDConfirmed,
	}
	if d.ID != nil {
		v.ID = string(*d.ID)
	}
	if d.VideoURL != nil {
		v.VideoURL = *d.VideoURL
	}
	return metadata.Apply(v)
}

func mapComment(d commentDTO) domain.Comment {
	return domain.Comment{
		ID:        string(d.ID),
		Content:   d.Content,
		VideoID:   string(d.VideoID),
		UserID:    string(d.UserID),
		CreatedAt: parseTime(d.CreatedAt),
	}
}

// decodeVideoList normalizes the list endpoint: {videos: [...]} or [...]
func decodeVideoList(raw []byte) ([]domain.Video, error) {
	env, err := DecodeEnvelope[[]videoDTO](raw, "videos")
	if err != nil {
		return nil, err
	}
	videos := make([]domain.Video, 0, len(env.Value))
	for _, d := range env.Value {
		if d.ID == nil || *d.ID == "" {
			continue
		}
		videos = append(videos, mapVideo(d))
	}
	return videos, nil
}

// NormalizeVideo decodes a detail response: {video: {...}} or a bare video.
// A bare object must carry an id or a video_url to count as a video.
func NormalizeVideo(raw domain.RawVideoResponse) (domain.Video, error) {
	env, err := DecodeEnvelope[videoDTO](raw, "video")
	if err != nil {
		return domain.Video{}, err
	}
	d := env.Value
	if env.Shape == ShapeBare && d.ID == nil && d.VideoURL == nil {
		return domain.Video{}, fmt.Errorf("object is not a video: %w", domain.ErrShapeMismatch)
	}
	if d.ID == nil || *d.ID == "" {
		return domain.Video{}, fmt.Errorf("video without id: %w", domain.ErrShapeMismatch)
	}
	return mapVideo(d), nil
}

// decodeCreateResponse accepts a bare id (string or number, JSON or plain text)
// or an object carrying id or video_id.
func decodeCreateResponse(raw []byte) domain.CreateResult {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return domain.CreateResult{}
	}

	switch raw[0] {
	case '{':
		var obj struct {
			ID      *flexString `json:"id"`
			VideoID *flexString `json:"video_id"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return domain.CreateResult{}
		}
		if obj.ID != nil && *obj.ID != "" {
			return domain.CreateResult{ID: string(*obj.ID), Confirmed: true}
		}
		if obj.VideoID != nil && *obj.VideoID != "" {
			return domain.CreateResult{ID: string(*obj.VideoID), Confirmed: true}
		}
		return domain.CreateResult{}
	case '[':
		return domain.CreateResult{}
	}

	if json.Valid(raw) {
		var id flexString
		if err := json.Unmarshal(raw, &id); err != nil || id == "" {
			return domain.CreateResult{}
		}
		return domain.CreateResult{ID: string(id), Confirmed: true}
	}
	// Plain-text body
	text := string(raw)
	if strings.ContainsAny(text, " \t\r\n") {
		return domain.CreateResult{}
	}
	return domain.CreateResult{ID: text, Confirmed: true}
}

// decodeCommentList normalizes {comments: [...]} or [...]
func decodeCommentList(raw []byte) ([]domain.Comment, error) {
	env, err := DecodeEnvelope[[]commentDTO](raw, "comments")
	if err != nil {
		return nil, err
	}
	comments := make([]domain.Comment, 0, len(env.Value))
	for _, d := range env.Value {
		comments = append(comments, mapComment(d))
	}
	return comments, nil
}

// decodeComment normalizes a created comment; null means the backend returned nothing
func decodeComment(raw []byte) (*domain.Comment, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	env, err := DecodeEnvelope[commentDTO](raw, "comment")
	if err != nil {
		return nil, err
	}
	c := mapComment(env.Value)
	return &c, nil
}
