// Package metadata carries category and course lists inside a video's URL.
//
// The backend has no taxonomy fields, so the lists travel as the comma-joined
// query parameters "categories" and "courses" of the stored video_url:
//
//	https://cdn.example.com/intro.mp4?categories=Web-Dev,AI&courses=React-101
//
// Decode(Encode(u, c, k)) yields Normalize(c) and Normalize(k).
package metadata

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/mmcdole/vidsync/internal/domain"
)

const (
	ParamCategories = "categories"
	ParamCourses    = "courses"

	separator = ","
)


// Metadata is the decoded taxonomy of a video
type Metadata struct {
	Categories []string
	Courses    []string
}

// Decode extracts categories and courses from a video URL.
// Malformed URLs yield empty lists.
func Decode(rawURL string) Metadata {
	md := Metadata{Categories: []string{}, Courses: []string{}}
	u, err := url.Parse(rawURL)
	if err != nil {
		return md
	}
	q := u.Query()
	md.Categories = splitList(q.Get(ParamCategories))
	md.Courses = splitList(q.Get(ParamCourses))
	return md
}

// Encode appends the normalized lists to baseURL. Empty lists are omitted and
// any categories/courses parameters already on baseURL are replaced.
func Encode(baseURL string, categories, courses []string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", &domain.ValidationError{Field: "video_url"}
	}

	var parts []string
	if u.RawQuery != "" {
		for _, pair := range strings.Split(u.RawQuery, "&") {
			if pair == "" {
				continue
			}
			key := pair
			if i := strings.IndexByte(pair, '='); i >= 0 {
				key = pair[:i]
			}
			if k, err := url.QueryUnescape(key); err == nil && (k == ParamCategories || k == ParamCourses) {
				continue
			}
			parts = append(parts, pair)
		}
	}

	if c := joinList(categories); c != "" {
		parts = append(parts, ParamCategories+"="+c)
	}
	if c := joinList(courses); c != "" {
		parts = append(parts, ParamCourses+"="+c)
	}

	u.RawQuery = strings.Join(parts, "&")
	u.ForceQuery = false
	return u.String(), nil
}

// Normalize trims each item, drops empty ones and replaces internal whitespace
// runs with "-". Items containing commas are split, since the comma is the
// list separator on the wire.
func Normalize(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, separator) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, dashJoin(part))
		}
	}
	return out
}

// ParseList normalizes comma-separated user input such as "Web Dev, AI"
func ParseList(input string) []string {
	return Normalize([]string{input})
}

// Format renders a list the way it is stored in the URL
func Format(items []string) string {
	return strings.Join(Normalize(items), separator)
}

// Slug lowercases name and replaces whitespace runs with "-"
func Slug(name string) string {
	return dashJoin(strings.ToLower(name))
}

// Apply sets the decoded categories and courses on v
func Apply(v domain.Video) domain.Video {
	md := Decode(v.VideoURL)
	v.Categories = md.Categories
	v.Courses = md.Courses
	return v
}

func joinList(items []string) string {
	normalized := Normalize(items)
	escaped := make([]string, len(normalized))
	for i, item := range normalized {
		escaped[i] = url.QueryEscape(item)
	}
	return strings.Join(escaped, separator)
}

func splitList(value string) []string {
	out := []string{}
	for _, item := range strings.Split(value, separator) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// dashJoin replaces every run of Unicode whitespace with "-" and drops it at the ends
func dashJoin(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), "-")
}
