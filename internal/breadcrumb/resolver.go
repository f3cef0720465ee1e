// Package breadcrumb turns a page path into display labels.
//
// A video id or username segment is Resolved when its name is known (store
// or registry), Loading while a detail fetch for the video is in flight, and
// Unresolved otherwise, in which case the raw slug is formatted. Names are
// only ever read from the store, so a breadcrumb and the video page it points
// at always agree once both have seen the same fetch.
package breadcrumb

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mmcdole/vidsync/internal/domain"
	"github.com/mmcdole/vidsync/internal/query"
	"github.com/mmcdole/vidsync/internal/users"
)

// MaxLabelLength is where Short truncates labels
const MaxLabelLength = 25

// State is the resolution state of one crumb
type State int

const (
	Unresolved State = iota
	Loading
	Resolved
)

func (s State) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Loading:
		return "loading"
	default:
		return "unresolved"
	}
}

// Crumb is one path segment ready for display
type Crumb struct {
	Segment string
	Label   string
	Href    string
	State   State
}

// Short returns the label truncated to MaxLabelLength runes
func (c Crumb) Short() string {
	if utf8.RuneCountInString(c.Label) <= MaxLabelLength {
		return c.Label
	}
	r := []rune(c.Label)
	return string(r[:MaxLabelLength]) + "..."
}

var staticLabels = map[string]string{
	"explore":                 "Explore",
	"courses":                 "Courses",
	"videos":                  "Video",
	"users":                   "Users",
	"account":                 "Account",
	"artificial-intelligence": "Artificial Intelligence",
	"web-dev":                 "Web Development",
	"deep-learning":           "Deep Learning",
	"machine-learning":        "Machine Learning",
	"react":                   "React",
	"node":                    "Node",
}

// LoadTracker reports the cache state of a key
type LoadTracker interface {
	State(key query.Key) query.State
}

// Resolver resolves paths against the store and the user registry
type Resolver struct {
	videos   domain.VideoReader
	registry *users.Registry
	loads    LoadTracker
}

// NewResolver creates a resolver. loads may be nil, in which case no crumb is
// ever reported as Loading.
func NewResolver(videos domain.VideoReader, registry *users.Registry, loads LoadTracker) *Resolver {
	return &Resolver{videos: videos, registry: registry, loads: loads}
}

// Resolve labels every segment of path, e.g. "/videos/abc" or "/users/ahmed_awad"
func (r *Resolver) Resolve(path string) []Crumb {
	segments := split(path)
	crumbs := make([]Crumb, 0, len(segments))
	var snap *domain.VideoSnapshot

	for i, seg := range segments {
		c := Crumb{Segment: seg, Href: "/" + strings.Join(segments[:i+1], "/")}
		parent := ""
		if i > 0 {
			parent = segments[i-1]
		}

		switch {
		case parent == "videos":
			if snap == nil {
				s := r.videos.Snapshot()
				snap = &s
			}
			c.Label, c.State = r.videoLabel(seg, *snap)
		case parent == "users":
			if u, ok := r.registry.ByUsername(seg); ok {
				c.Label, c.State = u.Name, Resolved
			} else {
				c.Label, c.State = FormatSlug(seg), Unresolved
			}
		default:
			if label, ok := staticLabels[seg]; ok {
				c.Label, c.State = label, Resolved
			} else {
				c.Label, c.State = FormatSlug(seg), Unresolved
			}
		}
		crumbs = append(crumbs, c)
	}
	return crumbs
}

func (r *Resolver) videoLabel(id string, snap domain.VideoSnapshot) (string, State) {
	if snap.Current != nil && snap.Current.ID == id {
		return snap.Current.Title, Resolved
	}
	for _, v := range snap.Videos {
		if v.ID == id {
			return v.Title, Resolved
		}
	}
	if r.loads != nil && r.loads.State(query.VideoDetail(id)) == query.StatePending {
		return "", Loading
	}
	return FormatSlug(id), Unresolved
}

// FormatSlug splits on "-" and capitalizes each word: "web-dev" -> "Web Dev"
func FormatSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func split(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
