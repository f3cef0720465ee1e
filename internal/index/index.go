// Package index derives lookup tables from the canonical video store:
// category and course sets, typed search rows, taxonomy filters and fuzzy
// title matching. An Index is immutable once built.
package index

import (
	"sort"
	"strings"

	"github.com/mmcdole/vidsync/internal/domain"
	"github.com/mmcdole/vidsync/internal/metadata"
)

// ResultType is the kind of row a search returns. Results are grouped in
// the declared order.
type ResultType int

const (
	TypeUser ResultType = iota
	TypeVideo
	TypeCategory
	TypeCourse
)

func (t ResultType) String() string {
	switch t {
	case TypeUser:
		return "user"
	case TypeVideo:
		return "video"
	case TypeCategory:
		return "category"
	case TypeCourse:
		return "course"
	default:
		return "unknown"
	}
}

// Result is one addressable search row
type Result struct {
	ID    string
	Type  ResultType
	Title string
	URL   string
}

// Index is a snapshot of derived data for one store version
type Index struct {
	version    uint64
	videos     []domain.Video
	users      []domain.User
	categories []string
	courses    []string
	titles     *titleSource
}

// Build computes an index over videos. users are the searchable accounts.
func Build(videos []domain.Video, users []domain.User, version uint64) *Index {
	ix := &Index{
		version:    version,
		videos:     videos,
		users:      users,
		categories: distinct(videos, func(v domain.Video) []string { return v.Categories }),
		courses:    distinct(videos, func(v domain.Video) []string { return v.Courses }),
		titles:     newTitleSource(videos),
	}
	return ix
}

// Version is the store version the index was built from
func (ix *Index) Version() uint64 { return ix.version }

// Len returns the number of indexed videos
func (ix *Index) Len() int { return len(ix.videos) }

// Categories returns every category, sorted and deduplicated
func (ix *Index) Categories() []string {
	return append([]string(nil), ix.categories...)
}

// Courses returns every course, sorted and deduplicated
func (ix *Index) Courses() []string {
	return append([]string(nil), ix.courses...)
}

// Search matches query case-insensitively as a substring of user display names,
// video titles, category names and course names. Rows are grouped by type
// and otherwise keep input order.
func (ix *Index) Search(query string) []Result {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []Result{}
	}
	contains := func(s string) bool { return strings.Contains(strings.ToLower(s), q) }

	results := []Result{}
	for _, u := range ix.users {
		if contains(u.Name) {
			results = append(results, Result{ID: u.ID, Type: TypeUser, Title: u.Name, URL: UserURL(u.Username)})
		}
	}

	seen := make(map[string]bool)
	for _, v := range ix.videos {
		if seen[v.ID] || !contains(v.Title) {
			continue
		}
		seen[v.ID] = true
		results = append(results, Result{ID: v.ID, Type: TypeVideo, Title: v.Title, URL: VideoURL(v.ID)})
	}
	for _, c := range ix.categories {
		if contains(c) {
			slug := metadata.Slug(c)
			results = append(results, Result{ID: slug, Type: TypeCategory, Title: c, URL: CategoryURL(c)})
		}
	}
	for _, c := range ix.courses {
		if contains(c) {
			slug := metadata.Slug(c)
			results = append(results, Result{ID: slug, Type: TypeCourse, Title: c, URL: CourseURL(c)})
		}
	}
	return results
}

// VideosByCategory returns videos tagged with category, ignoring case
func (ix *Index) VideosByCategory(category string) []domain.Video {
	return ix.filter(func(v domain.Video) bool { return hasFold(v.Categories, category) })
}

// VideosByCourse returns videos tagged with course, ignoring case
func (ix *Index) VideosByCourse(course string) []domain.Video {
	return ix.filter(func(v domain.Video) bool { return hasFold(v.Courses, course) })
}

// VideosBySlug returns videos whose category or course has the given slug
func (ix *Index) VideosBySlug(slug string) []domain.Video {
	slug = metadata.Slug(slug)
	if slug == "" {
		return []domain.Video{}
	}
	match := func(items []string) bool {
		for _, item := range items {
			if metadata.Slug(item) == slug {
				return true
			}
		}
		return false
	}
	return ix.filter(func(v domain.Video) bool { return match(v.Categories) || match(v.Courses) })
}

// Recommended returns up to n videos other than currentID, cycling through
// them when there are fewer than n.
func (ix *Index) Recommended(currentID string, n int) []domain.Video {
	others := ix.filter(func(v domain.Video) bool { return v.ID != currentID })
	out := []domain.Video{}
	if len(others) == 0 {
		return out
	}
	for i := 0; i < n; i++ {
		out = append(out, others[i%len(others)])
	}
	return out
}

func (ix *Index) filter(keep func(domain.Video) bool) []domain.Video {
	out := []domain.Video{}
	for _, v := range ix.videos {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// UserURL is the page of a user
func UserURL(username string) string { return "/users/" + username }

// VideoURL is the page of a video
func VideoURL(id string) string { return "/videos/" + id }

// CategoryURL is the explore page of a category
func CategoryURL(name string) string { return "/explore/" + metadata.Slug(name) }

// CourseURL is the page of a course
func CourseURL(name string) string { return "/courses/" + metadata.Slug(name) }

func distinct(videos []domain.Video, field func(domain.Video) []string) []string {
	set := make(map[string]struct{})
	for _, v := range videos {
		for _, item := range field(v) {
			if item != "" {
				set[item] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for item := range set {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

func hasFold(items []string, want string) bool {
	if want == "" {
		return false
	}
	for _, item := range items {
		if strings.EqualFold(item, want) {
			return true
		}
	}
	return false
}
