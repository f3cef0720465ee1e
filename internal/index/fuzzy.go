package index

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/vidsync/internal/domain"
	sahilm "github.com/sahilm/fuzzy"
)

// titleSource implements sahilm/fuzzy.Source over video titles
type titleSource struct {
	videos      []domain.Video
	lowerTitles []string // pre-computed lowercase titles
}

func newTitleSource(videos []domain.Video) *titleSource {
	src := &titleSource{videos: videos, lowerTitles: make([]string, len(videos))}
	for i, v := range videos {
		src.lowerTitles[i] = strings.ToLower(v.Title)
	}
	return src
}

func (s *titleSource) String(i int) string { return s.lowerTitles[i] }

func (s *titleSource) Len() int { return len(s.videos) }

// Match is a fuzzy title hit with the matched character positions for highlighting
type Match struct {
	Video          domain.Video
	MatchedIndexes []int
	Score          int
}

// Filter fuzzy-matches query against video titles, best match first
func (ix *Index) Filter(query string) []Match {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || ix.titles.Len() == 0 {
		return nil
	}

	matches := sahilm.FindFrom(query, ix.titles)
	out := make([]Match, len(matches))
	for i, m := range matches {
		out[i] = Match{
			Video:          ix.titles.videos[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return out
}

// Suggest returns names close to query ("did you mean") from categories,
// courses and video titles, ordered by edit distance.
func (ix *Index) Suggest(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, c := range ix.categories {
		add(c)
	}
	for _, c := range ix.courses {
		add(c)
	}
	for _, v := range ix.videos {
		add(v.Title)
	}

	ranks := fuzzy.RankFindFold(query, names)
	sort.Stable(ranks)

	out := make([]string, len(ranks))
	for i, r := range ranks {
		out[i] = r.Target
	}
	return out
}
