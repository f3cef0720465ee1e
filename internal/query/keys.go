package query

import "strings"

// Key scopes
const (
	// ScopeVideos groups every video list and detail key
	ScopeVideos = "videos"

	// ScopeComments groups every comment list key
	ScopeComments = "comments"
)

// Key is an ordered tuple identifying one cached request, e.g. (videos, user, <id>).
// Keys nest: (videos, user) is the scope of every per-user list.
type Key []string

// String renders the key with "." separators: videos.user.<id>
func (k Key) String() string {
	return strings.Join(k, ".")
}

// HasPrefix reports whether k is scope or nested under it
func (k Key) HasPrefix(scope Key) bool {
	if len(scope) > len(k) {
		return false
	}
	for i := range scope {
		if k[i] != scope[i] {
			return false
		}
	}
	return true
}

// AllUsersVideos is the key for the merged list of every registry user's videos
func AllUsersVideos() Key {
	return Key{ScopeVideos, "allUsers"}
}

// UserVideos is the key for one user's video list (videos.user.<id>)
func UserVideos(userID string) Key {
	return Key{ScopeVideos, "user", userID}
}

// VideoDetail is the key for a single video (videos.detail.<id>)
func VideoDetail(videoID string) Key {
	return Key{ScopeVideos, "detail", videoID}
}

// VideoComments is the key for a video's comments (comments.video.<id>)
func VideoComments(videoID string) Key {
	return Key{ScopeComments, "video", videoID}
}

// UserListKeys returns the list keys that must be refreshed after a user's
// videos change: the user's own list and the merged list.
func UserListKeys(userID string) []Key {
	return []Key{UserVideos(userID), AllUsersVideos()}
}
