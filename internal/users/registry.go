package users

import (
	"github.com/mmcdole/vidsync/internal/domain"
)

// GuestUsername is used for storage keys when no user is selected
const GuestUsername = "guest"

// builtin is the fixed set of known users
var builtin = []domain.User{
	{
		ID:        "ahmed_awad",
		Username:  "ahmed_awad",
		Name:      "Ahmed Awad",
		Email:     "Ahmed@videomind.com",
		AvatarURL: "/AhmedAwad.png",
	},
	{
		ID:        "ahmed_awad_andy_anderson",
		Username:  "ahmed_awad_andy_anderson",
		Name:      "Andy Anderson",
		Email:     "andy@videomind.com",
		AvatarURL: "/AndyAnderson.png",
	},
	{
		ID:        "ahmed_awad_kelly_kellerson",
		Username:  "ahmed_awad_kelly_kellerson",
		Name:      "Kelly Kellerson",
		Email:     "kelly@videomind.com",
		AvatarURL: "/KellyKellerson.png",
	},
	{
		ID:        "ahmed_awad_moe_shmoe",
		Username:  "ahmed_awad_moe_shmoe",
		Name:      "Moe Shmoe",
		Email:     "moe@videomind.com",
		AvatarURL: "/MoeShmoe.png",
	},
}

// Registry is an immutable lookup table of users
type Registry struct {
	users      []domain.User
	byID       map[string]int
	byUsername map[string]int
}

// Default returns the registry of built-in users
func Default() *Registry {
	return New(builtin)
}

// New builds a registry from the given users. The slice is copied.
func New(list []domain.User) *Registry {
	r := &Registry{
		users:      append([]domain.User(nil), list...),
		byID:       make(map[string]int, len(list)),
		byUsername: make(map[string]int, len(list)),
	}
	for i, u := range r.users {
		r.byID[u.ID] = i
		r.byUsername[u.Username] = i
	}
	return r
}

// All returns the users in registry order
func (r *Registry) All() []domain.User {
	return append([]domain.User(nil), r.users...)
}

// ByID looks a user up by id
func (r *Registry) ByID(id string) (domain.User, bool) {
	i, ok := r.byID[id]
	if !ok {
		return domain.User{}, false
	}
	return r.users[i], true
}

// ByUsername looks a user up by username
func (r *Registry) ByUsername(username string) (domain.User, bool) {
	i, ok := r.byUsername[username]
	if !ok {
		return domain.User{}, false
	}
	return r.users[i], true
}

// First returns the default user
func (r *Registry) First() (domain.User, bool) {
	if len(r.users) == 0 {
		return domain.User{}, false
	}
	return r.users[0], true
}
