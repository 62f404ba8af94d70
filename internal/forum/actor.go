package forum

import "github.com/zfogg/tinyforum/backend/internal/models"

// Actor is the user on whose behalf an operation runs. The zero value is
// an anonymous visitor.
type Actor struct {
	User        *models.User
	IsModerator bool
}

// ActorFor builds an actor from an optional user, granting moderation
// powers from the user's flag.
func ActorFor(u *models.User) Actor {
	return Actor{User: u, IsModerator: u != nil && u.IsModerator}
}

// Authenticated reports whether a user is attached.
func (a Actor) Authenticated() bool { return a.User != nil }

// ID returns the user id or "" for anonymous actors.
func (a Actor) ID() string {
	if a.User == nil {
		return ""
	}
	return a.User.ID
}

func (a Actor) owns(authorID string) bool {
	return a.User != nil && a.User.ID == authorID
}
