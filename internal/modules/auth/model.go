// README: Auth collaborator types (users, sessions, sentinel errors).
package auth

import (
	"errors"
	"time"
)

var (
	ErrBadRequest         = errors.New("bad request")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already registered")
	ErrUnavailable        = errors.New("authentication is not configured")
)

// User is the signed-in account.
type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

// Session is the result of a successful sign-in. IDToken authenticates later
// requests as a bearer token.
type Session struct {
	User         User          `json:"user"`
	IDToken      string        `json:"idToken"`
	RefreshToken string        `json:"refreshToken"`
	ExpiresIn    time.Duration `json:"-"`
}

// ExpiresInSeconds is the token lifetime as sent to clients.
func (s Session) ExpiresInSeconds() int64 {
	return int64(s.ExpiresIn / time.Second)
}
