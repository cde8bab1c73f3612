package auth

import (
	"context"

	fbauth "firebase.google.com/go/v4/auth"
)

// Admin is the part of the Firebase Admin SDK the Service uses.
type Admin interface {
	VerifyIDToken(ctx context.Context, idToken string) (string, error)
	GetUser(ctx context.Context, uid string) (User, error)
	CreateUser(ctx context.Context, name, email, password string) (User, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

type firebaseAdmin struct {
	client *fbauth.Client
}

// NewFirebaseAdmin adapts an Admin SDK auth client.
func NewFirebaseAdmin(client *fbauth.Client) Admin {
	return &firebaseAdmin{client: client}
}

func (a *firebaseAdmin) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	token, err := a.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	return token.UID, nil
}

func (a *firebaseAdmin) GetUser(ctx context.Context, uid string) (User, error) {
	rec, err := a.client.GetUser(ctx, uid)
	if err != nil {
		if fbauth.IsUserNotFound(err) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	return fromRecord(rec), nil
}

func (a *firebaseAdmin) CreateUser(ctx context.Context, name, email, password string) (User, error) {
	params := (&fbauth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(name)
	rec, err := a.client.CreateUser(ctx, params)
	if err != nil {
		if fbauth.IsEmailAlreadyExists(err) {
			return User{}, ErrEmailExists
		}
		return User{}, err
	}
	return fromRecord(rec), nil
}

func (a *firebaseAdmin) RevokeRefreshTokens(ctx context.Context, uid string) error {
	return a.client.RevokeRefreshTokens(ctx, uid)
}

func fromRecord(rec *fbauth.UserRecord) User {
	if rec == nil || rec.UserInfo == nil {
		return User{}
	}
	return User{
		UID:         rec.UID,
		Email:       rec.Email,
		DisplayName: rec.DisplayName,
		PhotoURL:    rec.PhotoURL,
	}
}
