package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// googleProvider is the Identity Toolkit provider id for Google sign-in.
const googleProvider = "google.com"

// SignInProvider exchanges credentials for Firebase sessions.
type SignInProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (Session, error)
	SignInWithIdP(ctx context.Context, providerID, idToken, requestURI string) (Session, error)
}

type identityToolkit struct {
	svc *identitytoolkit.Service
}

// NewIdentityToolkit creates a SignInProvider using the project's web API key.
func NewIdentityToolkit(ctx context.Context, webAPIKey string) (SignInProvider, error) {
	svc, err := identitytoolkit.NewService(ctx, option.WithAPIKey(webAPIKey))
	if err != nil {
		return nil, fmt.Errorf("identitytoolkit.NewService: %w", err)
	}
	return &identityToolkit{svc: svc}, nil
}

func (t *identityToolkit) SignInWithPassword(ctx context.Context, email, password string) (Session, error) {
	resp, err := t.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return Session{}, mapToolkitError(err)
	}
	return Session{
		User:         User{UID: resp.LocalId, Email: resp.Email, DisplayName: resp.DisplayName},
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    time.Duration(resp.ExpiresIn) * time.Second,
	}, nil
}

func (t *identityToolkit) SignInWithIdP(ctx context.Context, providerID, idToken, requestURI string) (Session, error) {
	body := url.Values{}
	body.Set("id_token", idToken)
	body.Set("providerId", providerID)

	resp, err := t.svc.Relyingparty.VerifyAssertion(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest{
		PostBody:          body.Encode(),
		RequestUri:        requestURI,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return Session{}, mapToolkitError(err)
	}
	if resp.ErrorMessage != "" {
		return Session{}, fmt.Errorf("%w: %s", ErrInvalidCredentials, resp.ErrorMessage)
	}
	return Session{
		User: User{
			UID:         resp.LocalId,
			Email:       resp.Email,
			DisplayName: resp.DisplayName,
			PhotoURL:    resp.PhotoUrl,
		},
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    time.Duration(resp.ExpiresIn) * time.Second,
	}, nil
}

// mapToolkitError turns credential rejections into ErrInvalidCredentials.
func mapToolkitError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest {
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Message)
	}
	return err
}
