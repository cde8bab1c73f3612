package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength matches the identity provider's own limit.
const MinPasswordLength = 6

// Service implements the auth collaborator: current user lookup, sign-in,
// sign-up and sign-out. It is independent of the flow layer.
type Service struct {
	admin      Admin
	signIn     SignInProvider
	requestURI string
}

// NewService creates a Service. Either collaborator may be nil, which makes
// the operations needing it fail with ErrUnavailable.
func NewService(admin Admin, signIn SignInProvider, requestURI string) *Service {
	if requestURI == "" {
		requestURI = "http://localhost"
	}
	return &Service{admin: admin, signIn: signIn, requestURI: requestURI}
}

// CurrentUser resolves the user behind an ID token.
func (s *Service) CurrentUser(ctx context.Context, idToken string) (*User, error) {
	if s.admin == nil {
		return nil, ErrUnavailable
	}
	if strings.TrimSpace(idToken) == "" {
		return nil, ErrInvalidCredentials
	}
	uid, err := s.admin.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	u, err := s.admin.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SignInWithEmail signs in with an email and password.
func (s *Service) SignInWithEmail(ctx context.Context, email, password string) (*Session, error) {
	if s.signIn == nil {
		return nil, ErrUnavailable
	}
	email = strings.TrimSpace(email)
	if !validEmail(email) || password == "" {
		return nil, ErrBadRequest
	}
	sess, err := s.signIn.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// SignInWithGoogle exchanges a Google ID token for a session.
func (s *Service) SignInWithGoogle(ctx context.Context, googleIDToken string) (*Session, error) {
	if s.signIn == nil {
		return nil, ErrUnavailable
	}
	if strings.TrimSpace(googleIDToken) == "" {
		return nil, ErrBadRequest
	}
	sess, err := s.signIn.SignInWithIdP(ctx, googleProvider, googleIDToken, s.requestURI)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// SignUp creates an account with a display name and signs it in.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (*Session, error) {
	if s.admin == nil || s.signIn == nil {
		return nil, ErrUnavailable
	}
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || !validEmail(email) || utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, ErrBadRequest
	}
	created, err := s.admin.CreateUser(ctx, name, email, password)
	if err != nil {
		return nil, err
	}
	sess, err := s.signIn.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if sess.User.DisplayName == "" {
		sess.User.DisplayName = created.DisplayName
	}
	return &sess, nil
}

// SignOut revokes every refresh token of uid.
func (s *Service) SignOut(ctx context.Context, uid string) error {
	if s.admin == nil {
		return ErrUnavailable
	}
	if uid == "" {
		return ErrBadRequest
	}
	return s.admin.RevokeRefreshTokens(ctx, uid)
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrBadRequest) || errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrEmailExists)
}
