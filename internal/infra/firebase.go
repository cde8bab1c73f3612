// README: Firebase Admin auth client and the bearer-token verifier built on it.
package infra

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseToken is a verified ID token.
type FirebaseToken struct {
	UID    string
	Claims map[string]interface{}
}

// Role returns the "role" custom claim, or "" when it is absent.
func (t *FirebaseToken) Role() string {
	role, _ := t.Claims["role"].(string)
	return role
}

// TokenVerifier checks a raw ID token sent by a client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error)
}

// NewFirebaseAuth opens the Admin auth client for projectID. An empty
// credentialsFile falls back to application-default credentials.
func NewFirebaseAuth(ctx context.Context, projectID, credentialsFile string) (*auth.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app for %s: %w", projectID, err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return client, nil
}

type adminVerifier struct {
	client *auth.Client
}

// NewFirebaseVerifier verifies tokens through the Admin SDK.
func NewFirebaseVerifier(client *auth.Client) TokenVerifier {
	return &adminVerifier{client: client}
}

func (v *adminVerifier) VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	return &FirebaseToken{UID: token.UID, Claims: token.Claims}, nil
}
