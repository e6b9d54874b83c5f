package auth

import (
	"time"

	"golang.org/x/oauth2"
)

// Credential holds the OAuth tokens for a single user.
//
// A zero Expiry means the provider did not report an expiry; such a
// credential is never refreshed. RefreshToken may be empty when the provider
// declined to issue one (e.g. repeated consent without forced re-approval).
type Credential struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Token converts the credential into an oauth2 token.
func (c Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
}

// CredentialFromToken builds a Credential from an oauth2 token.
func CredentialFromToken(userID string, tok *oauth2.Token) Credential {
	return Credential{
		UserID:       userID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
}
