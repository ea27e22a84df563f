// Package auth handles the operator's Google account link: the OAuth2
// provider, the signed "state" parameter of the authorization flow, and the
// optional sealing of stored credentials.
//
// STATE PARAMETER:
// The authorization URL carries a state value that Google echoes back on the
// callback. Here the state is a short-lived JWT whose subject is a random
// nonce; the same nonce is stored in an HttpOnly cookie on the operator's
// browser. The callback accepts the code only when the JWT verifies and its
// nonce matches the cookie, so a callback URL crafted elsewhere cannot link
// a foreign Google account.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<nonce>","exp":...,"iss":"wedding-rsvp"}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	stateIssuer = "wedding-rsvp"

	// StateTTL bounds how long the operator has to finish the consent screen.
	StateTTL = 10 * time.Minute
)

// StateSigner issues and verifies OAuth state tokens.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewStateSigner creates a StateSigner with the given HMAC secret.
// The secret should be at least 32 bytes of random data in production.
func NewStateSigner(secret string) (*StateSigner, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: state secret must be at least 16 characters")
	}
	return &StateSigner{secret: []byte(secret), ttl: StateTTL}, nil
}

// Issue signs a state token bound to nonce.
func (s *StateSigner) Issue(nonce string) (string, error) {
	return s.issueWithTTL(nonce, s.ttl)
}

func (s *StateSigner) issueWithTTL(nonce string, ttl time.Duration) (string, error) {
	if nonce == "" {
		return "", errors.New("auth: state nonce must not be empty")
	}

	now := time.Now()
	c := jwt.RegisteredClaims{
		Subject:   nonce,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    stateIssuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing state: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry of state and returns the
// nonce it carries.
//
// jwt.WithValidMethods pins HS256 so a token declaring alg "none" or an
// asymmetric algorithm is rejected.
func (s *StateSigner) Verify(state string) (string, error) {
	token, err := jwt.ParseWithClaims(
		state,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: state expired")
		}
		return "", fmt.Errorf("auth: invalid state: %w", err)
	}

	c, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || c.Subject == "" {
		return "", fmt.Errorf("auth: invalid state claims")
	}
	return c.Subject, nil
}
