// Signed tokens for email verification links.
//
// These are the one place a signed stateless token IS appropriate: the
// verification link in a welcome email only needs to prove "this link was
// minted by us, for this teacher, recently". It never acts as a login
// credential and grants nothing beyond flipping the verified flag, so no
// server-side state or revocation is needed.
//
// Password-reset tokens deliberately do NOT use this mechanism — they must
// be single-use, which requires server-side state (see the reset_tokens
// table).
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	emailTokenIssuer = "deckshare"

	// purposeVerifyEmail is stamped into every verification token so a
	// token minted for one flow can never be replayed into another.
	purposeVerifyEmail = "verify-email"
)

// EmailTokenService mints and validates signed email-verification tokens.
// It holds the HMAC secret used for both operations.
type EmailTokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewEmailTokenService creates an EmailTokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: EMAIL_TOKEN_SECRET=$(openssl rand -hex 32)
func NewEmailTokenService(secret string) (*EmailTokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: email token secret must be at least 16 characters")
	}
	return &EmailTokenService{secret: []byte(secret), ttl: 24 * time.Hour}, nil
}

// emailClaims is the token payload: standard registered claims plus the
// purpose stamp.
type emailClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// GenerateVerification creates a signed verification token for teacherID,
// valid for 24 hours.
func (s *EmailTokenService) GenerateVerification(teacherID string) (string, error) {
	now := time.Now()

	c := emailClaims{
		Purpose: purposeVerifyEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   teacherID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    emailTokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing verification token: %w", err)
	}

	return signed, nil
}

// ValidateVerification parses and verifies a verification token, returning
// the teacher ID it was minted for.
//
// Passing jwt.WithValidMethods prevents algorithm-confusion attacks — a
// token claiming alg "none" is rejected before the signature check.
func (s *EmailTokenService) ValidateVerification(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&emailClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(emailTokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: verification token expired")
		}
		return "", fmt.Errorf("auth: invalid verification token: %w", err)
	}

	c, ok := token.Claims.(*emailClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid verification token claims")
	}
	if c.Purpose != purposeVerifyEmail {
		return "", fmt.Errorf("auth: token purpose %q is not a verification token", c.Purpose)
	}
	if c.Subject == "" {
		return "", fmt.Errorf("auth: verification token has no subject")
	}

	return c.Subject, nil
}
