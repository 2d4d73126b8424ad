// Package auth issues and validates the bearer tokens reviewers present to
// the review API.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"wasterescue/internal/config"
	"wasterescue/internal/domain"
)

// ReviewerAudience is the only audience accepted by Validate.
const ReviewerAudience = "review"

// Claims are the JWT claims carried by a reviewer token. Subject holds the
// reviewer's name, which ends up as reviewed_by on approvals and rejections.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Reviewer returns the identity recorded on review decisions.
func (c *Claims) Reviewer() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.Email
}

// Tokens signs and verifies reviewer tokens with a shared HMAC secret.
type Tokens struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

// NewTokens creates a Tokens from the JWT configuration.
func NewTokens(cfg config.JWTConfig) *Tokens {
	expiry := cfg.ReviewerTokenExpiry
	if expiry <= 0 {
		expiry = 12 * time.Hour
	}
	return &Tokens{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		expiry: expiry,
		now:    time.Now,
	}
}

// WithClock overrides the time source. Used by tests.
func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	t.now = now
	return t
}

// Issue signs a token for the named reviewer.
func (t *Tokens) Issue(reviewer, email string) (string, time.Time, error) {
	reviewer = strings.TrimSpace(reviewer)
	if reviewer == "" {
		return "", time.Time{}, errors.New("auth.Issue: reviewer name is required")
	}

	now := t.now()
	expiresAt := now.Add(t.expiry)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   reviewer,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Audience:  jwt.ClaimStrings{ReviewerAudience},
		},
		Email: email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth.Issue: signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate parses a token and checks signature, expiry, issuer and audience.
// All failures wrap domain.ErrUnauthorized.
func (t *Tokens) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithAudience(ReviewerAudience),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if !token.Valid || claims.Reviewer() == "" {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}
