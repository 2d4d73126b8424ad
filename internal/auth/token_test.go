package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wasterescue/internal/auth"
	"wasterescue/internal/config"
	"wasterescue/internal/domain"
)

func testConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "wasterescue", ReviewerTokenExpiry: time.Hour}
}

func TestIssueAndValidate(t *testing.T) {
	tokens := auth.NewTokens(testConfig())

	signed, expiresAt, err := tokens.Issue("anna", "anna@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := tokens.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "anna", claims.Reviewer())
	assert.Equal(t, "anna@example.com", claims.Email)
	assert.Equal(t, "wasterescue", claims.Issuer)
}

func TestIssue_RequiresReviewer(t *testing.T) {
	_, _, err := auth.NewTokens(testConfig()).Issue("  ", "")
	assert.Error(t, err)
}

func TestValidate_Expired(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	issuer := auth.NewTokens(testConfig()).WithClock(func() time.Time { return past })
	signed, _, err := issuer.Issue("anna", "")
	require.NoError(t, err)

	_, err = auth.NewTokens(testConfig()).Validate(signed)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestValidate_WrongSecret(t *testing.T) {
	other := testConfig()
	other.Secret = "other-secret"
	signed, _, err := auth.NewTokens(other).Issue("anna", "")
	require.NoError(t, err)

	_, err = auth.NewTokens(testConfig()).Validate(signed)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestValidate_WrongIssuer(t *testing.T) {
	other := testConfig()
	other.Issuer = "someone-else"
	signed, _, err := auth.NewTokens(other).Issue("anna", "")
	require.NoError(t, err)

	_, err = auth.NewTokens(testConfig()).Validate(signed)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestValidate_WrongAudience(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "anna",
		Issuer:    "wasterescue",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		Audience:  jwt.ClaimStrings{"access"},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = auth.NewTokens(testConfig()).Validate(signed)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestValidate_RejectsNoneAlgorithm(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "anna",
		Issuer:    "wasterescue",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		Audience:  jwt.ClaimStrings{auth.ReviewerAudience},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = auth.NewTokens(testConfig()).Validate(signed)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestValidate_Garbage(t *testing.T) {
	_, err := auth.NewTokens(testConfig()).Validate("not-a-token")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
