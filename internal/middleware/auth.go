package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wasterescue/internal/auth"
	"wasterescue/internal/domain"
)

const (
	ContextKeyReviewer = "reviewer"
	ContextKeyClaims   = "claims"
)

// TokenValidator checks a reviewer bearer token.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// bearerToken returns the token from an "Authorization: Bearer <t>" header.
// The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"code": "UNAUTHORIZED", "message": msg},
	})
}

// ReviewerAuth rejects requests without a valid reviewer token and stores
// the reviewer and claims on the context.
func ReviewerAuth(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, "missing or invalid authorization header")
			return
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ContextKeyReviewer, claims.Reviewer())
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetReviewer returns the authenticated reviewer, or ErrUnauthorized when
// the request did not pass ReviewerAuth.
func GetReviewer(c *gin.Context) (string, error) {
	if reviewer := c.GetString(ContextKeyReviewer); reviewer != "" {
		return reviewer, nil
	}
	return "", domain.ErrUnauthorized
}
