package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	corsMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", ")
	corsHeaders = "Authorization, Content-Type, Accept, Origin, X-Request-ID"
)

// CORS lets the review dashboard origins call the API. "*" in the list
// reflects any origin without allowing credentials. Preflight requests end
// here with 204.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	wildcard := slices.Contains(allowedOrigins, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		listed := slices.Contains(allowedOrigins, origin)
		if origin != "" && (wildcard || listed) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			// Only explicitly listed origins may send credentials.
			if listed {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			h.Set("Access-Control-Max-Age", "86400")
			h.Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
