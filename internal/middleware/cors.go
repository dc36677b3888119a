package middleware

import (
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// defaultAllowedOrigins covers the local UI shells that talk to the
// loopback facade.
var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
	"http://localhost:5173",
	"http://127.0.0.1:5173",
}

// CORS restricts cross-origin access to the local facade. The
// QUILL_ALLOWED_ORIGINS environment variable (comma-separated)
// overrides the default local UI origins. The facade binds loopback
// only, so this is a second fence, not the primary one.
func CORS() gin.HandlerFunc {
	allowed := defaultAllowedOrigins
	if raw := os.Getenv("QUILL_ALLOWED_ORIGINS"); raw != "" {
		allowed = nil
		for _, origin := range strings.Split(raw, ",") {
			allowed = append(allowed, strings.TrimSpace(origin))
		}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if origin != "" && originAllowed(allowed, origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func originAllowed(allowed []string, origin string) bool {
	for _, a := range allowed {
		if a == origin {
			return true
		}
	}
	return false
}
