package middleware

import "github.com/gin-gonic/gin"

// NoStore disables HTTP caching. Attempt state, answer keys and chat
// transcripts must never land in a shared cache.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
