// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides UserContext, the demo-grade identity middleware. The API
// trusts the X-User-ID header (an opaque client-assigned identifier) and
// stores it under the "userID" context key so handlers and loggers can scope
// data per user without a full auth stack in front.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey    = "userID"
	userIDHeader = "X-User-ID"
	// maxUserIDLen bounds the accepted identifier length; longer values are
	// rejected to keep indexes and log fields sane.
	maxUserIDLen = 64
)

// UserContext extracts the caller identity from the X-User-ID header and
// stores it in the Gin context. Requests without the header proceed; each
// handler decides whether to fall back to a demo identity. Oversized values
// are ignored rather than truncated, so a malformed client never silently
// collides with another user's data.
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := strings.TrimSpace(c.GetHeader(userIDHeader)); uid != "" && len(uid) <= maxUserIDLen {
			c.Set(userIDKey, uid)
		}
		c.Next()
	}
}
