package server

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	apikeydomain "github.com/TD-Producoes/revshare-sub001/internal/apikey/domain"
)

type contextKey string

const (
	contextAuthTypeKey   contextKey = "auth_type"
	contextMarketerIDKey contextKey = "marketer_id"
	contextAPIKeyIDKey   contextKey = "api_key_id"
)

// APIKeyRequired authenticates marketers by bearer token. Marketer
// identity is derived solely from the api_keys table.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		hash := apikeydomain.HashAPIKey(parts[1])
		key, err := s.apiKeys.FindActiveByHash(c.Request.Context(), s.db, hash, time.Now().UTC())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if key == nil || subtle.ConstantTimeCompare([]byte(key.KeyHash), []byte(hash)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, contextAuthTypeKey, "api_key")
		ctx = context.WithValue(ctx, contextMarketerIDKey, int64(key.UserID))
		ctx = context.WithValue(ctx, contextAPIKeyIDKey, int64(key.ID))

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func marketerIDFromContext(c *gin.Context) snowflake.ID {
	value, ok := c.Request.Context().Value(contextMarketerIDKey).(int64)
	if !ok {
		return 0
	}
	return snowflake.ID(value)
}
