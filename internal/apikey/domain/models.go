package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// APIKey authenticates a marketer against the claim endpoint. Only the
// hash is stored; the raw key is shown once at creation time.
type APIKey struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	UserID    snowflake.ID `gorm:"not null;index"`
	Name      string       `gorm:"type:text;not null"`
	KeyHash   string       `gorm:"type:text;not null;uniqueIndex"`
	IsActive  bool         `gorm:"not null;default:true"`
	ExpiresAt *time.Time
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (APIKey) TableName() string { return "api_keys" }

// HashAPIKey derives the stored lookup hash from a raw bearer token.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}
