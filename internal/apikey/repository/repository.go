package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/TD-Producoes/revshare-sub001/internal/apikey/domain"
)

type gormRepository struct{}

func Provide() domain.Repository {
	return gormRepository{}
}

func (gormRepository) Insert(ctx context.Context, db *gorm.DB, key *domain.APIKey) error {
	return db.WithContext(ctx).Create(key).Error
}

func (gormRepository) FindActiveByHash(ctx context.Context, db *gorm.DB, hash string, now time.Time) (*domain.APIKey, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, nil
	}
	var key domain.APIKey
	err := db.WithContext(ctx).
		Where("key_hash = ? AND is_active = ? AND (expires_at IS NULL OR expires_at > ?)", hash, true, now).
		First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}
