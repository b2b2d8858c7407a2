package manuals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agrimech/manuals-qa/internal/models"
	"gorm.io/gorm"
)

// Store holds ingested manual text. Lookups that find nothing return
// (nil, nil).
type Store interface {
	FindByModel(ctx context.Context, model string) (*models.Manual, error)
	FindAny(ctx context.Context) (*models.Manual, error)
	Insert(ctx context.Context, manual *models.Manual) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// FindByModel returns the first manual for the given equipment model.
func (s *GormStore) FindByModel(ctx context.Context, model string) (*models.Manual, error) {
	var manual models.Manual
	err := s.db.WithContext(ctx).Where("model = ?", model).First(&manual).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("manual lookup failed: %w", err)
	}
	return &manual, nil
}

// FindAny returns any stored manual, used as a fallback when no manual exists
// for the requested model.
func (s *GormStore) FindAny(ctx context.Context) (*models.Manual, error) {
	var manual models.Manual
	err := s.db.WithContext(ctx).First(&manual).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("manual lookup failed: %w", err)
	}
	return &manual, nil
}

func (s *GormStore) Insert(ctx context.Context, manual *models.Manual) error {
	if manual.UploadedAt.IsZero() {
		manual.UploadedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(manual).Error; err != nil {
		return fmt.Errorf("manual insert failed: %w", err)
	}
	return nil
}
