package qacache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agrimech/manuals-qa/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence surface of the answer cache. Uniqueness of
// fingerprints and atomicity of hit-count updates are delegated to the
// backing store; callers never take application-level locks.
type Store interface {
	Upsert(ctx context.Context, entry *models.QACache) error
	FindLive(ctx context.Context, fingerprint string) (*models.QACache, error)
	IncrementHit(ctx context.Context, fingerprint string) error
	ScanLive(ctx context.Context, limit int) ([]models.QACache, error)
	TopByHits(ctx context.Context, limit int) ([]models.QACache, error)
	CountAll(ctx context.Context) (int64, error)
	CountLive(ctx context.Context) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Upsert inserts the entry or fully replaces the row carrying the same
// fingerprint, counters included.
func (s *GormStore) Upsert(ctx context.Context, entry *models.QACache) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}},
		UpdateAll: true,
	}).Create(entry).Error
	if err != nil {
		return fmt.Errorf("cache upsert failed: %w", err)
	}
	return nil
}

// FindLive returns the entry for the fingerprint only while its expiry is
// strictly in the future. A miss returns (nil, nil).
func (s *GormStore) FindLive(ctx context.Context, fingerprint string) (*models.QACache, error) {
	var entry models.QACache
	err := s.db.WithContext(ctx).
		Where("fingerprint = ? AND expires_at > ?", fingerprint, time.Now().UTC()).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}
	return &entry, nil
}

func (s *GormStore) IncrementHit(ctx context.Context, fingerprint string) error {
	err := s.db.WithContext(ctx).Model(&models.QACache{}).
		Where("fingerprint = ?", fingerprint).
		UpdateColumns(map[string]interface{}{
			"hit_count":     gorm.Expr("hit_count + ?", 1),
			"last_accessed": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("hit count update failed: %w", err)
	}
	return nil
}

// ScanLive returns up to limit live entries in unspecified order. Used by the
// similarity matcher.
func (s *GormStore) ScanLive(ctx context.Context, limit int) ([]models.QACache, error) {
	var entries []models.QACache
	err := s.db.WithContext(ctx).
		Where("expires_at > ?", time.Now().UTC()).
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("cache scan failed: %w", err)
	}
	return entries, nil
}

// TopByHits returns up to limit live entries ordered by descending hit count.
func (s *GormStore) TopByHits(ctx context.Context, limit int) ([]models.QACache, error) {
	var entries []models.QACache
	err := s.db.WithContext(ctx).
		Where("expires_at > ?", time.Now().UTC()).
		Order("hit_count DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("popular entries query failed: %w", err)
	}
	return entries, nil
}

func (s *GormStore) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.QACache{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("cache count failed: %w", err)
	}
	return count, nil
}

func (s *GormStore) CountLive(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.QACache{}).
		Where("expires_at > ?", time.Now().UTC()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("live cache count failed: %w", err)
	}
	return count, nil
}

// DeleteExpired removes every entry whose expiry is at or before now and
// returns the number removed. The complement of FindLive's predicate, so an
// entry expiring exactly now is both invisible to reads and prunable.
func (s *GormStore) DeleteExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", time.Now().UTC()).
		Delete(&models.QACache{})
	if result.Error != nil {
		return 0, fmt.Errorf("expired cache delete failed: %w", result.Error)
	}
	return result.RowsAffected, nil
}
