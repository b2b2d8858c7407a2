package models

import (
	"time"
)

type AccessLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	RequestID string    `gorm:"type:varchar(36);index"`
	Timestamp time.Time `gorm:"index;not null"`
	Method    string    `gorm:"type:varchar(10);not null"`
	Path      string    `gorm:"type:text;not null;index:,length:256"`
	Status    int       `gorm:"not null;index"`
	Duration  time.Duration
	ClientIP  string `gorm:"type:varchar(45);not null"`
	UserAgent string `gorm:"type:text"`
	BytesSent int    `gorm:"not null;default:0"`
}

// QACache is one cached question/answer pair. Fingerprint is the sha256 hex
// digest of the normalized question and is the sole lookup key; a write with
// an existing fingerprint replaces the prior row.
type QACache struct {
	Fingerprint        string    `gorm:"primaryKey;type:varchar(64);not null"`
	Question           string    `gorm:"type:text;not null"`
	NormalizedQuestion string    `gorm:"type:text;not null"`
	Answer             string    `gorm:"type:text;not null"`
	Model              string    `gorm:"type:varchar(128);not null"`
	CreatedAt          time.Time `gorm:"index;not null"`
	ExpiresAt          time.Time `gorm:"index;not null"`
	HitCount           int64     `gorm:"not null;default:0;index"`
	LastAccessed       time.Time `gorm:"index;not null"`
}

type Manual struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	Model      string    `gorm:"type:varchar(128);not null;index"`
	Content    string    `gorm:"type:text;not null"`
	SourceKey  string    `gorm:"type:varchar(512)"`
	PageCount  int       `gorm:"not null;default:0"`
	UploadedAt time.Time `gorm:"index;not null"`
}

func (QACache) TableName() string {
	return "qa_cache"
}

func (Manual) TableName() string {
	return "manuals"
}

func (AccessLog) TableName() string {
	return "access_logs"
}
