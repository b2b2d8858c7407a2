package database

import (
	"fmt"
	"time"

	"github.com/agrimech/manuals-qa/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type PostgresConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	DBName   string
	SSLMode  string

	// Connection retry policy. Postgres is typically still starting when the
	// backend comes up in compose-style deployments, so the first attempts
	// are expected to fail.
	ConnectRetries    int
	ConnectRetryDelay time.Duration
}

// NewPostgresDB connects with exponential backoff and migrates the QA schema:
// cached answers, manual text, and access logs.
func NewPostgresDB(logger *logrus.Logger, cfg PostgresConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	log := logger.WithFields(logrus.Fields{
		"component": "database",
		"host":      cfg.Host,
		"database":  cfg.DBName,
	})

	retries := cfg.ConnectRetries
	if retries < 1 {
		retries = 1
	}
	delay := cfg.ConnectRetryDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}

	var db *gorm.DB
	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			break
		}

		log.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err,
		}).Warn("Database connection failed")

		if attempt < retries {
			time.Sleep(delay)
			delay *= 2
		}
	}

	if err != nil {
		log.WithError(err).Error("Failed to connect to database after retries")
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := db.AutoMigrate(&models.QACache{}, &models.Manual{}, &models.AccessLog{}); err != nil {
		log.WithError(err).Error("Database migration failed")
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	log.Info("Database connection established")
	return db, nil
}
