package qacache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Purger periodically removes expired cache entries so the table does not
// accumulate logically-dead rows between manual clears.
type Purger struct {
	service  *Service
	interval time.Duration
	log      *logrus.Entry
}

func NewPurger(logger *logrus.Logger, service *Service, interval time.Duration) *Purger {
	return &Purger{
		service:  service,
		interval: interval,
		log:      logger.WithField("component", "cache_purger"),
	}
}

func (p *Purger) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info("Starting cache purger")

	for {
		select {
		case <-ticker.C:
			if _, err := p.service.PruneExpired(ctx); err != nil {
				p.log.WithError(err).Error("Cache purge failed")
			}
		case <-ctx.Done():
			p.log.Info("Stopping cache purger")
			return
		}
	}
}
