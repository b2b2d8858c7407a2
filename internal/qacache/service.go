package qacache

import (
	"context"
	"time"

	"github.com/agrimech/manuals-qa/internal/models"
	"github.com/sirupsen/logrus"
)

// Service orchestrates cache reads and writes. Storage faults never propagate
// to callers: a failed read degrades to a miss and a failed write to a no-op,
// so a broken cache only costs an upstream round trip.
type Service struct {
	store   Store
	matcher *Matcher
	log     *logrus.Entry
}

func NewService(logger *logrus.Logger, store Store, matcher *Matcher) *Service {
	return &Service{
		store:   store,
		matcher: matcher,
		log:     logger.WithField("component", "qa_cache"),
	}
}

// Get returns the cached answer for a question, if any. An exact fingerprint
// hit increments the entry's hit counter; a fuzzy hit returns the answer
// without touching counters, keeping hit_count a count of exact matches only.
// A fuzzy hit is not re-cached under the new question's fingerprint.
func (s *Service) Get(ctx context.Context, question string) (string, bool) {
	fingerprint := Fingerprint(question)
	log := s.log.WithField("fingerprint", fingerprint)

	entry, err := s.store.FindLive(ctx, fingerprint)
	if err != nil {
		log.WithError(err).Warn("Cache read failed, treating as miss")
		return "", false
	}

	if entry != nil {
		if err := s.store.IncrementHit(ctx, fingerprint); err != nil {
			log.WithError(err).Warn("Failed to update hit count")
		}
		log.Debug("Cache hit")
		return entry.Answer, true
	}

	similar, err := s.matcher.FindSimilar(ctx, question)
	if err != nil {
		log.WithError(err).Warn("Similarity scan failed, treating as miss")
		return "", false
	}
	if similar != nil {
		log.WithField("matched_fingerprint", similar.Fingerprint).Debug("Cache similar hit")
		return similar.Answer, true
	}

	log.Debug("Cache miss")
	return "", false
}

// Put caches an answer under the question's fingerprint, replacing any prior
// entry for the same fingerprint and resetting its counters. Failure to cache
// is logged and swallowed.
func (s *Service) Put(ctx context.Context, question, answer, model string, ttl time.Duration) {
	now := time.Now().UTC()
	entry := &models.QACache{
		Fingerprint:        Fingerprint(question),
		Question:           question,
		NormalizedQuestion: Normalize(question),
		Answer:             answer,
		Model:              model,
		CreatedAt:          now,
		ExpiresAt:          now.Add(ttl),
		HitCount:           0,
		LastAccessed:       now,
	}

	if err := s.store.Upsert(ctx, entry); err != nil {
		s.log.WithError(err).WithField("fingerprint", entry.Fingerprint).Warn("Failed to cache answer")
		return
	}
	s.log.WithField("fingerprint", entry.Fingerprint).Debug("Cached answer")
}

type PopularQuestion struct {
	Question string `json:"question"`
	HitCount int64  `json:"hit_count"`
}

type Stats struct {
	TotalCached  int64             `json:"total_cached_questions"`
	ActiveCached int64             `json:"active_cached_questions"`
	Popular      []PopularQuestion `json:"popular_questions"`
}

// Stats reports entry counts and the five live entries with the highest hit
// counts.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	total, err := s.store.CountAll(ctx)
	if err != nil {
		return Stats{}, err
	}
	active, err := s.store.CountLive(ctx)
	if err != nil {
		return Stats{}, err
	}
	top, err := s.store.TopByHits(ctx, 5)
	if err != nil {
		return Stats{}, err
	}

	popular := make([]PopularQuestion, 0, len(top))
	for _, entry := range top {
		popular = append(popular, PopularQuestion{
			Question: entry.Question,
			HitCount: entry.HitCount,
		})
	}

	return Stats{
		TotalCached:  total,
		ActiveCached: active,
		Popular:      popular,
	}, nil
}

// PruneExpired physically removes expired entries and returns the count.
func (s *Service) PruneExpired(ctx context.Context) (int64, error) {
	removed, err := s.store.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.WithField("count", removed).Info("Pruned expired cache entries")
	}
	return removed, nil
}
