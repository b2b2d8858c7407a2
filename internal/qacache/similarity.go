package qacache

import (
	"context"
	"strings"

	"github.com/agrimech/manuals-qa/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	// minTokens is the smallest token set considered reliable for overlap
	// comparison; shorter questions never fuzzy-match.
	minTokens = 3

	DefaultSimilarityThreshold = 0.8
	DefaultScanLimit           = 50
)

// Matcher finds a cached entry whose normalized question is a near-duplicate
// of a new question, using Jaccard similarity over whitespace token sets.
type Matcher struct {
	store     Store
	threshold float64
	scanLimit int
	log       *logrus.Entry
}

func NewMatcher(logger *logrus.Logger, store Store, threshold float64, scanLimit int) *Matcher {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	if scanLimit <= 0 {
		scanLimit = DefaultScanLimit
	}
	return &Matcher{
		store:     store,
		threshold: threshold,
		scanLimit: scanLimit,
		log:       logger.WithField("component", "similarity_matcher"),
	}
}

// FindSimilar returns the first live entry in scan order whose similarity to
// the question is at or above the threshold, or nil if none qualifies.
// First-match-wins, not best-match: candidates beyond the first qualifying one
// are never inspected, even if a later one would score higher.
func (m *Matcher) FindSimilar(ctx context.Context, question string) (*models.QACache, error) {
	words := tokenSet(Normalize(question))
	if len(words) < minTokens {
		return nil, nil
	}

	candidates, err := m.store.ScanLive(ctx, m.scanLimit)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		cachedWords := tokenSet(candidates[i].NormalizedQuestion)
		if len(cachedWords) < minTokens {
			continue
		}

		similarity := jaccard(words, cachedWords)
		if similarity >= m.threshold {
			m.log.WithFields(logrus.Fields{
				"similarity":  similarity,
				"fingerprint": candidates[i].Fingerprint,
			}).Debug("Found similar cached question")
			return &candidates[i], nil
		}
	}

	return nil, nil
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

// jaccard is |intersection| / |union| of the two sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
