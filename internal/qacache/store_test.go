package qacache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/agrimech/manuals-qa/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "qacache_test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.QACache{}))
	return NewGormStore(db)
}

func storedEntry(question, answer string, ttl time.Duration) *models.QACache {
	now := time.Now().UTC()
	return &models.QACache{
		Fingerprint:        Fingerprint(question),
		Question:           question,
		NormalizedQuestion: Normalize(question),
		Answer:             answer,
		Model:              "SwarajX",
		CreatedAt:          now,
		ExpiresAt:          now.Add(ttl),
		LastAccessed:       now,
	}
}

func TestUpsertReplacesSameFingerprint(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := storedEntry("How do I change the oil?", "old answer", time.Hour)
	first.HitCount = 7
	require.NoError(t, store.Upsert(ctx, first))

	second := storedEntry("how do i change the oil", "new answer", time.Hour)
	require.NoError(t, store.Upsert(ctx, second))

	total, err := store.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total, "colliding fingerprints must upsert, not duplicate")

	entry, err := store.FindLive(ctx, second.Fingerprint)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "new answer", entry.Answer)
	assert.Equal(t, int64(0), entry.HitCount, "re-caching resets counters")
}

func TestFindLiveMissesUnknownFingerprint(t *testing.T) {
	store := newTestStore(t)

	entry, err := store.FindLive(context.Background(), Fingerprint("never cached"))
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestFindLiveExpiryBoundary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// expires_at at (effectively) now: must not be returned.
	expired := storedEntry("how do i bleed the brakes", "answer", 0)
	require.NoError(t, store.Upsert(ctx, expired))

	entry, err := store.FindLive(ctx, expired.Fingerprint)
	require.NoError(t, err)
	assert.Nil(t, entry, "an entry expiring exactly now is already dead")

	live := storedEntry("how do i adjust the clutch", "answer", time.Hour)
	require.NoError(t, store.Upsert(ctx, live))

	entry, err = store.FindLive(ctx, live.Fingerprint)
	require.NoError(t, err)
	assert.NotNil(t, entry)
}

func TestIncrementHit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := storedEntry("how do i change the oil", "answer", time.Hour)
	require.NoError(t, store.Upsert(ctx, entry))

	for i := 0; i < 3; i++ {
		require.NoError(t, store.IncrementHit(ctx, entry.Fingerprint))
	}

	got, err := store.FindLive(ctx, entry.Fingerprint)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(3), got.HitCount)
	assert.True(t, got.LastAccessed.After(entry.LastAccessed) || got.LastAccessed.Equal(entry.LastAccessed))
}

func TestScanLiveExcludesExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, storedEntry("how do i change the oil", "a", time.Hour)))
	require.NoError(t, store.Upsert(ctx, storedEntry("how do i check tire pressure", "b", time.Hour)))
	require.NoError(t, store.Upsert(ctx, storedEntry("how do i replace the belt", "c", -time.Hour)))

	entries, err := store.ScanLive(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = store.ScanLive(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTopByHitsOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	popular := storedEntry("how do i change the oil", "a", time.Hour)
	popular.HitCount = 10
	require.NoError(t, store.Upsert(ctx, popular))

	quiet := storedEntry("how do i check tire pressure", "b", time.Hour)
	quiet.HitCount = 2
	require.NoError(t, store.Upsert(ctx, quiet))

	dead := storedEntry("how do i replace the belt", "c", -time.Hour)
	dead.HitCount = 100
	require.NoError(t, store.Upsert(ctx, dead))

	entries, err := store.TopByHits(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 2, "expired entries never appear in popular list")
	assert.Equal(t, int64(10), entries[0].HitCount)
	assert.Equal(t, int64(2), entries[1].HitCount)
}

func TestDeleteExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, storedEntry("how do i change the oil", "a", time.Hour)))
	require.NoError(t, store.Upsert(ctx, storedEntry("how do i replace the belt", "b", -time.Hour)))
	require.NoError(t, store.Upsert(ctx, storedEntry("how do i drain the coolant", "c", -time.Minute)))

	removed, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	total, err := store.CountAll(ctx)
	require.NoError(t, err)
	live, err := store.CountLive(ctx)
	require.NoError(t, err)
	assert.Equal(t, total, live, "after pruning, every remaining entry is live")
	assert.Equal(t, int64(1), total)
}
