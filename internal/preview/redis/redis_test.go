package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamsyg/artisian-dashboard/internal/domain"
	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
)

func setupTestRedis(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client), mr
}

func samplePreview() *domain.AdPreview {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.AdPreview{
		ID:          "6b1d7c1e-2f5d-4d8e-9a55-5f0d1c3a9e21",
		SubjectID:   "user-1",
		ProductID:   "prod-1",
		Image:       []byte("\x89PNG\r\n\x1a\nbytes"),
		ContentType: "image/png",
		CreatedAt:   now,
		ExpiresAt:   now.Add(30 * time.Minute),
	}
}

func TestStore_PutAndGet(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()
	p := samplePreview()

	require.NoError(t, store.Put(ctx, p))
	assert.True(t, mr.Exists("adpreview:user-1:prod-1"))
	assert.InDelta(t, (30 * time.Minute).Seconds(), mr.TTL("adpreview:user-1:prod-1").Seconds(), 2)

	got, err := store.Get(ctx, "user-1", "prod-1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.Image, got.Image)
	assert.True(t, p.ExpiresAt.Equal(got.ExpiresAt))
}

func TestStore_GetOtherSubject(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, samplePreview()))

	_, err := store.Get(ctx, "user-2", "prod-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStore_Expiry(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, samplePreview()))
	mr.FastForward(31 * time.Minute)

	_, err := store.Get(ctx, "user-1", "prod-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, samplePreview()))
	require.NoError(t, store.Delete(ctx, "user-1", "prod-1"))
	require.NoError(t, store.Delete(ctx, "user-1", "prod-1"))
	assert.False(t, mr.Exists("adpreview:user-1:prod-1"))
}

func TestStore_PutExpired(t *testing.T) {
	store, _ := setupTestRedis(t)
	p := samplePreview()
	p.ExpiresAt = time.Now().Add(-time.Second)

	assert.Error(t, store.Put(context.Background(), p))
}

func TestStore_Unavailable(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	_, err := store.Get(context.Background(), "user-1", "prod-1")
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}
