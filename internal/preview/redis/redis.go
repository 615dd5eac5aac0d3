package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iamsyg/artisian-dashboard/internal/domain"
	"github.com/iamsyg/artisian-dashboard/internal/preview"
	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
)

const keyPrefix = "adpreview:"

// record is the stored form; domain.AdPreview keeps its bytes out of JSON.
type record struct {
	Preview *domain.AdPreview `json:"preview"`
	Image   []byte            `json:"image"`
}

// Store implements preview.Store on Redis, using key expiry as the TTL.
type Store struct {
	client *redis.Client
}

var _ preview.Store = (*Store)(nil)

// New creates a Redis-backed preview store.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func slotKey(subjectID, productID string) string {
	return keyPrefix + subjectID + ":" + productID
}

// Put writes the slot with an expiry matching p.ExpiresAt.
func (s *Store) Put(ctx context.Context, p *domain.AdPreview) error {
	ttl := time.Until(p.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("ad preview %s already expired", p.ID)
	}

	data, err := json.Marshal(record{Preview: p, Image: p.Image})
	if err != nil {
		return fmt.Errorf("marshal ad preview: %w", err)
	}

	if err := s.client.Set(ctx, slotKey(p.SubjectID, p.ProductID), data, ttl).Err(); err != nil {
		return apperrors.StoreUnavailable(fmt.Errorf("redis set ad preview: %w", err))
	}
	return nil
}

// Get reads the slot of (subjectID, productID).
func (s *Store) Get(ctx context.Context, subjectID, productID string) (*domain.AdPreview, error) {
	data, err := s.client.Get(ctx, slotKey(subjectID, productID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("ad preview for product", productID)
		}
		return nil, apperrors.StoreUnavailable(fmt.Errorf("redis get ad preview: %w", err))
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal ad preview: %w", err)
	}
	if rec.Preview == nil {
		return nil, fmt.Errorf("ad preview record for %s has no metadata", productID)
	}
	rec.Preview.Image = rec.Image
	return rec.Preview, nil
}

// Delete removes the slot.
func (s *Store) Delete(ctx context.Context, subjectID, productID string) error {
	if err := s.client.Del(ctx, slotKey(subjectID, productID)).Err(); err != nil {
		return apperrors.StoreUnavailable(fmt.Errorf("redis del ad preview: %w", err))
	}
	return nil
}
