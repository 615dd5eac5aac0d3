package memory

import (
	"context"
	"sync"
	"time"

	"github.com/iamsyg/artisian-dashboard/internal/domain"
	"github.com/iamsyg/artisian-dashboard/internal/preview"
	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
)

type key struct{ subject, product string }

// Store keeps previews in a mutex-protected map. Expired slots are dropped
// lazily on Get and in bulk by Sweep.
type Store struct {
	mu    sync.Mutex
	slots map[key]*domain.AdPreview
	now   func() time.Time
}

var _ preview.Store = (*Store)(nil)

// New creates an empty in-memory preview store.
func New() *Store {
	return &Store{
		slots: make(map[key]*domain.AdPreview),
		now:   time.Now,
	}
}

// Put stores a copy of p.
func (s *Store) Put(_ context.Context, p *domain.AdPreview) error {
	cp := *p
	cp.Image = append([]byte(nil), p.Image...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key{p.SubjectID, p.ProductID}] = &cp
	return nil
}

// Get returns a copy of the slot.
func (s *Store) Get(_ context.Context, subjectID, productID string) (*domain.AdPreview, error) {
	k := key{subjectID, productID}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.slots[k]
	if ok && p.Expired(s.now()) {
		delete(s.slots, k)
		ok = false
	}
	if !ok {
		return nil, apperrors.NotFound("ad preview for product", productID)
	}
	cp := *p
	return &cp, nil
}

// Delete empties the slot.
func (s *Store) Delete(_ context.Context, subjectID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, key{subjectID, productID})
	return nil
}

// Sweep drops every expired slot and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, p := range s.slots {
		if p.Expired(now) {
			delete(s.slots, k)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
