package store

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/minhchien137/MachineStatusUpdate/internal/model"
)

// cachedStore keeps machine reference rows in memory. Misses are not cached
// so newly registered machines are accepted without waiting for expiry.
type cachedStore struct {
	Store
	machines *cache.Cache
}

// NewCachedStore wraps s with an in-memory machine lookup cache.
func NewCachedStore(s Store, ttl time.Duration) Store {
	return &cachedStore{
		Store:    s,
		machines: cache.New(ttl, 2*ttl),
	}
}

func (s *cachedStore) FindMachine(ctx context.Context, code string) (*model.Machine, error) {
	if v, found := s.machines.Get(code); found {
		m := v.(model.Machine)
		return &m, nil
	}
	m, err := s.Store.FindMachine(ctx, code)
	if err != nil || m == nil {
		return m, err
	}
	s.machines.SetDefault(code, *m)
	return m, nil
}
