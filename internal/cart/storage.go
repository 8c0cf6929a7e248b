package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	pkgredis "github.com/tsiki-shop/storefront-backend/pkg/redis"
)

// ErrStateNotFound reports that no cart has been persisted under the key yet.
var ErrStateNotFound = errors.New("cart state not found")

// Storage persists one cart's serialized state. Writes replace the whole value.
type Storage interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, raw []byte) error
}

// StorageFactory returns the storage slot for a cart id.
type StorageFactory func(cartID string) Storage

// MemoryStorage keeps state in process. Safe for concurrent use.
type MemoryStorage struct {
	mu   sync.Mutex
	data []byte
	set  bool
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return nil, ErrStateNotFound
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryStorage) Save(_ context.Context, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), raw...)
	m.set = true
	return nil
}

// MemoryStorageFactory hands out one MemoryStorage per cart id.
func MemoryStorageFactory() StorageFactory {
	var mu sync.Mutex
	slots := map[string]*MemoryStorage{}
	return func(cartID string) Storage {
		mu.Lock()
		defer mu.Unlock()
		slot, ok := slots[cartID]
		if !ok {
			slot = NewMemoryStorage()
			slots[cartID] = slot
		}
		return slot
	}
}

type redisStore interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CartKey(cartID string) string
}

// RedisStorage keeps one JSON document per cart under ts:cart:<cartID>.
type RedisStorage struct {
	client redisStore
	key    string
	ttl    time.Duration
}

// NewRedisStorage binds a cart id to its key. ttl 0 keeps the cart until overwritten.
func NewRedisStorage(client redisStore, cartID string, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, key: client.CartKey(cartID), ttl: ttl}
}

// RedisStorageFactory builds RedisStorage slots sharing one client.
func RedisStorageFactory(client redisStore, ttl time.Duration) StorageFactory {
	return func(cartID string) Storage {
		return NewRedisStorage(client, cartID, ttl)
	}
}

func (r *RedisStorage) Load(ctx context.Context) ([]byte, error) {
	raw, err := r.client.GetBytes(ctx, r.key)
	if errors.Is(err, pkgredis.ErrNil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (r *RedisStorage) Save(ctx context.Context, raw []byte) error {
	return r.client.Set(ctx, r.key, raw, r.ttl)
}

type persistObserver interface {
	ObservePersist(duration time.Duration, err error)
}

// instrumentedStorage times Save calls.
type instrumentedStorage struct {
	Storage
	observer persistObserver
}

func (s instrumentedStorage) Save(ctx context.Context, raw []byte) error {
	start := time.Now()
	err := s.Storage.Save(ctx, raw)
	s.observer.ObservePersist(time.Since(start), err)
	return err
}
