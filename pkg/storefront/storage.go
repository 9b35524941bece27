package storefront

import (
	"context"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// Well known keys of the client-local snapshots.
const (
	KeyCart     = "cart"
	KeyWishlist = "wishlist"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Storage keeps opaque snapshots by key. Load returns nil data and no error
// when the key has never been written.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// loadSnapshot reads the list stored under key. A snapshot that no longer
// decodes is logged and treated as empty; only storage failures are returned.
func loadSnapshot[T any](ctx context.Context, s Storage, key string) ([]T, error) {
	data, err := s.Load(ctx, key)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", key)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		zap.L().Warn("discarding unreadable snapshot", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	return items, nil
}

func saveSnapshot(ctx context.Context, s Storage, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	return errors.Wrapf(s.Save(ctx, key, data), "save %s", key)
}

type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (m *MemoryStorage) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStorage) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

var boltBucket = []byte("storefront")

// BoltStorage keeps snapshots in a local bbolt file.
type BoltStorage struct {
	db *bolt.DB
}

func OpenBoltStorage(path string) (*BoltStorage, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create bucket")
	}
	return &BoltStorage{db: db}, nil
}

func (b *BoltStorage) Load(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(boltBucket).Get([]byte(key)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}

func (b *BoltStorage) Save(_ context.Context, key string, data []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), data)
	})
}

func (b *BoltStorage) Close() error {
	return b.db.Close()
}

// RedisStorage keeps snapshots of one shopper session in Redis. Keys are
// prefixed with the session id and expire after ttl of inactivity.
type RedisStorage struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisStorage(client redis.UniversalClient, sessionID string, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, prefix: "storefront:" + sessionID + ":", ttl: ttl}
}

func (r *RedisStorage) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

func (r *RedisStorage) Save(ctx context.Context, key string, data []byte) error {
	return r.client.Set(ctx, r.prefix+key, data, r.ttl).Err()
}
