package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultValkeyHash holds every record, one hash field per (jid, system id).
const DefaultValkeyHash = "qsys:jobs"

// ValkeyStore implements Store using Valkey/Redis as the backend.
type ValkeyStore struct {
	client *redis.Client
	hash   string
}

// ValkeyConfig holds configuration for connecting to Valkey.
type ValkeyConfig struct {
	Addr     string // host:port
	Password string // optional
	DB       int    // database number
	Hash     string // defaults to DefaultValkeyHash
}

// NewValkeyStore connects and pings the server before returning.
func NewValkeyStore(cfg ValkeyConfig) (*ValkeyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to valkey at %s: %w", cfg.Addr, err)
	}

	return NewValkeyStoreFromClient(client, cfg.Hash), nil
}

// NewValkeyStoreFromClient wraps an existing client.
func NewValkeyStoreFromClient(client *redis.Client, hash string) *ValkeyStore {
	if hash == "" {
		hash = DefaultValkeyHash
	}
	return &ValkeyStore{client: client, hash: hash}
}

func (s *ValkeyStore) Put(ctx context.Context, j *Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("encoding job %s: %w", j.Key(), err)
	}
	return s.client.HSet(ctx, s.hash, j.Key(), data).Err()
}

func (s *ValkeyStore) Get(ctx context.Context, jid, systemID string) (*Job, error) {
	val, err := s.client.HGet(ctx, s.hash, Key(jid, systemID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	j, err := decodeJob(val)
	if err != nil {
		return nil, fmt.Errorf("decoding job %s: %w", Key(jid, systemID), err)
	}
	return j, nil
}

func (s *ValkeyStore) List(ctx context.Context) ([]*Job, error) {
	all, err := s.client.HGetAll(ctx, s.hash).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Job, 0, len(all))
	for key, val := range all {
		j, err := decodeJob([]byte(val))
		if err != nil {
			return nil, fmt.Errorf("decoding job %s: %w", key, err)
		}
		out = append(out, j)
	}
	SortNewestFirst(out)
	return out, nil
}

// Close closes the connection to Valkey.
func (s *ValkeyStore) Close() error {
	return s.client.Close()
}

var _ Store = (*ValkeyStore)(nil)
