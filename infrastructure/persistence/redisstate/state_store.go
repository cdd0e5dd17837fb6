// Package redisstate keeps the persistence space in Redis. Every key of the
// space lives under "<namespace>:" so Clear can wipe the space without
// touching other tenants of the same database. Namespaces are restricted to
// letters, digits, '_', '.' and '-': a ':' would let "a" claim the keys of
// "a:b", and glob characters would widen the SCAN pattern.
package redisstate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/rankboard/portalgate/application/port/outbound"
)

const scanBatch = 100

var (
	ErrInvalidNamespace = errors.New("redis namespace may only contain letters, digits, '_', '.' and '-'")

	namespacePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

type StateStore struct {
	client    *redis.Client
	namespace string
	ownClient bool
}

// Connect parses a redis:// URL, pings the server and returns a store that
// owns the client.
func Connect(ctx context.Context, redisURL, namespace string) (*StateStore, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	store := &StateStore{client: client, namespace: namespace, ownClient: true}
	return store, nil
}

// NewStateStore wraps an existing client; Close leaves the client open.
func NewStateStore(client *redis.Client, namespace string) (*StateStore, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}
	return &StateStore{client: client, namespace: namespace}, nil
}

func validateNamespace(namespace string) error {
	if !namespacePattern.MatchString(namespace) {
		return fmt.Errorf("%w: %q", ErrInvalidNamespace, namespace)
	}
	return nil
}

func (s *StateStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", outbound.ErrStateNotFound
		}
		return "", fmt.Errorf("failed to get state %q: %w", key, err)
	}
	return value, nil
}

func (s *StateStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set state %q: %w", key, err)
	}
	return nil
}

func (s *StateStore) Clear(ctx context.Context) error {
	keys, err := s.scan(ctx)
	if err != nil {
		return err
	}
	for start := 0; start < len(keys); start += scanBatch {
		end := start + scanBatch
		if end > len(keys) {
			end = len(keys)
		}
		if err := s.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("failed to clear state: %w", err)
		}
	}
	return nil
}

func (s *StateStore) Keys(ctx context.Context) ([]string, error) {
	full, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	prefix := s.key("")
	keys := make([]string, 0, len(full))
	for _, k := range full {
		keys = append(keys, strings.TrimPrefix(k, prefix))
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *StateStore) Close() error {
	if s.ownClient {
		return s.client.Close()
	}
	return nil
}

func (s *StateStore) scan(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, s.key("*"), scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan state keys: %w", err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

func (s *StateStore) key(k string) string {
	return s.namespace + ":" + k
}
