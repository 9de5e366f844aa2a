package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

const (
	keyPrefix       = "scan:session:"
	maxWatchRetries = 10
)

// RedisStore sesiones en Redis compartidas entre instancias de la API.
// Apply usa WATCH/MULTI: si otra escritura toca la clave entre la lectura y el SET, se reintenta.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore construye el almacén. ttl <= 0 deja las claves sin expiración.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

// NewRedisClient abre el cliente y verifica la conexión.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func key(userID string) string { return keyPrefix + userID }

// Get devuelve la sesión o una vacía.
func (s *RedisStore) Get(ctx context.Context, userID string) (*entity.ScanningSession, error) {
	return s.load(ctx, s.client, userID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) load(ctx context.Context, c getter, userID string) (*entity.ScanningSession, error) {
	data, err := c.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.NewScanningSession(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scan session: %w", err)
	}
	var sess entity.ScanningSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode scan session: %w", err)
	}
	return &sess, nil
}

// Apply lee, fusiona y escribe dentro de una transacción optimista.
func (s *RedisStore) Apply(ctx context.Context, userID string, patch entity.SessionPatch) (*entity.ScanningSession, error) {
	k := key(userID)
	var merged *entity.ScanningSession

	txf := func(tx *redis.Tx) error {
		cur, err := s.load(ctx, tx, userID)
		if err != nil {
			return err
		}
		next := entity.MergeSession(cur, patch, s.now())
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode scan session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, data, s.ttl)
			return nil
		})
		if err == nil {
			merged = next
		}
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, txf, k)
		if err == nil {
			return merged, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("apply scan session %s: %w", userID, domain.ErrConflict)
}

// Clear elimina la sesión.
func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("clear scan session: %w", err)
	}
	return nil
}
