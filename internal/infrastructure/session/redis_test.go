package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/infrastructure/session"
)

func newRedisStore(t *testing.T) (*session.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return session.NewRedisStore(client, time.Hour), mr
}

func TestRedisStore_GetVacia(t *testing.T) {
	store, _ := newRedisStore(t)
	sess, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)
	assert.Empty(t, sess.Items)
}

func TestRedisStore_ApplyPersisteConTTL(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	_, err := store.Apply(ctx, "u1", entity.SessionPatch{
		Timestamp: 100,
		Fields:    map[string]string{"orderId": "o-1"},
		AddItems:  []entity.SessionItem{{QRCode: "ABCD1234", ProductID: "p1"}},
	})
	require.NoError(t, err)

	assert.True(t, mr.Exists("scan:session:u1"))
	assert.Equal(t, time.Hour, mr.TTL("scan:session:u1"))

	sess, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "o-1", sess.Fields["orderId"].Value)
	assert.Contains(t, sess.Items, "ABCD1234")
}

func TestRedisStore_ApplyConcurrenteNoPierdeItems(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()
	codes := []string{"AAAA0001", "BBBB0002", "CCCC0003", "DDDD0004", "EEEE0005", "FFFF0006"}

	var wg sync.WaitGroup
	for i, code := range codes {
		wg.Add(1)
		go func(ts int64, code string) {
			defer wg.Done()
			_, err := store.Apply(ctx, "u1", entity.SessionPatch{
				Timestamp: ts,
				AddItems:  []entity.SessionItem{{QRCode: code}},
			})
			assert.NoError(t, err)
		}(int64(i+1), code)
	}
	wg.Wait()

	sess, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, sess.Items, len(codes))
}

func TestRedisStore_Clear(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()
	_, err := store.Apply(ctx, "u1", entity.SessionPatch{Timestamp: 1, Fields: map[string]string{"a": "b"}})
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx, "u1"))
	assert.False(t, mr.Exists("scan:session:u1"))
}

func TestMemoryStore_ApplyYGet(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()

	_, err := store.Apply(ctx, "u1", entity.SessionPatch{Timestamp: 5, AddItems: []entity.SessionItem{{QRCode: "ABCD1234"}}})
	require.NoError(t, err)
	_, err = store.Apply(ctx, "u1", entity.SessionPatch{Timestamp: 6, RemoveItems: []string{"ABCD1234"}})
	require.NoError(t, err)

	sess, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, sess.Items)
	assert.Equal(t, 2, sess.Version)
}
