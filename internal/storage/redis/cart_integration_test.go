//go:build integration

package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/kart-ledger/internal/domain/cart"
	"github.com/xenking/kart-ledger/internal/domain/item"
	"github.com/xenking/kart-ledger/internal/domain/user"
	"github.com/xenking/kart-ledger/internal/storage/memory"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	endpoint, err := c.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestCartRepository(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	db := memory.New()
	u := &user.User{Username: "david"}
	require.NoError(t, db.Users().Create(ctx, u))

	repo := NewCartRepository(client, db.Users())
	rose := item.Item{ID: 1, Name: "Rose", Price: decimal.RequireFromString("2.99")}

	c, err := repo.FindByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.CartID, c.ID)
	assert.Empty(t, c.Items)

	_, err = repo.FindByUserID(ctx, 99)
	assert.ErrorIs(t, err, cart.ErrNotFound)

	_, err = c.Add(rose, 3)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, c))
	assert.Equal(t, int64(1), c.Version)

	got, err := repo.FindByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 3)
	assert.Equal(t, "8.97", got.Total.StringFixed(2))

	stale := *got
	stale.Version = 0
	assert.ErrorIs(t, repo.Save(ctx, &stale), cart.ErrConflict)

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		conflicts int
	)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := *got
			c.Items = append([]item.Item{}, got.Items...)
			_, _ = c.Remove(1, 1)
			if err := repo.Save(ctx, &c); err != nil {
				mu.Lock()
				defer mu.Unlock()
				assert.ErrorIs(t, err, cart.ErrConflict)
				conflicts++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, writers-1, conflicts)

	final, err := repo.FindByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, final.Items, 2)
}
