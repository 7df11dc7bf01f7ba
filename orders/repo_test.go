package orders_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	apperrors "github.com/jrsteele09/go-bankid-auth/internal/errors"
	"github.com/jrsteele09/go-bankid-auth/orders"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T, ttl time.Duration) (*orders.RedisRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return orders.NewRedisRepo(client, "test", ttl), mr
}

func repos(t *testing.T) map[string]orders.Repo {
	t.Helper()
	redisRepo, _ := newRedisRepo(t, time.Minute)
	return map[string]orders.Repo{
		"memory": orders.NewInMemoryRepo(time.Minute),
		"redis":  redisRepo,
	}
}

func testOrder(ref string) orders.Order {
	return orders.Order{
		OrderRef:       ref,
		AutoStartToken: "auto-" + ref,
		QRStartToken:   "qr-" + ref,
		QRStartSecret:  "secret-" + ref,
		EndUserIP:      "1.2.3.4",
		StartedAt:      time.Unix(1700000000, 0).UTC(),
		State:          orders.StatePending,
	}
}

func TestRepoContract(t *testing.T) {
	ctx := context.Background()

	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, repo.Create(ctx, testOrder("r1")))
			require.Error(t, repo.Create(ctx, testOrder("r1")), "duplicate order refs are rejected")

			got, err := repo.Get(ctx, "r1")
			require.NoError(t, err)
			require.Equal(t, testOrder("r1"), got)

			updated, err := repo.Update(ctx, "r1", func(o *orders.Order) error {
				o.Identity = &orders.Identity{PersonalNumber: "199001011234", GivenName: "Anna"}
				return o.Transition(orders.StateCompleted)
			})
			require.NoError(t, err)
			require.Equal(t, orders.StateCompleted, updated.State)

			got, err = repo.Get(ctx, "r1")
			require.NoError(t, err)
			require.Equal(t, orders.StateCompleted, got.State)
			require.Equal(t, "Anna", got.Identity.GivenName)

			_, err = repo.Update(ctx, "r1", func(o *orders.Order) error {
				return o.Transition(orders.StateCancelled)
			})
			require.ErrorIs(t, err, apperrors.ErrInvalidTransition)

			got, err = repo.Get(ctx, "r1")
			require.NoError(t, err)
			require.Equal(t, orders.StateCompleted, got.State, "a failed update writes nothing")

			require.NoError(t, repo.Delete(ctx, "r1"))
			require.NoError(t, repo.Delete(ctx, "r1"))

			_, err = repo.Get(ctx, "r1")
			require.ErrorIs(t, err, apperrors.ErrOrderNotFound)
			_, err = repo.Update(ctx, "r1", func(*orders.Order) error { return nil })
			require.ErrorIs(t, err, apperrors.ErrOrderNotFound)
		})
	}
}

func TestRepoRejectsEmptyOrderRef(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			require.Error(t, repo.Create(ctx, orders.Order{}))
			_, err := repo.Get(ctx, "")
			require.Error(t, err)
			require.Error(t, repo.Delete(ctx, ""))
		})
	}
}

func TestInMemoryRepoExpires(t *testing.T) {
	repo := orders.NewInMemoryRepo(20 * time.Millisecond)
	require.NoError(t, repo.Create(context.Background(), testOrder("r1")))

	require.Eventually(t, func() bool {
		_, err := repo.Get(context.Background(), "r1")
		return apperrors.Is(err, apperrors.ErrOrderNotFound)
	}, time.Second, 10*time.Millisecond)
}

func TestRedisRepoKeepsTTLOnUpdate(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisRepo(t, time.Minute)
	require.NoError(t, repo.Create(ctx, testOrder("r1")))

	mr.FastForward(40 * time.Second)
	_, err := repo.Update(ctx, "r1", func(o *orders.Order) error {
		o.HintCode = "userSign"
		return nil
	})
	require.NoError(t, err)

	require.LessOrEqual(t, mr.TTL("test:r1"), 20*time.Second)

	mr.FastForward(21 * time.Second)
	_, err = repo.Get(ctx, "r1")
	require.ErrorIs(t, err, apperrors.ErrOrderNotFound)
}
