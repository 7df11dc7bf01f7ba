package orders

import (
	"context"
	"encoding/json"
	"time"

	apperrors "github.com/jrsteele09/go-bankid-auth/internal/errors"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned when a redis command fails for reasons other than a missing key.
var ErrRedisUnavailable = errors.New("redis unavailable")

const maxUpdateAttempts = 5

// RedisRepo stores orders as JSON strings with a key TTL. Updates use WATCH/MULTI so
// concurrent writers (the collector and the cancel handler) never lose a transition.
type RedisRepo struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Repo = (*RedisRepo)(nil)

func NewRedisRepo(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisRepo {
	if prefix == "" {
		prefix = "bankid:order"
	}
	return &RedisRepo{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *RedisRepo) key(orderRef string) string {
	return r.prefix + ":" + orderRef
}

func (r *RedisRepo) Create(ctx context.Context, order Order) error {
	if order.OrderRef == "" {
		return errors.New("orderRef is required")
	}

	data, err := json.Marshal(order)
	if err != nil {
		return errors.Wrap(err, "[RedisRepo Create] marshal")
	}

	created, err := r.client.SetNX(ctx, r.key(order.OrderRef), data, r.ttl).Result()
	if err != nil {
		return errors.Wrapf(ErrRedisUnavailable, "[RedisRepo Create] %v", err)
	}
	if !created {
		return errors.Errorf("[RedisRepo Create] order %s already exists", order.OrderRef)
	}
	return nil
}

func (r *RedisRepo) Get(ctx context.Context, orderRef string) (Order, error) {
	if orderRef == "" {
		return Order{}, errors.New("orderRef is required")
	}

	data, err := r.client.Get(ctx, r.key(orderRef)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Order{}, apperrors.Wrapf(apperrors.ErrOrderNotFound, "[RedisRepo Get] %s", orderRef)
		}
		return Order{}, errors.Wrapf(ErrRedisUnavailable, "[RedisRepo Get] %v", err)
	}
	return decodeOrder(data)
}

func (r *RedisRepo) Update(ctx context.Context, orderRef string, fn func(*Order) error) (Order, error) {
	if orderRef == "" {
		return Order{}, errors.New("orderRef is required")
	}

	key := r.key(orderRef)
	var updated Order

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return apperrors.Wrapf(apperrors.ErrOrderNotFound, "[RedisRepo Update] %s", orderRef)
			}
			return errors.Wrapf(ErrRedisUnavailable, "[RedisRepo Update] %v", err)
		}

		order, err := decodeOrder(data)
		if err != nil {
			return err
		}
		if err := fn(&order); err != nil {
			return err
		}

		ttl, err := tx.PTTL(ctx, key).Result()
		if err != nil {
			return errors.Wrapf(ErrRedisUnavailable, "[RedisRepo Update] %v", err)
		}
		if ttl <= 0 {
			ttl = r.ttl
		}

		payload, err := json.Marshal(order)
		if err != nil {
			return errors.Wrap(err, "[RedisRepo Update] marshal")
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		updated = order
		return nil
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return Order{}, err
	}
	return Order{}, errors.Errorf("[RedisRepo Update] %s: too much contention", orderRef)
}

func (r *RedisRepo) Delete(ctx context.Context, orderRef string) error {
	if orderRef == "" {
		return errors.New("orderRef is required")
	}
	if err := r.client.Del(ctx, r.key(orderRef)).Err(); err != nil {
		return errors.Wrapf(ErrRedisUnavailable, "[RedisRepo Delete] %v", err)
	}
	return nil
}

func decodeOrder(data []byte) (Order, error) {
	var order Order
	if err := json.Unmarshal(data, &order); err != nil {
		return Order{}, errors.Wrap(err, "decode order")
	}
	return order, nil
}
