package orders

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-bankid-auth/internal/errors"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

// InMemoryRepo is a thread-safe, expiring in-memory implementation of Repo
type InMemoryRepo struct {
	mu     sync.Mutex // serialises read-modify-write in Update
	orders *cache.Cache
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a repository whose entries expire ttl after creation
func NewInMemoryRepo(ttl time.Duration) *InMemoryRepo {
	return &InMemoryRepo{
		orders: cache.New(ttl, ttl),
	}
}

// Create stores a new order. It fails if the order reference is already in use.
func (r *InMemoryRepo) Create(_ context.Context, order Order) error {
	if order.OrderRef == "" {
		return errors.New("orderRef is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.orders.Add(order.OrderRef, order.clone(), cache.DefaultExpiration); err != nil {
		return errors.Wrapf(err, "[InMemoryRepo Create] %s", order.OrderRef)
	}
	return nil
}

// Get retrieves a copy of an order
func (r *InMemoryRepo) Get(_ context.Context, orderRef string) (Order, error) {
	if orderRef == "" {
		return Order{}, errors.New("orderRef is required")
	}

	value, ok := r.orders.Get(orderRef)
	if !ok {
		return Order{}, apperrors.Wrapf(apperrors.ErrOrderNotFound, "[InMemoryRepo Get] %s", orderRef)
	}
	return value.(Order).clone(), nil
}

// Update applies fn to a copy of the order and stores it, keeping the original expiry
func (r *InMemoryRepo) Update(_ context.Context, orderRef string, fn func(*Order) error) (Order, error) {
	if orderRef == "" {
		return Order{}, errors.New("orderRef is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	value, expiresAt, ok := r.orders.GetWithExpiration(orderRef)
	if !ok {
		return Order{}, apperrors.Wrapf(apperrors.ErrOrderNotFound, "[InMemoryRepo Update] %s", orderRef)
	}

	order := value.(Order).clone()
	if err := fn(&order); err != nil {
		return Order{}, err
	}

	ttl := cache.NoExpiration
	if !expiresAt.IsZero() {
		ttl = time.Until(expiresAt)
		if ttl <= 0 {
			return Order{}, apperrors.Wrapf(apperrors.ErrOrderNotFound, "[InMemoryRepo Update] %s expired", orderRef)
		}
	}
	r.orders.Set(orderRef, order.clone(), ttl)
	return order, nil
}

// Delete removes an order. Deleting a missing order is not an error.
func (r *InMemoryRepo) Delete(_ context.Context, orderRef string) error {
	if orderRef == "" {
		return errors.New("orderRef is required")
	}
	r.orders.Delete(orderRef)
	return nil
}
