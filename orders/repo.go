package orders

import "context"

// Repo stores backend orders keyed by order reference.
// Stored orders expire after the repository's TTL.
type Repo interface {
	Create(ctx context.Context, order Order) error
	Get(ctx context.Context, orderRef string) (Order, error)
	// Update applies fn to the stored order and persists the result atomically.
	// If fn returns an error nothing is written.
	Update(ctx context.Context, orderRef string, fn func(*Order) error) (Order, error)
	Delete(ctx context.Context, orderRef string) error
}
