package pos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CartStore keeps the per-terminal carts in Redis so a terminal can resume
// its ring-up after a reconnect. Carts expire after the configured TTL.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartStore constructs the store.
func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &CartStore{client: client, ttl: ttl}
}

func cartKey(terminalID string) string {
	return "cart:" + terminalID
}

// Get loads the cart for a terminal.
func (s *CartStore) Get(ctx context.Context, terminalID string) (Cart, error) {
	payload, err := s.client.Get(ctx, cartKey(terminalID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, ErrCartNotFound
		}
		return Cart{}, fmt.Errorf("pos: load cart: %w", err)
	}
	var cart Cart
	if err := json.Unmarshal(payload, &cart); err != nil {
		return Cart{}, fmt.Errorf("pos: decode cart: %w", err)
	}
	return cart, nil
}

// Save writes the cart back and refreshes its TTL.
func (s *CartStore) Save(ctx context.Context, cart Cart) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("pos: encode cart: %w", err)
	}
	if err := s.client.Set(ctx, cartKey(cart.TerminalID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("pos: save cart: %w", err)
	}
	return nil
}

// Delete removes the cart for a terminal.
func (s *CartStore) Delete(ctx context.Context, terminalID string) error {
	if err := s.client.Del(ctx, cartKey(terminalID)).Err(); err != nil {
		return fmt.Errorf("pos: delete cart: %w", err)
	}
	return nil
}
