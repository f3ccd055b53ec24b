package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/hema22923/AgriConnect/internal/domain"
	"github.com/redis/go-redis/v9"
)

const maxUpdateRetries = 50

func NewRedisCartStore(client *redis.Client, baseTTL time.Duration) *RedisCartStore {
	return &RedisCartStore{
		client:  client,
		baseTTL: baseTTL,
		now:     time.Now,
	}
}

// RedisCartStore stores carts as JSON under cart:<userID>. Carts expire
// after baseTTL plus jitter of inactivity.
type RedisCartStore struct {
	client  *redis.Client
	baseTTL time.Duration
	now     func() time.Time
}

func (r *RedisCartStore) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewCart(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return decodeCart(userID, data)
}

func (r *RedisCartStore) Update(ctx context.Context, userID string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	key := cacheKey(userID)
	var updated *domain.Cart

	txf := func(tx *redis.Tx) error {
		cart := domain.NewCart(userID)
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("redis get failed: %w", err)
		default:
			if cart, err = decodeCart(userID, data); err != nil {
				return err
			}
		}

		if err := fn(cart); err != nil {
			return err
		}
		cart.UpdatedAt = r.now()

		payload, err := json.Marshal(cart)
		if err != nil {
			return fmt.Errorf("marshal cart failed: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if cart.IsEmpty() {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, payload, r.ttl())
			return nil
		})
		if err != nil {
			return err
		}
		updated = cart
		return nil
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
	}
	return nil, ErrCartConflict
}

func (r *RedisCartStore) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCartStore) ttl() time.Duration {
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	return r.baseTTL + jitter
}

func decodeCart(userID string, data []byte) (*domain.Cart, error) {
	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	if cart.Lines == nil {
		cart.Lines = []domain.CartLine{}
	}
	cart.UserID = userID
	return &cart, nil
}

func cacheKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}
