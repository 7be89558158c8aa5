package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

var (
	ErrCacheMiss   = errors.New("availability not cached")
	ErrLockNotHeld = errors.New("lock not held")
)

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
}

// Availability is the cached stock view of one product
type Availability struct {
	ProductID     int64 `json:"product_id"`
	StockQuantity int   `json:"stock_quantity"`
	InStock       bool  `json:"in_stock"`
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newClient(rdb), nil
}

func newClient(rdb *redis.Client) *Client {
	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
	}
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func orderLockKey(orderID int64) string {
	return fmt.Sprintf("lock:order:%d", orderID)
}

func inventoryKey(productID int64) string {
	return fmt.Sprintf("inventory:%d", productID)
}

// AcquireOrderLock takes the mutation lock of an order for ttl. The returned
// token must be passed to ReleaseOrderLock.
func (c *Client) AcquireOrderLock(ctx context.Context, orderID int64, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()

	ok, err := c.rdb.SetNX(ctx, orderLockKey(orderID), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire order lock failed: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// ReleaseOrderLock releases the order lock if token still owns it. A lock that
// expired and was taken by another request is left alone.
func (c *Client) ReleaseOrderLock(ctx context.Context, orderID int64, token string) error {
	result, err := c.releaseScript.Run(ctx, c.rdb, []string{orderLockKey(orderID)}, token).Int64()
	if err != nil {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// SetAvailability caches the stock counters of a product
func (c *Client) SetAvailability(ctx context.Context, a Availability) error {
	key := inventoryKey(a.ProductID)

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, "stock_quantity", a.StockQuantity)
	pipe.HSet(ctx, key, "in_stock", strconv.FormatBool(a.InStock))

	_, err := pipe.Exec(ctx)
	return err
}

// GetAvailability retrieves the cached stock counters of a product
func (c *Client) GetAvailability(ctx context.Context, productID int64) (Availability, error) {
	result, err := c.rdb.HGetAll(ctx, inventoryKey(productID)).Result()
	if err != nil {
		return Availability{}, err
	}
	if len(result) == 0 {
		return Availability{}, fmt.Errorf("product %d: %w", productID, ErrCacheMiss)
	}

	qty, err := strconv.Atoi(result["stock_quantity"])
	if err != nil {
		return Availability{}, fmt.Errorf("invalid cached stock_quantity for product %d: %w", productID, err)
	}
	inStock, err := strconv.ParseBool(result["in_stock"])
	if err != nil {
		return Availability{}, fmt.Errorf("invalid cached in_stock for product %d: %w", productID, err)
	}

	return Availability{ProductID: productID, StockQuantity: qty, InStock: inStock}, nil
}
