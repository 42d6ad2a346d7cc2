package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/inventory-core/internal/application/ports"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
	"github.com/tu-usuario/inventory-core/pkg/logger"
)

// NewRedisClient crea el cliente Redis y verifica la conexión.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

var (
	_ ports.AvailabilityCache = (*RedisAvailabilityCache)(nil)
	_ ports.OperationLocker   = (*RedisOperationLocker)(nil)
)

// RedisAvailabilityCache snapshot consultivo de disponibilidad por bucket.
// Un fallo de Redis jamás tumba el request: Get degrada a miss y Set e
// Invalidate solo dejan log.
type RedisAvailabilityCache struct {
	client *redis.Client
	log    *logger.Logger
}

func NewRedisAvailabilityCache(client *redis.Client, log *logger.Logger) *RedisAvailabilityCache {
	return &RedisAvailabilityCache{client: client, log: log}
}

func availabilityKey(b entity.Bucket) string {
	return fmt.Sprintf("availability:%s:%s:%s:%s", b.TenantID, b.ItemID, b.LocationID, b.UOM)
}

func (c *RedisAvailabilityCache) Get(ctx context.Context, b entity.Bucket) (decimal.Decimal, bool) {
	val, err := c.client.Get(ctx, availabilityKey(b)).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn().Err(err).Str("bucket", availabilityKey(b)).Msg("cache de disponibilidad: fallo en Get, degradando a miss")
		}
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func (c *RedisAvailabilityCache) Set(ctx context.Context, b entity.Bucket, available decimal.Decimal, ttl time.Duration) {
	if err := c.client.Set(ctx, availabilityKey(b), available.String(), ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("bucket", availabilityKey(b)).Msg("cache de disponibilidad: fallo en Set")
	}
}

func (c *RedisAvailabilityCache) Invalidate(ctx context.Context, b entity.Bucket) {
	if err := c.client.Del(ctx, availabilityKey(b)).Err(); err != nil {
		c.log.Warn().Err(err).Str("bucket", availabilityKey(b)).Msg("cache de disponibilidad: fallo en Invalidate")
	}
}

// releaseScript borra el lock solo si el valor coincide con el del dueño,
// para no soltar un lock que ya expiró y fue tomado por otro worker.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisOperationLocker lock consultivo por recurso vía SET NX con TTL.
type RedisOperationLocker struct {
	client *redis.Client
	log    *logger.Logger
}

func NewRedisOperationLocker(client *redis.Client, log *logger.Logger) *RedisOperationLocker {
	return &RedisOperationLocker{client: client, log: log}
}

func (l *RedisOperationLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	value := uuid.New().String()
	ok, err := l.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("adquirir lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		// Contexto propio: el release debe intentarse aunque el ctx del
		// request ya esté cancelado.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{key}, value).Err(); err != nil {
			l.log.Warn().Err(err).Str("key", key).Msg("lock de operación: fallo al liberar, expira por TTL")
		}
	}
	return release, true, nil
}
