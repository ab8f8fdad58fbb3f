package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"pulsemail/config"
	"pulsemail/models"
	"pulsemail/utils"
)

// Requests per minute by plan. Unknown plans fall back to the free tier.
var planRateLimits = map[string]int64{
	models.PlanFree:         60,
	models.PlanStarter:      300,
	models.PlanProfessional: 1000,
	models.PlanEnterprise:   5000,
}

const rateLimitWindow = time.Minute

// counterStore increments a counter key that expires after ttl, returning
// the post-increment value
type counterStore interface {
	Incr(key string, ttl time.Duration) (int64, error)
}

// OrgRateLimiter enforces a fixed-window per-organization request budget
// sized by the organization's plan. Runs after Protected, which puts the
// user in context.
func OrgRateLimiter(logger *logrus.Logger) fiber.Handler {
	store := newCounterStore()

	return func(c *fiber.Ctx) error {
		user, ok := c.Locals("user").(*models.User)
		if !ok {
			return c.Next()
		}

		limit, found := planRateLimits[user.Organization.Plan]
		if !found {
			limit = planRateLimits[models.PlanFree]
		}

		windowStart := time.Now().Truncate(rateLimitWindow)
		key := utils.GenerateRateLimitKey(user.OrganizationID, windowStart.Unix())

		count, err := store.Incr(key, rateLimitWindow)
		if err != nil {
			// A broken limiter backend must not take the API down
			logger.WithError(err).Warn("Rate limit store unavailable, allowing request")
			return c.Next()
		}

		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > limit {
			retryAfter := time.Until(windowStart.Add(rateLimitWindow))
			c.Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))

			logger.WithFields(logrus.Fields{
				"organization_id": user.OrganizationID,
				"plan":            user.Organization.Plan,
				"endpoint":        c.Path(),
				"ip":              c.IP(),
			}).Warn("Organization rate limit exceeded")

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Rate limit exceeded for your plan. Please slow down or upgrade.",
				"retry_after": utils.FormatDuration(retryAfter),
			})
		}

		return c.Next()
	}
}

func newCounterStore() counterStore {
	if config.AppConfig.Redis.Enabled {
		return newRedisCounterStore(config.AppConfig.Redis)
	}
	return newMemoryCounterStore()
}

// redisCounterStore backs the limiter with Redis so limits hold across
// multiple API instances
type redisCounterStore struct {
	client *redis.Client
}

func newRedisCounterStore(cfg config.RedisConfig) *redisCounterStore {
	return &redisCounterStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (r *redisCounterStore) Incr(key string, ttl time.Duration) (int64, error) {
	ctx := context.Background()
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

// memoryCounterStore is the single-instance fallback when Redis is not
// configured
type memoryCounterStore struct {
	mu      sync.Mutex
	entries map[string]*memoryCounterEntry
}

type memoryCounterEntry struct {
	count     int64
	expiresAt time.Time
}

func newMemoryCounterStore() *memoryCounterStore {
	return &memoryCounterStore{
		entries: make(map[string]*memoryCounterEntry),
	}
}

func (m *memoryCounterStore) Incr(key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	entry, ok := m.entries[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &memoryCounterEntry{expiresAt: now.Add(ttl)}
		m.entries[key] = entry
	}
	entry.count++

	// Opportunistically drop expired windows
	if len(m.entries) > 1024 {
		for k, e := range m.entries {
			if now.After(e.expiresAt) {
				delete(m.entries, k)
			}
		}
	}
	return entry.count, nil
}
