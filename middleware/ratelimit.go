// middleware/ratelimit.go
package middleware

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// LoginRateLimiter throttles login attempts per wallet, falling back to the
// client IP when the body names no wallet.
type LoginRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginRateLimiter allows perHour attempts per key, all of which may be spent at once.
func NewLoginRateLimiter(perHour int) *LoginRateLimiter {
	if perHour <= 0 {
		perHour = 1
	}
	return &LoginRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Hour / time.Duration(perHour)),
		burst:    perHour,
		idleTTL:  time.Hour,
		now:      time.Now,
	}
}

func (r *LoginRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := loginKey(c)
		if !r.allow(key) {
			log.Printf("🚫 [RATE_LIMIT] Login attempts exhausted for %s", key)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "Too many login attempts, try again later",
			})
		}
		return c.Next()
	}
}

func (r *LoginRateLimiter) allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for k, v := range r.visitors {
		if now.Sub(v.lastSeen) > r.idleTTL {
			delete(r.visitors, k)
		}
	}
	v, ok := r.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func loginKey(c *fiber.Ctx) string {
	var body struct {
		Wallet string `json:"wallet"`
	}
	if err := c.BodyParser(&body); err == nil {
		if w := strings.ToLower(strings.TrimSpace(body.Wallet)); w != "" {
			return "wallet:" + w
		}
	}
	return "ip:" + c.IP()
}
