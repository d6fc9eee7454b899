package middleware

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/reserveiviagens/rsv360-media-service/internal/utils"
)

// IPRateLimiter applies a per-client-IP request budget. Idle clients are
// evicted by a background sweep; Close stops the sweeper.
type IPRateLimiter struct {
	visitors sync.Map
	rps      rate.Limit
	burst    int
	stop     chan struct{}
	log      *zap.SugaredLogger
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos; written per request, read by the sweeper
}

func NewIPRateLimiter(perMinute int, log *zap.SugaredLogger) *IPRateLimiter {
	l := &IPRateLimiter{
		rps:   rate.Limit(float64(perMinute) / 60.0),
		burst: 5,
		stop:  make(chan struct{}),
		log:   log,
	}
	go l.cleanupVisitors()
	return l
}

// Close stops the background sweep. The limiter keeps working afterwards,
// it just stops evicting idle entries.
func (l *IPRateLimiter) Close() {
	close(l.stop)
}

func (l *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	v, ok := l.visitors.Load(ip)
	if !ok {
		v, _ = l.visitors.LoadOrStore(ip, &visitor{limiter: rate.NewLimiter(l.rps, l.burst)})
	}
	vi := v.(*visitor)
	vi.lastSeen.Store(time.Now().UnixNano())
	return vi.limiter
}

func (l *IPRateLimiter) cleanupVisitors() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.evictIdle(time.Now().Add(-5 * time.Minute))
		}
	}
}

func (l *IPRateLimiter) evictIdle(cutoff time.Time) {
	l.visitors.Range(func(k, v interface{}) bool {
		if v.(*visitor).lastSeen.Load() < cutoff.UnixNano() {
			l.visitors.Delete(k)
		}
		return true
	})
}

func (l *IPRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := clientIP(c)
		if !l.getLimiter(ip).Allow() {
			l.log.Warnw("rate limit exceeded", "ip", ip, "path", c.Path())
			return utils.JSONError(c, fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		return c.Next()
	}
}

func clientIP(c *fiber.Ctx) string {
	ip := c.IP()
	if ip == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}
