package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/utils"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

// IntentLimiter throttles how fast one actor can fire intents, so a held
// down button cannot flood the game lock.
type IntentLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*actorLimiter
	lastGC   time.Time
}

type actorLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewIntentLimiter(rps float64, burst int) *IntentLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &IntentLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		limiters: map[string]*actorLimiter{},
		lastGC:   time.Now(),
	}
}

func (l *IntentLimiter) Allow(actorId string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastGC) > limiterIdleTTL {
		for key, al := range l.limiters {
			if now.Sub(al.lastSeen) > limiterIdleTTL {
				delete(l.limiters, key)
			}
		}
		l.lastGC = now
	}

	al, ok := l.limiters[actorId]
	if !ok {
		al = &actorLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[actorId] = al
	}
	al.lastSeen = now
	return al.limiter.AllowN(now, 1)
}

// Middleware must run after VerifyAuthToken.
func (l *IntentLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorId := utils.GetActorId(c)
		if l.Allow(actorId) {
			c.Next()
			return
		}
		log.Warn().Str("actorId", actorId).Str("path", c.Request.URL.Path).Msg("Intent rate exceeded")
		c.Header("Retry-After", strconv.Itoa(1))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, reject.TooManyRequestsProblem())
	}
}
