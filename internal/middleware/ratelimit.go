package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/waflow/accountd/internal/pkg/response"
)

const rateLimitMaxKeys = 65536

type rateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	last   *lru.Cache[string, time.Time]
}

// RateLimit rejects a second call on the same ip+account+route key within
// the window. The key set is LRU-bounded so hostile traffic cannot grow it
// without bound.
func RateLimit(window time.Duration) gin.HandlerFunc {
	cache, err := lru.New[string, time.Time](rateLimitMaxKeys)
	if err != nil {
		panic(err)
	}
	limiter := &rateLimiter{
		window: window,
		last:   cache,
	}
	return limiter.handle
}

func (l *rateLimiter) handle(c *gin.Context) {
	if l.window <= 0 {
		c.Next()
		return
	}
	ip := c.ClientIP()
	uid := "0"
	if v, ok := c.Get(ContextAccountIDKey); ok {
		if id, ok := v.(string); ok && id != "" {
			uid = id
		}
	}
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	key := strings.Join([]string{ip, uid, path}, "|")

	now := time.Now()
	l.mu.Lock()
	last, exists := l.last.Get(key)
	if exists && now.Sub(last) < l.window {
		l.mu.Unlock()
		logutil.GetLogger(c.Request.Context()).Warn("rate limit hit",
			zap.String("ip", ip),
			zap.String("account_id", uid),
			zap.String("path", path),
		)
		response.Error(c, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
		c.Abort()
		return
	}
	l.last.Add(key, now)
	l.mu.Unlock()
	c.Next()
}
