package middleware

import (
	"sync"
	"time"

	"PShare/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	globalMgr *MiddlewareManager
	once      sync.Once
)

// MiddlewareManager holds the engine wide middleware chain and the auth handler used by GET/POST.
type MiddlewareManager struct {
	mu   sync.RWMutex
	mids []gin.HandlerFunc
	auth gin.HandlerFunc
}

func NewManager() *MiddlewareManager {
	return &MiddlewareManager{}
}

// Manager returns the process instance, created lazily.
func Manager() *MiddlewareManager {
	once.Do(func() {
		globalMgr = NewManager()
	})
	return globalMgr
}

// Config installs the auth handler guarding routes registered with RouteOpt{IsAuth: true}.
func Config(auth gin.HandlerFunc) {
	m := Manager()
	m.mu.Lock()
	m.auth = auth
	m.mu.Unlock()
}

func (m *MiddlewareManager) Add(h gin.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mids = append(m.mids, h)
}

func (m *MiddlewareManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mids = nil
	m.auth = nil
}

func (m *MiddlewareManager) authHandler() gin.HandlerFunc {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.auth
}

// Use returns one gin.HandlerFunc running the registered chain; mount it on the engine.
func (m *MiddlewareManager) Use() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.mu.RLock()
		handlers := append([]gin.HandlerFunc{}, m.mids...) // snapshot
		m.mu.RUnlock()

		for _, h := range handlers {
			h(c)
			if c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}

// AccessLog logs one line per request.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("[http] "+c.Request.Method+" "+c.Request.URL.Path,
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
