package mgo

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"PShare/data/database/mgo/mongoutil"
	"PShare/logger"
	"PShare/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type MongoManager struct {
	mu        sync.RWMutex
	client    *mongoutil.Client
	readyCh   chan struct{} // closed once, on the first successful connect
	readyOnce sync.Once
	startOnce sync.Once

	lastErr atomic.Value // error
}

var globalMgr = MongoManager{readyCh: make(chan struct{})}

const (
	baseBackoff = 200 * time.Millisecond
	maxBackoff  = 5 * time.Second
	healthEvery = 10 * time.Second
	failThresh  = 3 // consecutive failed pings before reconnecting
)

// StartAsync keeps a connection alive until ctx is done: connect with backoff, then
// ping periodically and reconnect after failThresh failures.
func StartAsync(ctx context.Context, cfg *mongoutil.Config) {
	globalMgr.startOnce.Do(func() {
		go globalMgr.run(ctx, cfg)
	})
}

func (m *MongoManager) run(ctx context.Context, cfg *mongoutil.Config) {
	for {
		if !m.connect(ctx, cfg) {
			return
		}
		if !m.watch(ctx) {
			return
		}
		logger.Warn("[mongo] connection lost, reconnecting", zap.Error(m.Err()))
	}
}

// connect retries with jittered exponential backoff. False when ctx ended.
func (m *MongoManager) connect(ctx context.Context, cfg *mongoutil.Config) bool {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		cli, err := mongoutil.NewMongoDB(ctx, cfg)
		if err == nil {
			m.mu.Lock()
			m.client = cli
			m.mu.Unlock()
			m.readyOnce.Do(func() { close(m.readyCh) })
			logger.Info("[mongo] connected", zap.String("db", cfg.Database))
			return true
		}
		m.lastErr.Store(err)
		logger.Warn("[mongo] connect failed", zap.Int("attempt", attempt), zap.Error(err))

		backoff := baseBackoff << attempt
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		jitter := time.Duration(rand.Int63n(int64(backoff/5) + 1)) // 0~20%
		timer := time.NewTimer(backoff - jitter/2)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		if attempt < 6 {
			attempt++
		}
	}
}

// watch pings until the connection is judged lost (true) or ctx ends (false).
func (m *MongoManager) watch(ctx context.Context) bool {
	fail := 0
	ticker := time.NewTicker(healthEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.drop()
			return false
		case <-ticker.C:
			m.mu.RLock()
			c := m.client
			m.mu.RUnlock()
			if c == nil {
				return true
			}
			if err := c.GetDB().Client().Ping(ctx, nil); err != nil {
				fail++
				m.lastErr.Store(err)
				if fail >= failThresh {
					m.drop()
					return true
				}
				continue
			}
			fail = 0
		}
	}
}

func (m *MongoManager) drop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = m.client.Disconnect(ctx)
		m.client = nil
	}
}

// Err returns the most recent connect or ping error.
func (m *MongoManager) Err() error {
	if v := m.lastErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func Manager() *MongoManager {
	return &globalMgr
}

// Ready is closed on the first successful connect.
func Ready() <-chan struct{} {
	return globalMgr.readyCh
}

func Err() error {
	return globalMgr.Err()
}

func TryGetDB() (*mongo.Database, bool) {
	globalMgr.mu.RLock()
	defer globalMgr.mu.RUnlock()
	if globalMgr.client == nil {
		return nil, false
	}
	return globalMgr.client.GetDB(), true
}

// GetDB returns the database or an error carrying errs.ServerInternalError while disconnected.
func GetDB() (*mongo.Database, error) {
	db, ok := TryGetDB()
	if !ok {
		return nil, errs.ErrInternal.WrapMsg("mongo not ready", "lastErr", Err())
	}
	return db, nil
}

// WaitReady blocks until the first connect or ctx ends.
func WaitReady(ctx context.Context, m *MongoManager) error {
	m.mu.RLock()
	connected := m.client != nil
	m.mu.RUnlock()
	if connected {
		return nil
	}
	select {
	case <-m.readyCh:
		return nil
	case <-ctx.Done():
		return errs.WrapMsg(ctx.Err(), "wait mongo ready", "lastErr", m.Err())
	}
}

// Close disconnects; the StartAsync loop itself stops with its ctx.
func Close() {
	globalMgr.drop()
}
