package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"PShare/config"
	"PShare/data/database/mgo/mongoutil"
	"PShare/global"
	"PShare/logger"
	"PShare/middleware"
	midsec "PShare/middleware/security"
	"PShare/module/dashboard"
	filemod "PShare/module/file"
	usermod "PShare/module/user"
	"PShare/service/events"
	"PShare/service/gateway"
	"PShare/service/mgo"
	"PShare/service/storage"
	"PShare/service/storage/redis"
	"PShare/tools/safe"
	"PShare/tools/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const mongoWait = 30 * time.Second

type app struct {
	cfg     global.AppConfig
	srv     *http.Server
	gw      *gateway.Gateway
	journal *events.Journal
	watcher *config.Watcher
	redisOn bool
}

func newApp(ctx context.Context, path string, cfg global.AppConfig) (*app, error) {
	a := &app{cfg: cfg}

	mgo.StartAsync(ctx, &mongoutil.Config{
		Uri:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		Username:    cfg.Mongo.Username,
		Password:    cfg.Mongo.Password,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
	})
	wctx, cancel := context.WithTimeout(ctx, mongoWait)
	defer cancel()
	if err := mgo.WaitReady(wctx, mgo.Manager()); err != nil {
		return nil, err
	}

	files := filemod.NewMongoStore(mgo.GetDB)
	users := usermod.NewMongoStore(mgo.GetDB)
	if err := files.EnsureIndexes(ctx); err != nil {
		logger.Warn("[main] file indexes", zap.Error(err))
	}
	if err := users.EnsureIndexes(ctx); err != nil {
		logger.Warn("[main] user indexes", zap.Error(err))
	}
	blobs, err := filemod.NewBlobStore(cfg.Storage.UploadDir)
	if err != nil {
		return nil, err
	}

	// a nil *PresenceStore must not reach the interfaces below
	var (
		mirror gateway.PresenceMirror
		shared dashboard.SharedPresence
	)
	if cfg.Redis.Addr != "" {
		if err := redis.InitRedis(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}); err != nil {
			return nil, err
		}
		a.redisOn = true
		ps := storage.NewPresenceStore(redis.GetRedis(), cfg.Redis.PresenceTTL)
		mirror, shared = ps, ps
	}

	sink, err := events.NewSink(cfg.Events)
	if err != nil {
		return nil, err
	}
	a.journal = events.NewJournal(sink, cfg.Events.QueueSize)

	jwtOpts := security.Options{
		Secret: []byte(cfg.JWT.Secret),
		Alg:    cfg.JWT.Alg,
		TTL:    cfg.JWT.TTL,
	}

	reg := gateway.NewRegistry()
	disp := gateway.NewDispatcher(reg, filemod.Finder{Store: files},
		gateway.WithJournal(a.journal),
		gateway.WithNode(cfg.Gateway.NodeID),
	)
	a.gw = gateway.NewGateway(
		gateway.NewAuthenticator(jwtOpts),
		reg,
		gateway.NewHandlers(gateway.NewSendFileHandler(disp)),
		gateway.Options{
			Conn: gateway.ConnConf{
				SendQueueSize:   cfg.Gateway.SendQueueSize,
				PingInterval:    cfg.Gateway.PingInterval,
				PongWait:        cfg.Gateway.PongWait,
				WriteWait:       cfg.Gateway.WriteWait,
				MaxMessageBytes: cfg.Gateway.MaxMessageBytes,
			},
			CheckOrigin: middleware.CheckOrigin(cfg.Server.CorsOrigin),
			Mirror:      mirror,
		},
	)

	middleware.Config(midsec.Middleware(&midsec.Options{JWT: jwtOpts}))

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Origin(cfg.Server.CorsOrigin), middleware.AccessLog(), middleware.Manager().Use())
	r.GET("/ws", a.gw.HandleWS)
	r.GET("/health", func(c *gin.Context) {
		global.OK(c, http.StatusOK, gin.H{"status": "ok", "connections": reg.Count()})
	})

	secureCookie := strings.HasPrefix(cfg.Server.CorsOrigin, "https://")
	usermod.NewHandler(usermod.NewService(users, jwtOpts), reg, secureCookie).RegisterRoutes(r)
	filemod.NewHandler(files, blobs, disp, cfg.Storage.MaxUploadMB).RegisterRoutes(r)
	dashboard.NewHandler(files, users, reg, shared).RegisterRoutes(r)

	if path != "" {
		w, err := config.StartWatcher(path, cfg, func(c global.AppConfig) {
			lvl := logger.SetLevel(c.Log.Level)
			logger.Info("[main] log level applied", zap.String("level", lvl.String()))
		})
		if err != nil {
			logger.Warn("[main] config watcher disabled", zap.Error(err))
		} else {
			a.watcher = w
		}
	}

	a.srv = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// run serves until ctx ends, then shuts everything down in dependency order.
func (a *app) run(ctx context.Context) error {
	errCh := make(chan error, 1)
	safe.Go("http.server", func() {
		logger.Info("[main] listening", zap.String("addr", a.srv.Addr))
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	})

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("[main] shutdown signal received")
	case serveErr = <-errCh:
	}

	sctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	a.shutdown(sctx)
	return serveErr
}

func (a *app) shutdown(ctx context.Context) {
	// hijacked websockets are not tracked by http.Server, so the gateway closes them itself
	if err := a.srv.Shutdown(ctx); err != nil {
		logger.Warn("[main] http shutdown", zap.Error(err))
	}
	if err := a.gw.Close(ctx); err != nil {
		logger.Warn("[main] gateway close", zap.Error(err))
	}
	if err := a.journal.Close(ctx); err != nil {
		logger.Warn("[main] journal close", zap.Error(err))
	}
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	mgo.Close()
	if a.redisOn {
		if err := redis.CloseRedis(); err != nil {
			logger.Warn("[main] redis close", zap.Error(err))
		}
	}
	logger.Info("[main] shutdown complete")
}
