package gateway

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"PShare/global"
	"PShare/logger"
	"PShare/tools/errs"
	"PShare/tools/ids"
	"PShare/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Options wires a Gateway.
type Options struct {
	Conn        ConnConf
	CheckOrigin func(r *http.Request) bool
	Mirror      PresenceMirror // optional
	IDs         *ids.Generator // optional; package generator when nil
}

// Gateway owns every websocket connection: handshake, registration, read loop and teardown.
type Gateway struct {
	auth     *Authenticator
	reg      *Registry
	handlers *Handlers
	mirror   PresenceMirror
	ids      *ids.Generator
	conf     ConnConf
	upgrader websocket.Upgrader

	mu     sync.Mutex
	live   map[string]*Conn
	closed bool
	wg     sync.WaitGroup

	onState func(c *Conn, s ConnState)
}

func NewGateway(auth *Authenticator, reg *Registry, handlers *Handlers, opts Options) *Gateway {
	safe.MustNotNil(auth, "authenticator")
	safe.MustNotNil(reg, "registry")
	safe.MustNotNil(handlers, "handlers")
	opts.Conn.norm()
	check := opts.CheckOrigin
	if check == nil {
		check = func(r *http.Request) bool { return true }
	}
	return &Gateway{
		auth:     auth,
		reg:      reg,
		handlers: handlers,
		mirror:   opts.Mirror,
		ids:      opts.IDs,
		conf:     opts.Conn,
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096, CheckOrigin: check},
		live:     make(map[string]*Conn),
	}
}

func (g *Gateway) Registry() *Registry { return g.reg }

func (g *Gateway) nextID() string {
	if g.ids != nil {
		return g.ids.NextString()
	}
	return ids.GenerateString()
}

func (g *Gateway) setState(c *Conn, to ConnState) {
	if err := c.transition(to); err != nil {
		logger.Debug("[WS] state", zap.String("conn", c.ID()), zap.Error(err))
		return
	}
	logger.Debug("[WS] state", zap.String("conn", c.ID()), zap.String("user", c.UserID()), zap.Stringer("to", to))
	if g.onState != nil {
		g.onState(c, to)
	}
}

// HandleWS runs one connection from handshake to close.
func (g *Gateway) HandleWS(c *gin.Context) {
	conn := newConn(g.nextID(), g.conf)

	userID, err := g.auth.Authenticate(c.Request)
	if err != nil {
		logger.Info("[WS] handshake refused", zap.String("remote", c.ClientIP()), zap.Error(err))
		g.setState(conn, StateClosed)
		global.Fail(c, err)
		return
	}
	if g.isClosed() {
		g.setState(conn, StateClosed)
		global.Fail(c, errs.ErrInternal.WrapMsg("gateway is shutting down"))
		return
	}

	ws, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already replied
		logger.Info("[WS] upgrade websocket error", zap.String("user", userID), zap.Error(err))
		g.setState(conn, StateClosed)
		return
	}
	conn.attach(ws, userID)
	g.setState(conn, StateAuthenticated)

	if !g.activate(conn) {
		// shutdown began after the upgrade; no writer was started
		conn.release()
		g.setState(conn, StateClosed)
		return
	}
	defer g.deactivate(conn)

	g.readLoop(context.WithoutCancel(c.Request.Context()), conn)
}

// activate registers conn and starts its writer.
func (g *Gateway) activate(conn *Conn) bool {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return false
	}
	g.live[conn.ID()] = conn
	g.wg.Add(1)
	g.mu.Unlock()

	go conn.writeLoop()

	if prev := g.reg.Register(conn.UserID(), conn); prev != nil {
		logger.Info("[WS] user reconnected, previous connection replaced",
			zap.String("user", conn.UserID()), zap.String("prev", prev.ID()), zap.String("conn", conn.ID()))
	}
	g.setState(conn, StateActive)
	g.mirrorOnline(conn)
	logger.Info("[WS] user connected", zap.String("user", conn.UserID()), zap.String("conn", conn.ID()), zap.String("remote", conn.Remote()))
	return true
}

// deactivate unregisters conn and releases it.
func (g *Gateway) deactivate(conn *Conn) {
	defer g.wg.Done()

	_, removed := g.reg.Unregister(conn.ID())
	conn.Close()
	<-conn.Done()
	g.setState(conn, StateClosed)

	g.mu.Lock()
	delete(g.live, conn.ID())
	g.mu.Unlock()

	if removed {
		g.mirrorOffline(conn)
	}
	logger.Info("[WS] user disconnected", zap.String("user", conn.UserID()), zap.String("conn", conn.ID()), zap.Bool("unregistered", removed))
}

// readLoop only reads; frames are handled in arrival order. Any read error ends the connection.
func (g *Gateway) readLoop(ctx context.Context, conn *Conn) {
	ws := conn.ws
	ws.SetReadLimit(g.conf.MaxMessageBytes)
	_ = ws.SetReadDeadline(time.Now().Add(g.conf.PongWait))
	ws.SetPongHandler(func(string) error {
		if g.isCurrent(conn) {
			g.mirrorOnline(conn)
		}
		return ws.SetReadDeadline(time.Now().Add(g.conf.PongWait))
	})

	sess := Session{Conn: conn, UserID: conn.UserID()}
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Debug("[WS] peer closed", zap.String("conn", conn.ID()), zap.Error(rerr))
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Info("[WS] read timeout", zap.String("conn", conn.ID()), zap.Error(rerr))
			} else {
				logger.Debug("[WS] read err", zap.String("conn", conn.ID()), zap.Error(rerr))
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		f, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Debug("[WS] ignore malformed frame", zap.String("conn", conn.ID()), zap.ByteString("sample", sample), zap.Error(perr))
			continue
		}
		h := g.handlers.Get(f.Event)
		if h == nil {
			continue
		}
		if err := safe.Run(func() error { return h.Handle(ctx, sess, f) }); err != nil {
			logger.Error("[WS] handler failed", zap.String("conn", conn.ID()), zap.String("event", f.Event), zap.Error(err))
		}
	}
}

// isCurrent reports whether conn is still the registered handle of its user.
// A replaced connection stays open but must not refresh the shared presence entry.
func (g *Gateway) isCurrent(conn *Conn) bool {
	h, ok := g.reg.Resolve(conn.UserID())
	return ok && h.ID() == conn.ID()
}

func (g *Gateway) mirrorOnline(conn *Conn) {
	if g.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := g.mirror.Online(ctx, conn.UserID(), conn.ID()); err != nil {
		logger.Warn("[WS] presence mirror online failed", zap.String("user", conn.UserID()), zap.Error(err))
	}
}

func (g *Gateway) mirrorOffline(conn *Conn) {
	if g.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := g.mirror.Offline(ctx, conn.UserID(), conn.ID()); err != nil {
		logger.Warn("[WS] presence mirror offline failed", zap.String("user", conn.UserID()), zap.Error(err))
	}
}

func (g *Gateway) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// Close refuses new connections, closes every live one and waits for their teardown or ctx.
func (g *Gateway) Close(ctx context.Context) error {
	g.mu.Lock()
	g.closed = true
	conns := make([]*Conn, 0, len(g.live))
	for _, c := range g.live {
		conns = append(conns, c)
	}
	g.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errs.WrapMsg(ctx.Err(), "gateway close", "pending", len(conns))
	}
}
