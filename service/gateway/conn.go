package gateway

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"PShare/logger"
	"PShare/tools/errs"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrConnClosed    = errs.New("connection closed")
	ErrSendQueueFull = errs.New("send queue full")
	errBadTransition = errs.New("invalid state transition")
)

// ConnConf tunes one connection's keepalive and write path.
type ConnConf struct {
	SendQueueSize   int
	PingInterval    time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	MaxMessageBytes int64
}

func (c *ConnConf) norm() {
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 64
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 25 * time.Second
	}
	if c.PongWait <= c.PingInterval {
		c.PongWait = c.PingInterval * 12 / 5
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 64 << 10
	}
}

// Conn is one live websocket connection. Only the writer goroutine writes to ws;
// everyone else goes through Emit, which queues and returns immediately.
type Conn struct {
	id     string
	userID string
	ws     *websocket.Conn
	remote net.Addr
	conf   ConnConf

	state     atomic.Int32
	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	done      chan struct{} // writer exited

	CreatedAt time.Time
}

func newConn(id string, conf ConnConf) *Conn {
	conf.norm()
	c := &Conn{
		id:        id,
		conf:      conf,
		send:      make(chan []byte, conf.SendQueueSize),
		closed:    make(chan struct{}),
		done:      make(chan struct{}),
		CreatedAt: time.Now(),
	}
	c.state.Store(int32(StateConnecting))
	return c
}

func (c *Conn) ID() string     { return c.id }
func (c *Conn) UserID() string { return c.userID }

func (c *Conn) Remote() string {
	if c.remote == nil {
		return ""
	}
	return c.remote.String()
}

func (c *Conn) State() ConnState { return ConnState(c.state.Load()) }

// transition moves the connection along the lifecycle; illegal edges are refused.
func (c *Conn) transition(to ConnState) error {
	for {
		from := ConnState(c.state.Load())
		if !from.CanTransition(to) {
			return errs.WrapMsg(errBadTransition, "transition refused", "from", from.String(), "to", to.String())
		}
		if c.state.CompareAndSwap(int32(from), int32(to)) {
			return nil
		}
	}
}

// attach binds the upgraded socket and the authenticated identity.
func (c *Conn) attach(ws *websocket.Conn, userID string) {
	c.ws = ws
	c.userID = userID
	if ws != nil {
		c.remote = ws.RemoteAddr()
	}
}

// Emit encodes one frame and puts it on the send queue. It never blocks:
// a closed connection yields ErrConnClosed and a full queue drops the frame.
func (c *Conn) Emit(event string, payload any) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}
	b, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}
	select {
	case c.send <- b:
		return nil
	case <-c.closed:
		return ErrConnClosed
	default:
		logger.Warn("[WS] send queue full, drop frame", zap.String("conn", c.id), zap.String("user", c.userID), zap.String("event", event))
		return ErrSendQueueFull
	}
}

// Close stops the writer, which sends a close frame and releases the socket. Safe to call repeatedly.
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// release frees a conn whose writer was never started.
func (c *Conn) release() {
	c.Close()
	closeQuiet(c.ws)
	close(c.done)
}

// Done is closed once the writer has released the socket.
func (c *Conn) Done() <-chan struct{} { return c.done }

// writeLoop is the only writer of ws: queued frames first, then keepalive pings.
func (c *Conn) writeLoop() {
	ticker := time.NewTicker(c.conf.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.conf.WriteWait))
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		closeQuiet(c.ws)
		close(c.done)
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.conf.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug("[WS] write payload err", zap.String("conn", c.id), zap.String("user", c.userID), zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(c.conf.WriteWait)); err != nil {
				logger.Debug("[WS] ping err", zap.String("conn", c.id), zap.String("user", c.userID), zap.Error(err))
				c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

func closeQuiet(ws *websocket.Conn) {
	if ws != nil {
		_ = ws.Close()
	}
}
