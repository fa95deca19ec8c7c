package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/quiz-client/internal/engine"
	"github.com/DoyleJ11/quiz-client/internal/types"
)

var ErrNotConnected = errors.New("not connected")
var ErrSendBufferFull = errors.New("send buffer full")
var ErrServerClosed = errors.New("server closed the session")

var frameDisconnect = []byte("41")

// Handler receives decoded inbound events. SessionStarted is delivered after
// every successful (re)connect.
type Handler interface {
	Deliver(in engine.Input)
}

type Config struct {
	URL           string
	DialTimeout   time.Duration
	WriteTimeout  time.Duration
	PingTimeout   time.Duration // used when the handshake does not carry one
	ReconnectWait time.Duration
	MaxReconnects int // -1 retries forever
	SendBuffer    int
}

func DefaultConfig(url string) Config {
	return Config{
		URL:           url,
		DialTimeout:   10 * time.Second,
		WriteTimeout:  3 * time.Second,
		PingTimeout:   45 * time.Second,
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
		SendBuffer:    16,
	}
}

// Client is the duplex event channel to the quiz server. It owns connect,
// heartbeat and reconnect; the session above it only sees inputs.
type Client struct {
	cfg     Config
	handler Handler
	log     *zap.Logger

	mu   sync.RWMutex
	conn *websocket.Conn
	out  chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func NewClient(cfg Config, h Handler, log *zap.Logger) *Client {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 16
	}
	return &Client{
		cfg:     cfg,
		handler: h,
		log:     log.Named("ws"),
		closed:  make(chan struct{}),
	}
}

// Run connects and keeps reconnecting until ctx is done, Close is called or
// MaxReconnects consecutive attempts fail.
func (c *Client) Run(ctx context.Context) error {
	failures := 0
	for {
		connected, err := c.runOnce(ctx)
		if ctx.Err() != nil || c.isClosed() {
			return nil
		}
		if connected {
			failures = 0
		}
		failures++

		if c.cfg.MaxReconnects >= 0 && failures > c.cfg.MaxReconnects {
			return fmt.Errorf("giving up after %d attempts: %w", failures, err)
		}

		c.log.Warn("connection lost, reconnecting",
			zap.Error(err),
			zap.Int("attempt", failures),
			zap.Duration("wait", c.cfg.ReconnectWait))

		select {
		case <-ctx.Done():
			return nil
		case <-c.closed:
			return nil
		case <-time.After(c.cfg.ReconnectWait):
		}
	}
}

func (c *Client) runOnce(ctx context.Context) (bool, error) {
	connID := uuid.NewString()
	log := c.log.With(zap.String("conn_id", connID))

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	conn, _, err := websocket.Dial(dialCtx, c.cfg.URL, nil)
	cancel()
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	defer conn.CloseNow()

	hs, err := c.handshake(ctx, conn)
	if err != nil {
		return false, fmt.Errorf("handshake: %w", err)
	}
	liveness := c.cfg.PingTimeout
	if hs.PingInterval > 0 && hs.PingTimeout > 0 {
		liveness = time.Duration(hs.PingInterval+hs.PingTimeout) * time.Millisecond
	}

	out := make(chan []byte, c.cfg.SendBuffer)
	c.mu.Lock()
	c.conn, c.out = conn, out
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn, c.out = nil, nil
		c.mu.Unlock()
	}()

	log.Info("connected", zap.String("sid", hs.SID), zap.Duration("liveness", liveness))
	c.handler.Deliver(engine.SessionStarted{})

	g, gctx := errgroup.WithContext(ctx)

	// Writer
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-c.closed:
				return nil
			case frame := <-out:
				wctx, cancel := context.WithTimeout(gctx, c.cfg.WriteTimeout)
				err := conn.Write(wctx, websocket.MessageText, frame)
				cancel()
				if err != nil {
					return fmt.Errorf("write: %w", err)
				}
			}
		}
	})

	// Reader
	g.Go(func() error {
		for {
			rctx, cancel := context.WithTimeout(gctx, liveness)
			_, data, err := conn.Read(rctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return ErrServerClosed
				}
				return fmt.Errorf("read: %w", err)
			}

			pkt, err := DecodePacket(data)
			if err != nil {
				log.Warn("dropping undecodable frame", zap.Error(err))
				continue
			}

			switch pkt.Kind {
			case PacketPing:
				select {
				case out <- FramePong:
				default:
					log.Warn("send buffer full, pong dropped")
				}
			case PacketClose, PacketDisconnect:
				return ErrServerClosed
			case PacketEvent:
				c.dispatch(log, pkt)
			}
		}
	})

	err = g.Wait()
	if c.isClosed() {
		return true, nil
	}
	log.Info("disconnected", zap.Error(err))
	return true, err
}

func (c *Client) handshake(ctx context.Context, conn *websocket.Conn) (Handshake, error) {
	hctx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	var hs Handshake
	pkt, err := readPacket(hctx, conn)
	if err != nil {
		return hs, err
	}
	if pkt.Kind != PacketOpen {
		return hs, fmt.Errorf("%w: expected open, got kind %d", ErrBadPacket, pkt.Kind)
	}
	if err := json.Unmarshal(pkt.Data, &hs); err != nil {
		return hs, fmt.Errorf("%w: open payload: %v", ErrBadPacket, err)
	}

	if err := conn.Write(hctx, websocket.MessageText, FrameConnect); err != nil {
		return hs, fmt.Errorf("namespace connect: %w", err)
	}

	for {
		pkt, err := readPacket(hctx, conn)
		if err != nil {
			return hs, err
		}
		switch pkt.Kind {
		case PacketConnect:
			return hs, nil
		case PacketConnectError:
			return hs, fmt.Errorf("namespace refused: %s", pkt.Data)
		case PacketPing:
			if err := conn.Write(hctx, websocket.MessageText, FramePong); err != nil {
				return hs, err
			}
		}
	}
}

func readPacket(ctx context.Context, conn *websocket.Conn) (Packet, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return Packet{}, err
	}
	return DecodePacket(data)
}

// dispatch fails closed: anything that does not decode is logged and dropped.
func (c *Client) dispatch(log *zap.Logger, pkt Packet) {
	in, err := types.DecodeEvent(pkt.Event, pkt.Args)
	switch {
	case errors.Is(err, types.ErrUnknownEvent):
		log.Debug("ignoring unknown event", zap.String("event", pkt.Event))
		return
	case err != nil:
		log.Warn("ignoring malformed event", zap.String("event", pkt.Event), zap.Error(err))
		return
	}
	c.handler.Deliver(in)
}

// Emit queues one outbound event on the current connection.
func (c *Client) Emit(msg types.ClientMessage) error {
	frame, err := EncodeEvent(msg.Event, msg.Args...)
	if err != nil {
		return err
	}

	c.mu.RLock()
	out := c.out
	c.mu.RUnlock()
	if out == nil {
		return ErrNotConnected
	}

	select {
	case out <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Connected reports whether a session is currently established.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// Close leaves the namespace, closes the socket and stops reconnecting.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.WriteTimeout)
		defer cancel()
		err = multierr.Append(
			conn.Write(ctx, websocket.MessageText, frameDisconnect),
			conn.Close(websocket.StatusNormalClosure, "bye"),
		)
	})
	return err
}

func (c *Client) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
