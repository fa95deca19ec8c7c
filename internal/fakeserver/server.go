// Package fakeserver is an in-process Socket.IO quiz server used to drive the
// client end to end. It speaks just enough of the protocol for one namespace.
package fakeserver

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/quiz-client/internal/types"
	"github.com/DoyleJ11/quiz-client/internal/ws"
)

var ErrStopped = errors.New("fake server stopped")

type Options struct {
	PingInterval time.Duration
	PingTimeout  time.Duration
}

func DefaultOptions() Options {
	return Options{PingInterval: 25 * time.Second, PingTimeout: 20 * time.Second}
}

type Server struct {
	opts     Options
	log      *zap.Logger
	hub      *Hub
	http     *httptest.Server
	received chan ClientEvent
	pongs    atomic.Int64
}

// New builds a server without a listener; mount Routes on your own.
func New(ctx context.Context, log *zap.Logger, opts Options) *Server {
	return &Server{
		opts:     opts,
		log:      log.Named("fakeserver"),
		hub:      NewHub(ctx),
		received: make(chan ClientEvent, 64),
	}
}

// Start serves on a loopback httptest listener.
func Start(ctx context.Context, log *zap.Logger, opts Options) *Server {
	s := New(ctx, log, opts)
	s.http = httptest.NewServer(SetupRoutes(s))
	return s
}

// URL is the websocket endpoint a client should dial.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.http.URL, "http") + "/socket.io/?EIO=4&transport=websocket"
}

// HealthURL is the plain HTTP liveness endpoint.
func (s *Server) HealthURL() string { return s.http.URL + "/healthz" }

// Push broadcasts one server event to every connected peer.
func (s *Server) Push(msg types.ServerMessage) error {
	frame, err := ws.EncodeEvent(msg.Event, msg.Args...)
	if err != nil {
		return err
	}
	return s.send(Broadcast{Frame: frame})
}

// PushRaw broadcasts a frame as-is, for malformed-input tests.
func (s *Server) PushRaw(frame string) error {
	return s.send(Broadcast{Frame: []byte(frame)})
}

// Ping sends an engine-level heartbeat to every peer.
func (s *Server) Ping() error {
	return s.send(Broadcast{Frame: ws.FramePing})
}

// KickAll drops every connection without a close handshake.
func (s *Server) KickAll() error {
	return s.send(KickAll{})
}

func (s *Server) Received() <-chan ClientEvent { return s.received }

func (s *Server) Pongs() int64 { return s.pongs.Load() }

// Peers reports how many clients are registered.
func (s *Server) Peers(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := s.send(CountPeers{Reply: reply}); err != nil {
		return 0, err
	}
	select {
	case n := <-reply:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-s.hub.Done():
		return 0, ErrStopped
	}
}

func (s *Server) send(m HubMsg) error {
	select {
	case s.hub.Inbox() <- m:
		return nil
	case <-s.hub.Done():
		return ErrStopped
	}
}

// Close stops the hub, which drops every peer, then the HTTP listener.
func (s *Server) Close() error {
	err := s.send(ShutdownHub{})
	if errors.Is(err, ErrStopped) {
		err = nil
	}
	if s.http != nil {
		s.http.CloseClientConnections()
		s.http.Close()
	}
	return err
}
