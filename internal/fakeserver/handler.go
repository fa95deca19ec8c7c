package fakeserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/quiz-client/internal/ws"
)

var errExpectedConnect = errors.New("expected namespace connect")

// ClientEvent is one event a connected client emitted.
type ClientEvent struct {
	PeerID string
	Event  string
	Args   []json.RawMessage
}

func Handler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.CloseNow()

		peer := &Peer{ID: uuid.NewString(), Send: make(chan []byte, 16)}
		log := s.log.With(zap.String("peer_id", peer.ID))

		if err := s.handshake(r.Context(), conn, peer.ID); err != nil {
			log.Debug("handshake failed", zap.Error(err))
			return
		}

		if err := s.send(Register{Peer: peer}); err != nil {
			return
		}
		defer func() { _ = s.send(Unregister{ID: peer.ID}) }()

		// Writer goroutine
		go func() {
			defer conn.CloseNow() // queue closed by hub: drop the socket
			for frame := range peer.Send {
				ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
				err := conn.Write(ctx, websocket.MessageText, frame)
				cancel()
				if err != nil {
					return
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				return
			}

			pkt, err := ws.DecodePacket(data)
			if err != nil {
				log.Debug("bad frame from client", zap.Error(err))
				continue
			}

			switch pkt.Kind {
			case ws.PacketPong:
				s.pongs.Add(1)
			case ws.PacketDisconnect:
				// Let the websocket close handshake finish the read loop.
				log.Debug("client left namespace")
			case ws.PacketClose:
				return
			case ws.PacketEvent:
				select {
				case s.received <- ClientEvent{PeerID: peer.ID, Event: pkt.Event, Args: pkt.Args}:
				case <-r.Context().Done():
					return
				}
			}
		}
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn, sid string) error {
	open, err := ws.EncodeOpen(ws.Handshake{
		SID:          sid,
		PingInterval: int(s.opts.PingInterval / time.Millisecond),
		PingTimeout:  int(s.opts.PingTimeout / time.Millisecond),
		MaxPayload:   1 << 20,
	})
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, open); err != nil {
		return err
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		return err
	}
	if pkt, err := ws.DecodePacket(data); err != nil || pkt.Kind != ws.PacketConnect {
		_ = conn.Write(ctx, websocket.MessageText, []byte(`44{"message":"expected namespace connect"}`))
		return errExpectedConnect
	}

	ack, err := ws.EncodeConnectAck(sid)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, ack)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
