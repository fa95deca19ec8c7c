package fakeserver

import (
	"context"
)

type HubMsg interface{ isHubMsg() }

// Peer is one connected client as the server sees it.
type Peer struct {
	ID   string
	Send chan []byte // frames queued for this peer's writer
}

type Register struct {
	Peer *Peer
}

type Unregister struct {
	ID string
}

type Broadcast struct {
	Frame []byte
}

// KickAll closes every peer's send queue, which tears their sockets down.
type KickAll struct{}

type CountPeers struct {
	Reply chan int
}

type ShutdownHub struct{}

func (Register) isHubMsg()    {}
func (Unregister) isHubMsg()  {}
func (Broadcast) isHubMsg()   {}
func (KickAll) isHubMsg()     {}
func (CountPeers) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox  chan HubMsg
	peers  map[string]*Peer
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		peers:  make(map[string]*Peer),
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.dropAll()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Register:
				h.peers[msg.Peer.ID] = msg.Peer

			case Unregister:
				if p, ok := h.peers[msg.ID]; ok {
					close(p.Send)
					delete(h.peers, msg.ID)
				}

			case Broadcast:
				for id, p := range h.peers {
					select {
					case p.Send <- msg.Frame:
						//ok
					default:
						// Peer is slow/full - drop it.
						close(p.Send)
						delete(h.peers, id)
					}
				}

			case KickAll:
				h.dropAll()

			case CountPeers:
				msg.Reply <- len(h.peers)

			case ShutdownHub:
				h.dropAll()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) dropAll() {
	for id, p := range h.peers {
		close(p.Send)
		delete(h.peers, id)
	}
}
