package countdown

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const tickInterval = time.Second

type Msg interface{ isCountdownMsg() }

// Reset snaps the countdown to Seconds and restarts it. Any tick already in
// flight for the previous run is dropped.
type Reset struct {
	Epoch   uint64
	Seconds int
}

func (Reset) isCountdownMsg() {}

// SetDuration updates the configured duration without restarting.
type SetDuration struct{ Seconds int }

func (SetDuration) isCountdownMsg() {}

// Halt cancels the pending tick and freezes the displayed value.
type Halt struct{}

func (Halt) isCountdownMsg() {}

type GetState struct {
	Reply chan State
}

func (GetState) isCountdownMsg() {}

type Shutdown struct{}

func (Shutdown) isCountdownMsg() {}

type tick struct{ token uint64 }

func (tick) isCountdownMsg() {}

type State struct {
	Epoch     uint64
	Duration  int
	Remaining int
	Pending   bool
}

// Reading is published after every change to the remaining seconds.
type Reading struct {
	Epoch     uint64
	Remaining int
}

type Countdown struct {
	inbox   chan Msg
	updates chan Reading
	clock   clockwork.Clock
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc

	epoch     uint64
	duration  int
	remaining int
	token     uint64 // identifies the only tick allowed to land
	pending   clockwork.Timer
}

func New(parent context.Context, clock clockwork.Clock, log *zap.Logger) *Countdown {
	ctx, cancel := context.WithCancel(parent)

	c := &Countdown{
		inbox:   make(chan Msg, 16),
		updates: make(chan Reading, 1),
		clock:   clock,
		log:     log.Named("countdown"),
		ctx:     ctx,
		cancel:  cancel,
	}

	go c.loop()
	return c
}

func (c *Countdown) Inbox() chan<- Msg { return c.inbox }

// Updates delivers the latest reading; older unread readings are replaced.
func (c *Countdown) Updates() <-chan Reading { return c.updates }

// Done is closed once the countdown is shut down.
func (c *Countdown) Done() <-chan struct{} { return c.ctx.Done() }

func (c *Countdown) loop() {
	for {
		select {
		case <-c.ctx.Done():
			c.stopPending()
			return

		case m := <-c.inbox:
			switch msg := m.(type) {
			case Reset:
				c.stopPending()
				c.token++
				c.epoch = msg.Epoch
				c.duration = max(msg.Seconds, 0)
				c.remaining = c.duration
				c.publish()
				if c.remaining > 0 {
					c.schedule()
				}
				c.log.Debug("countdown reset",
					zap.Uint64("epoch", c.epoch),
					zap.Int("seconds", c.remaining))

			case SetDuration:
				c.duration = max(msg.Seconds, 0)

			case Halt:
				c.stopPending()
				c.token++

			case tick:
				if msg.token != c.token {
					// superseded by a reset or halt after it fired
					c.log.Debug("dropping stale tick", zap.Uint64("token", msg.token))
					break
				}
				c.pending = nil
				if c.remaining > 0 {
					c.remaining--
					c.publish()
				}
				if c.remaining > 0 {
					c.schedule()
				}

			case GetState:
				msg.Reply <- State{
					Epoch:     c.epoch,
					Duration:  c.duration,
					Remaining: c.remaining,
					Pending:   c.pending != nil,
				}

			case Shutdown:
				c.stopPending()
				c.cancel()
				return
			}
		}
	}
}

func (c *Countdown) schedule() {
	token := c.token
	c.pending = c.clock.AfterFunc(tickInterval, func() {
		select {
		case c.inbox <- tick{token: token}:
		case <-c.ctx.Done():
		}
	})
}

func (c *Countdown) stopPending() {
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

func (c *Countdown) publish() {
	r := Reading{Epoch: c.epoch, Remaining: c.remaining}
	select { // drain stale, push latest
	case <-c.updates:
	default:
	}
	c.updates <- r
}
