package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/quiz-client/internal/countdown"
	"github.com/DoyleJ11/quiz-client/internal/engine"
	"github.com/DoyleJ11/quiz-client/internal/types"
)

type Msg interface{ isSessionMsg() }

type FromServer struct {
	Input engine.Input
}

func (FromServer) isSessionMsg() {}

// FromUser carries a user intent. Reply, if set, receives the rejection
// error (or nil).
type FromUser struct {
	Input engine.Input
	Reply chan error
}

func (FromUser) isSessionMsg() {}

type Subscribe struct {
	ID     string
	Outbox chan View // where the renderer wants to receive views
}

func (Subscribe) isSessionMsg() {}

type Unsubscribe struct{ ID string }

func (Unsubscribe) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

// View is everything a renderer needs for one frame.
type View struct {
	Version   int
	State     engine.State
	Panels    engine.Panels
	Remaining int // seconds left on the active question

	Subscribers int
}

// Emitter sends outbound events to the server.
type Emitter interface {
	Emit(msg types.ClientMessage) error
}

// Timer is the countdown the session drives.
type Timer interface {
	Inbox() chan<- countdown.Msg
	Updates() <-chan countdown.Reading
	Done() <-chan struct{}
}

type Session struct {
	inbox     chan Msg
	state     engine.State
	version   int
	remaining int
	subs      map[string]chan View
	emitter   Emitter
	timer     Timer
	log       *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(parent context.Context, emitter Emitter, timer Timer, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		inbox:   make(chan Msg, 64),
		state:   engine.NewEmptyState(),
		subs:    make(map[string]chan View),
		emitter: emitter,
		timer:   timer,
		log:     log.Named("session"),
		ctx:     ctx,
		cancel:  cancel,
	}

	go s.loop()
	return s
}

// Expose the inbox so tests or the console can send messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// SetEmitter swaps the outbound sink. Call it before the first delivery.
func (s *Session) SetEmitter(e Emitter) { s.emitter = e }

// Deliver implements ws.Handler. After teardown deliveries are dropped.
func (s *Session) Deliver(in engine.Input) {
	select {
	case s.inbox <- FromServer{Input: in}:
	case <-s.ctx.Done():
	}
}

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case r := <-s.timer.Updates():
			if !s.acceptReading(r) {
				break
			}
			s.remaining = r.Remaining
			s.version++
			s.broadcast()

		case m := <-s.inbox:
			switch msg := m.(type) {
			case FromServer:
				_ = s.apply(msg.Input)

			case FromUser:
				err := s.apply(msg.Input)
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case Subscribe:
				// Register subscriber + send current view immediately
				s.subs[msg.ID] = msg.Outbox
				select {
				case msg.Outbox <- s.view():
				default:
				}

			case Unsubscribe:
				if ch, ok := s.subs[msg.ID]; ok {
					close(ch)
					delete(s.subs, msg.ID)
				}

			case GetState:
				msg.Reply <- s.view()

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

// acceptReading filters countdown readings that belong to an earlier
// question or arrive after the question panel is gone.
func (s *Session) acceptReading(r countdown.Reading) bool {
	if s.state.Phase != engine.PhaseInQuestion || s.state.Question == nil {
		return false
	}
	if r.Epoch != s.state.QuestionSeq {
		return false
	}
	return r.Remaining != s.remaining
}

func (s *Session) apply(in engine.Input) error {
	effects, next, err := engine.Apply(s.state, in)
	if err != nil {
		s.log.Debug("input rejected", zap.String("input", fmt.Sprintf("%T", in)), zap.Error(err))
		return err
	}

	s.state = next
	for _, e := range effects {
		s.run(e)
	}
	s.version++
	s.broadcast()
	return nil
}

func (s *Session) run(e engine.Effect) {
	switch e.Type {
	case engine.EffResetCountdown:
		// Snap in the same turn; the countdown's own reading follows.
		s.remaining = e.Seconds
		s.toTimer(countdown.Reset{Epoch: e.Epoch, Seconds: e.Seconds})

	case engine.EffHaltCountdown:
		s.toTimer(countdown.Halt{})

	default:
		msg, ok := types.FromEffect(e)
		if !ok {
			s.log.Warn("unhandled effect", zap.String("effect", string(e.Type)))
			return
		}
		if s.emitter == nil {
			s.log.Warn("no emitter, dropping", zap.String("event", msg.Event))
			return
		}
		if err := s.emitter.Emit(msg); err != nil {
			s.log.Warn("emit failed", zap.String("event", msg.Event), zap.Error(err))
			return
		}
		s.log.Debug("emitted", zap.String("event", msg.Event))
	}
}

func (s *Session) toTimer(m countdown.Msg) {
	select {
	case s.timer.Inbox() <- m:
	case <-s.ctx.Done():
	}
}

func (s *Session) view() View {
	return View{
		Version:   s.version,
		State:     s.state.Clone(),
		Panels:    engine.DerivePanels(s.state),
		Remaining: s.remaining,

		Subscribers: len(s.subs),
	}
}

func (s *Session) broadcast() {
	if len(s.subs) == 0 {
		return
	}
	v := s.view()
	for id, ch := range s.subs {
		select {
		case ch <- v:
			//ok
		default:
			// Renderer is slow/full - drop it.
			s.log.Warn("dropping slow subscriber", zap.String("subscriber", id))
			close(ch)
			delete(s.subs, id)
		}
	}
}

func (s *Session) shutdown() {
	for id, ch := range s.subs {
		close(ch) // Tell renderer no more views
		delete(s.subs, id)
	}
	// The countdown may have its own parent; stop it explicitly.
	select {
	case s.timer.Inbox() <- countdown.Shutdown{}:
	case <-s.timer.Done():
	}
	s.cancel()
}
