package session

import (
	"context"
	"errors"

	"github.com/DoyleJ11/quiz-client/internal/engine"
)

var ErrClosed = errors.New("session closed")

// Do sends a user intent and waits for the session to accept or reject it.
func (s *Session) Do(ctx context.Context, in engine.Input) error {
	reply := make(chan error, 1)
	select {
	case s.inbox <- FromUser{Input: in, Reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrClosed
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrClosed
	}
}

func (s *Session) CreateRoom(ctx context.Context) error {
	return s.Do(ctx, engine.CreateRoom{})
}

// SelectRoom opens the inline username form for a room in the lobby.
func (s *Session) SelectRoom(ctx context.Context, id engine.RoomID) error {
	return s.Do(ctx, engine.SelectRoom{RoomID: id})
}

// JoinRoom joins the selected room. It is rejected without a selection or
// with a blank username.
func (s *Session) JoinRoom(ctx context.Context, username string) error {
	return s.Do(ctx, engine.JoinRoom{Username: username})
}

func (s *Session) SubmitAnswer(ctx context.Context, option string) error {
	return s.Do(ctx, engine.SubmitAnswer{Option: option})
}

func (s *Session) Snapshot(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case s.inbox <- GetState{Reply: reply}:
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-s.ctx.Done():
		return View{}, ErrClosed
	}

	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-s.ctx.Done():
		return View{}, ErrClosed
	}
}
