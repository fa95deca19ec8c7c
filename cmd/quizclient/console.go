package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/quiz-client/internal/engine"
	"github.com/DoyleJ11/quiz-client/internal/session"
	"github.com/DoyleJ11/quiz-client/internal/types"
)

var errQuit = errors.New("quit")
var errUsage = errors.New("usage: create | select <room> | join <name> | answer <option|number> | quit")

// Controller is the part of the session the console drives.
type Controller interface {
	CreateRoom(ctx context.Context) error
	SelectRoom(ctx context.Context, id engine.RoomID) error
	JoinRoom(ctx context.Context, username string) error
	SubmitAnswer(ctx context.Context, option string) error
	Snapshot(ctx context.Context) (session.View, error)
}

// runCommands reads one command per line until EOF, quit or ctx is done.
func runCommands(ctx context.Context, in io.Reader, out io.Writer, c Controller, log *zap.Logger) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		err := execute(ctx, c, sc.Text())
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil:
			log.Debug("command rejected", zap.Error(err))
			fmt.Fprintln(out, "!", err)
		}
	}
	return sc.Err()
}

func execute(ctx context.Context, c Controller, line string) error {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
		return nil
	case "quit", "exit":
		return errQuit
	case "create":
		return c.CreateRoom(ctx)
	case "select":
		id, err := types.ParseRoomID(arg)
		if err != nil {
			return err
		}
		return c.SelectRoom(ctx, id)
	case "join":
		return c.JoinRoom(ctx, arg)
	case "answer":
		option, err := resolveOption(ctx, c, arg)
		if err != nil {
			return err
		}
		return c.SubmitAnswer(ctx, option)
	default:
		return errUsage
	}
}

// resolveOption accepts either the option text or its 1-based number.
func resolveOption(ctx context.Context, c Controller, arg string) (string, error) {
	v, err := c.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	q := v.State.Question
	if q == nil {
		return arg, nil
	}
	for _, o := range q.Options {
		if o == arg {
			return arg, nil
		}
	}
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(q.Options) {
		return q.Options[n-1], nil
	}
	return arg, nil
}

// render prints every view until the channel closes.
func render(out io.Writer, views <-chan session.View) {
	last := ""
	for v := range views {
		frame := renderView(v)
		if frame == last {
			continue
		}
		last = frame
		fmt.Fprint(out, frame)
	}
}

func renderView(v session.View) string {
	var b strings.Builder
	p := v.Panels
	s := v.State

	b.WriteString("----\n")
	if !p.Info {
		b.WriteString("connecting...\n")
		return b.String()
	}

	if p.Lobby {
		b.WriteString("rooms:\n")
		if len(s.Rooms) == 0 {
			b.WriteString("  (none, type 'create')\n")
		}
		for _, r := range s.Rooms {
			status := "open"
			if r.IsFull {
				status = "full"
			}
			marker := " "
			if s.EditingRoom != nil && *s.EditingRoom == r.ID {
				marker = ">"
			}
			fmt.Fprintf(&b, " %s room %d [%s]\n", marker, r.ID, status)
		}
		if s.EditingRoom != nil {
			fmt.Fprintf(&b, "join room %d: type 'join <name>'\n", *s.EditingRoom)
		}
	}

	if p.Waiting {
		fmt.Fprintf(&b, "waiting in room %d as %s\n", s.Waiting.RoomID, s.Waiting.Username)
	}

	if p.Question {
		fmt.Fprintf(&b, "%s  (%ds)\n", s.Question.Text, v.Remaining)
		for i, o := range s.Question.Options {
			marker := " "
			if o == s.Selected {
				marker = "*"
			}
			fmt.Fprintf(&b, " %s %d) %s\n", marker, i+1, o)
		}
	} else if s.Phase == engine.PhaseInQuestion {
		b.WriteString("game starting...\n")
	}

	if p.Leaderboard {
		b.WriteString("final scores:\n")
		for i, r := range s.Results {
			fmt.Fprintf(&b, " %d. %s %d\n", i+1, r.Username, r.Score)
		}
	} else if s.Phase == engine.PhaseGameOver {
		b.WriteString("game over\n")
	}
	return b.String()
}
