// Command server is a hand-driven quiz host for trying the client locally.
// Each stdin line pushes one server event to every connected client:
//
//	rooms 1 2 3!          room list; a trailing ! marks a room full
//	wait <room> <name>    waiting_room
//	start                 game_start
//	q <secs> <text>|<opt>|<opt>...
//	over <name>:<score>...
//	ping | kick
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/quiz-client/internal/fakeserver"
	"github.com/DoyleJ11/quiz-client/internal/logging"
	"github.com/DoyleJ11/quiz-client/internal/types"
)

var errUsage = errors.New("unknown command")

func main() {
	addr := flag.String("addr", ":3000", "listen address")
	flag.Parse()

	log, err := logging.New("debug", true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := fakeserver.New(ctx, log, fakeserver.DefaultOptions())
	httpSrv := &http.Server{Addr: *addr, Handler: fakeserver.SetupRoutes(srv)}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-srv.Received():
				log.Info("client event", zap.String("peer_id", ev.PeerID), zap.String("event", ev.Event), zap.Int("args", len(ev.Args)))
			}
		}
	}()

	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			if err := host(srv, sc.Text()); err != nil {
				log.Warn("command failed", zap.Error(err))
			}
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Close()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info("listening", zap.String("addr", *addr))
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("listen", zap.Error(err))
	}
}

func host(srv *fakeserver.Server, line string) error {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
		return nil
	case "ping":
		return srv.Ping()
	case "kick":
		return srv.KickAll()
	case "start":
		return srv.Push(types.GameStartMessage())
	case "rooms":
		var rooms []types.Room
		for _, f := range strings.Fields(arg) {
			full := strings.HasSuffix(f, "!")
			id, err := strconv.Atoi(strings.TrimSuffix(f, "!"))
			if err != nil {
				return fmt.Errorf("room %q: %w", f, err)
			}
			rooms = append(rooms, types.Room{ID: id, IsFull: full})
		}
		return srv.Push(types.RoomsMessage(rooms...))
	case "wait":
		room, name, _ := strings.Cut(arg, " ")
		id, err := strconv.Atoi(room)
		if err != nil {
			return fmt.Errorf("room %q: %w", room, err)
		}
		return srv.Push(types.WaitingRoomMessage(id, strings.TrimSpace(name)))
	case "q":
		secs, rest, _ := strings.Cut(arg, " ")
		timer, err := strconv.Atoi(secs)
		if err != nil {
			return fmt.Errorf("timer %q: %w", secs, err)
		}
		parts := strings.Split(rest, "|")
		return srv.Push(types.NewQuestionMessage(types.NewQuestionPayload{
			Question: strings.TrimSpace(parts[0]),
			Options:  parts[1:],
			Timer:    timer,
			RoomID:   1,
		}))
	case "over":
		var players []types.Player
		for _, f := range strings.Fields(arg) {
			name, score, _ := strings.Cut(f, ":")
			n, err := strconv.Atoi(score)
			if err != nil {
				return fmt.Errorf("score %q: %w", f, err)
			}
			players = append(players, types.Player{ID: uuid.NewString(), Username: name, Score: n})
		}
		return srv.Push(types.GameOverMessage(players...))
	default:
		return fmt.Errorf("%w: %s", errUsage, cmd)
	}
}
