package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/quiz-client/internal/config"
	"github.com/DoyleJ11/quiz-client/internal/countdown"
	"github.com/DoyleJ11/quiz-client/internal/logging"
	"github.com/DoyleJ11/quiz-client/internal/session"
	"github.com/DoyleJ11/quiz-client/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Dev)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("quiz client stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	timer := countdown.New(gctx, clockwork.NewRealClock(), log)
	s := session.New(gctx, nil, timer, log)
	client := ws.NewClient(cfg.WS(), s, log)
	s.SetEmitter(client)

	views := make(chan session.View, 16)
	s.Inbox() <- session.Subscribe{ID: "console", Outbox: views}

	log.Info("starting quiz client", zap.String("server_url", cfg.ServerURL))

	g.Go(func() error {
		return client.Run(gctx)
	})
	g.Go(func() error {
		// Returns once the session tears down and closes the outbox.
		render(os.Stdout, views)
		return nil
	})

	// Stdin reads cannot be interrupted, so this stays outside the group.
	go func() {
		if err := runCommands(gctx, os.Stdin, os.Stdout, s, log); err != nil {
			log.Warn("reading commands", zap.Error(err))
		}
		cancel()
	}()

	err := g.Wait()
	err = multierr.Append(err, client.Close())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
