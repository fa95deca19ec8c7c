package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/quiz-client/internal/fakeserver"
)

func TestHost_ParsesCommands(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := fakeserver.New(ctx, zaptest.NewLogger(t), fakeserver.DefaultOptions())
	defer srv.Close()

	for _, line := range []string{
		"", "ping", "kick", "start",
		"rooms 1 2!",
		"wait 1 ana",
		"q 10 2+2?|3|4",
		"over ana:30 bob:10",
	} {
		require.NoError(t, host(srv, line), line)
	}

	for _, line := range []string{"rooms x", "wait a ana", "q soon text|a", "over ana:lots"} {
		assert.Error(t, host(srv, line), line)
	}
	assert.True(t, errors.Is(host(srv, "dance"), errUsage))

	pctx, pcancel := context.WithTimeout(ctx, time.Second)
	defer pcancel()
	n, err := srv.Peers(pctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
