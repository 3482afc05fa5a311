package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testServer(t *testing.T) (*Server, net.Listener) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(http.NotFoundHandler(), 0, time.Second, time.Second, time.Second, logger)
	return srv, ln
}

func TestServe_ShutdownHooksRunLIFO(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv, ln := testServer(t)

	var mu sync.Mutex
	var order []string
	record := func(name string) ShutdownFunc {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}
	srv.OnShutdown("first", record("first"))
	srv.OnShutdown("second", record("second"))

	workerStopped := make(chan struct{})
	srv.Go("loop", func(ctx context.Context) error {
		<-ctx.Done()
		close(workerStopped)
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.serve(ctx, ln) }()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	<-workerStopped
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestServe_WorkerErrorStopsServer(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv, ln := testServer(t)
	boom := errors.New("consumer group missing")
	srv.Go("broken", func(context.Context) error { return boom })

	err := srv.serve(context.Background(), ln)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
