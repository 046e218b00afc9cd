package server_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meaaditiya/portfoliomanager-sub002/core/server"
)

func TestServerOptions(t *testing.T) {
	t.Parallel()

	t.Run("options do not panic", func(t *testing.T) {
		t.Parallel()

		srv := server.New(":0",
			server.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			server.WithShutdownTimeout(5*time.Second),
			server.WithReadTimeout(time.Second),
			server.WithWriteTimeout(time.Second),
			server.WithIdleTimeout(10*time.Second),
			server.WithMaxHeaderBytes(1<<16),
		)
		assert.NotNil(t, srv)
	})

	t.Run("stop before start is a no-op", func(t *testing.T) {
		t.Parallel()

		srv := server.New(":0")
		assert.NoError(t, srv.Stop())
	})
}
