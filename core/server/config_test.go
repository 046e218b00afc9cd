package server_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meaaditiya/portfoliomanager-sub002/core/server"
)

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("creates server from config", func(t *testing.T) {
		t.Parallel()

		cfg := server.Config{
			Addr:            ":0",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			IdleTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxHeaderBytes:  1 << 16,
		}

		srv, err := server.NewFromConfig(cfg)
		require.NoError(t, err)
		assert.NotNil(t, srv)
	})

	t.Run("requires address", func(t *testing.T) {
		t.Parallel()

		_, err := server.NewFromConfig(server.Config{})
		assert.ErrorIs(t, err, server.ErrMissingAddress)
	})

	t.Run("defaults fill zero values", func(t *testing.T) {
		t.Parallel()

		cfg := server.DefaultConfig()
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, server.DefaultReadTimeout, cfg.ReadTimeout)
		assert.Equal(t, server.DefaultWriteTimeout, cfg.WriteTimeout)
		assert.Equal(t, server.DefaultIdleTimeout, cfg.IdleTimeout)
		assert.Equal(t, server.DefaultShutdownTimeout, cfg.ShutdownTimeout)
		assert.Equal(t, server.DefaultMaxHeaderBytes, cfg.MaxHeaderBytes)
	})
}
