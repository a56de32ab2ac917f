package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/publication-rag/config"
	"go.uber.org/zap/zaptest"
)

func testConfig() *config.Config {
	cfg := &config.Config{Environment: "test"}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.ReadTimeout = 5 * time.Second
	cfg.Server.WriteTimeout = 10 * time.Second
	cfg.Server.ShutdownTimeout = 5 * time.Second
	return cfg
}

func memoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("VECTOR_STORE", "memory")
	t.Setenv("PROVIDER", "mock")
	t.Setenv("EMBEDDING_DIMENSIONS", "8")
	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("PORT", "0")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("MCP_TRANSPORT", "stdio")
}

func TestNewHTTPServer(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = 9000

	srv := newHTTPServer(cfg, http.NotFoundHandler())
	assert.Equal(t, "127.0.0.1:9000", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadTimeout)
	assert.Equal(t, 10*time.Second, srv.WriteTimeout)
}

func TestServe_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, newHTTPServer(testConfig(), handler), ln, testConfig(), zaptest.NewLogger(t))
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_TLSMissingCertificate(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Server.TLS.Enabled = true
	cfg.Server.TLS.CertFile = "does-not-exist.pem"
	cfg.Server.TLS.KeyFile = "does-not-exist.pem"

	err = serve(context.Background(), newHTTPServer(cfg, http.NotFoundHandler()), ln, cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server error")
}

func TestRun(t *testing.T) {
	t.Run("starts and stops with the memory store", func(t *testing.T) {
		memoryEnv(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.NoError(t, run(ctx))
	})

	t.Run("invalid config", func(t *testing.T) {
		memoryEnv(t)
		t.Setenv("VECTOR_STORE", "qdrant")

		err := run(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load config")
	})

	t.Run("invalid log level", func(t *testing.T) {
		memoryEnv(t)
		t.Setenv("LOG_LEVEL", "verbose")

		err := run(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize logger")
	})
}
