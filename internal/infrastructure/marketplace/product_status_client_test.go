package marketplace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/product"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/shared"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/config"
)

type statusServer struct {
	calls   atomic.Int32
	failing atomic.Bool
	body    string
}

func (s *statusServer) start(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		assert.Equal(t, "/entity/product", r.URL.Path)
		assert.Equal(t, "article=A-1", r.URL.Query().Get("filter"))
		assert.Equal(t, "Bearer ms-token", r.Header.Get("Authorization"))
		if s.failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(s.body))
	}))
	t.Cleanup(server.Close)
	return server.URL
}

func newStatusClient(baseURL string, now *time.Time) *ProductStatusClient {
	return NewProductStatusClient(config.ProductStatusConfig{
		BaseURL:    baseURL,
		Token:      "ms-token",
		CacheTTL:   10 * time.Minute,
		RetryDelay: time.Millisecond,
	}, 5*time.Second, nil, WithStatusClock(func() time.Time { return *now }))
}

func TestProductStatusClient_Lookup(t *testing.T) {
	t.Run("found with mixed barcode shapes", func(t *testing.T) {
		srv := &statusServer{body: `{"rows":[{"barcodes":[{"ean13":"4600000000017"},"2000000000015",{"code128":"4600000000017"},46000]}]}`}
		now := time.Now()
		client := newStatusClient(srv.start(t), &now)

		status, err := client.Lookup(context.Background(), " A-1 ", false)
		require.NoError(t, err)
		assert.True(t, status.Found)
		assert.Equal(t, []string{"4600000000017", "2000000000015", "46000"}, status.Barcodes)
	})

	t.Run("not found", func(t *testing.T) {
		srv := &statusServer{body: `{"rows":[]}`}
		now := time.Now()
		client := newStatusClient(srv.start(t), &now)

		status, err := client.Lookup(context.Background(), "A-1", false)
		require.NoError(t, err)
		assert.False(t, status.Found)
		assert.Empty(t, status.Barcodes)
	})

	t.Run("caches answers until ttl unless forced", func(t *testing.T) {
		srv := &statusServer{body: `{"rows":[{"barcodes":["1"]}]}`}
		now := time.Now()
		client := newStatusClient(srv.start(t), &now)

		_, err := client.Lookup(context.Background(), "A-1", false)
		require.NoError(t, err)
		_, err = client.Lookup(context.Background(), "A-1", false)
		require.NoError(t, err)
		assert.Equal(t, int32(1), srv.calls.Load())

		_, err = client.Lookup(context.Background(), "A-1", true)
		require.NoError(t, err)
		assert.Equal(t, int32(2), srv.calls.Load())

		now = now.Add(11 * time.Minute)
		_, err = client.Lookup(context.Background(), "A-1", false)
		require.NoError(t, err)
		assert.Equal(t, int32(3), srv.calls.Load())
	})

	t.Run("retries once then falls back to the cached answer", func(t *testing.T) {
		srv := &statusServer{body: `{"rows":[{"barcodes":["1"]}]}`}
		now := time.Now()
		client := newStatusClient(srv.start(t), &now)

		_, err := client.Lookup(context.Background(), "A-1", false)
		require.NoError(t, err)

		srv.failing.Store(true)
		status, err := client.Lookup(context.Background(), "A-1", true)
		require.NoError(t, err)
		assert.Equal(t, []string{"1"}, status.Barcodes)
		assert.Equal(t, int32(3), srv.calls.Load())
	})

	t.Run("fails without a cached answer", func(t *testing.T) {
		srv := &statusServer{}
		srv.failing.Store(true)
		now := time.Now()
		client := newStatusClient(srv.start(t), &now)

		_, err := client.Lookup(context.Background(), "A-1", false)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrRemoteUnavailable)
		assert.Equal(t, int32(2), srv.calls.Load())
	})

	t.Run("disabled without token", func(t *testing.T) {
		client := NewProductStatusClient(config.ProductStatusConfig{}, time.Second, nil)
		_, err := client.Lookup(context.Background(), "A-1", false)
		assert.ErrorIs(t, err, product.ErrSourceDisabled)
	})

	t.Run("article required", func(t *testing.T) {
		client := NewProductStatusClient(config.ProductStatusConfig{Token: "t"}, time.Second, nil)
		_, err := client.Lookup(context.Background(), "  ", false)
		assert.ErrorIs(t, err, product.ErrArticleRequired)
	})
}
