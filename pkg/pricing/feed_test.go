package pricing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeedServer(t *testing.T, status int, body func() string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "solana", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		w.WriteHeader(status)
		fmt.Fprint(w, body())
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFeedQuote(t *testing.T) {
	fresh := func() string {
		return fmt.Sprintf(`{"solana":{"usd":100,"last_updated_at":%d}}`, time.Now().Unix())
	}

	t.Run("Success And Cache", func(t *testing.T) {
		srv, hits := newFeedServer(t, http.StatusOK, fresh)
		feed, err := NewFeed(FeedConfig{URL: srv.URL, AssetID: "solana", BaseUnitsPerAsset: 1_000_000_000, MaxAge: time.Minute, CacheTTL: time.Minute})
		require.NoError(t, err)

		q, err := feed.Quote(context.Background())
		require.NoError(t, err)
		base, err := q.ToBase(10)
		require.NoError(t, err)
		assert.Equal(t, int64(1_000_000), base)

		_, err = feed.Quote(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(hits))
	})

	t.Run("Stale Price", func(t *testing.T) {
		srv, _ := newFeedServer(t, http.StatusOK, func() string {
			return fmt.Sprintf(`{"solana":{"usd":100,"last_updated_at":%d}}`, time.Now().Add(-time.Hour).Unix())
		})
		feed, err := NewFeed(FeedConfig{URL: srv.URL, AssetID: "solana", BaseUnitsPerAsset: 1_000_000_000, MaxAge: time.Minute})
		require.NoError(t, err)

		_, err = feed.Quote(context.Background())
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("Upstream Error", func(t *testing.T) {
		srv, _ := newFeedServer(t, http.StatusInternalServerError, func() string { return `{}` })
		feed, err := NewFeed(FeedConfig{URL: srv.URL, AssetID: "solana", BaseUnitsPerAsset: 1_000_000_000})
		require.NoError(t, err)

		_, err = feed.Quote(context.Background())
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("Missing Asset", func(t *testing.T) {
		srv, _ := newFeedServer(t, http.StatusOK, func() string { return `{"bitcoin":{"usd":1}}` })
		feed, err := NewFeed(FeedConfig{URL: srv.URL, AssetID: "solana", BaseUnitsPerAsset: 1_000_000_000})
		require.NoError(t, err)

		_, err = feed.Quote(context.Background())
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}
