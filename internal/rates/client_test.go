package rates

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedBody = `{
	"Valute": {
		"USD": {"Nominal": 1, "Value": 90.50},
		"JPY": {"Nominal": 100, "Value": 62.00}
	}
}`

func newTestClient(url string) *Client {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(url, time.Second, nil, time.Minute, log)
}

func TestRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	rate, err := c.Rate(context.Background(), "USD")
	require.NoError(t, err)
	assert.Equal(t, "90.50", rate.StringFixed(2))

	// nominal is per-100 units for JPY
	rate, err = c.Rate(context.Background(), "jpy")
	require.NoError(t, err)
	assert.Equal(t, "0.62", rate.StringFixed(2))
}

func TestRateUnknownCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Rate(context.Background(), "BDSS")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRateFeedErrors(t *testing.T) {
	t.Run("http error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Rate(context.Background(), "USD")
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Rate(context.Background(), "USD")
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("unreachable", func(t *testing.T) {
		_, err := newTestClient("http://127.0.0.1:1").Rate(context.Background(), "USD")
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("empty code", func(t *testing.T) {
		_, err := newTestClient("http://example.invalid").Rate(context.Background(), "")
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}
