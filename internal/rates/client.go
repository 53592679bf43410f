// Package rates looks up exchange rates against the central bank's
// daily-quotes feed. The ledger keeps a single unit of account; rates
// are only used to enrich balance reads, so every failure here is
// reported as ErrUnavailable and the caller degrades to the base
// currency.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

// ErrUnavailable covers timeouts, transport failures, malformed feeds
// and unknown currency codes alike.
var ErrUnavailable = errors.New("rates: conversion unavailable")

// Provider returns how many base-currency units one unit of the given
// currency costs.
type Provider interface {
	Rate(ctx context.Context, code string) (decimal.Decimal, error)
}

type quote struct {
	Nominal int64           `json:"Nominal"`
	Value   decimal.Decimal `json:"Value"`
}

type dailyFeed struct {
	Valute map[string]quote `json:"Valute"`
}

type Client struct {
	url   string
	http  *http.Client
	cache *redis.Client
	ttl   time.Duration
	log   *slog.Logger
}

// NewClient builds a rate client. cache may be nil; then every lookup
// hits the feed directly.
func NewClient(url string, timeout time.Duration, cache *redis.Client, ttl time.Duration, log *slog.Logger) *Client {
	return &Client{
		url:   url,
		http:  &http.Client{Timeout: timeout},
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

func (c *Client) Rate(ctx context.Context, code string) (decimal.Decimal, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return decimal.Decimal{}, ErrUnavailable
	}

	if r, ok := c.fromCache(ctx, code); ok {
		return r, nil
	}

	rate, err := c.fetch(ctx, code)
	if err != nil {
		return decimal.Decimal{}, err
	}
	c.store(ctx, code, rate)
	return rate, nil
}

func (c *Client) fetch(ctx context.Context, code string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("%w: feed returned %d", ErrUnavailable, resp.StatusCode)
	}

	var feed dailyFeed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	q, ok := feed.Valute[code]
	if !ok || q.Nominal <= 0 || !q.Value.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: no quote for %s", ErrUnavailable, code)
	}
	return q.Value.Div(decimal.NewFromInt(q.Nominal)), nil
}

func (c *Client) fromCache(ctx context.Context, code string) (decimal.Decimal, bool) {
	if c.cache == nil {
		return decimal.Decimal{}, false
	}
	val, err := c.cache.Get(ctx, cacheKey(code)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("rate cache read failed", "code", code, "err", err)
		}
		return decimal.Decimal{}, false
	}
	rate, err := decimal.NewFromString(val)
	if err != nil || !rate.IsPositive() {
		return decimal.Decimal{}, false
	}
	return rate, true
}

func (c *Client) store(ctx context.Context, code string, rate decimal.Decimal) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, cacheKey(code), rate.String(), c.ttl).Err(); err != nil {
		c.log.Warn("rate cache write failed", "code", code, "err", err)
	}
}

func cacheKey(code string) string { return "rates:" + code }
