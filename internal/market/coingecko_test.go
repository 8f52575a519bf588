package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	platformhttp "crypto-advisor/internal/platform/http"
)

func newTestCoinGecko(t *testing.T, handler http.HandlerFunc) *CoinGecko {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := platformhttp.NewClient(platformhttp.ClientOptions{
		Timeout:         2 * time.Second,
		RequestsPerSec:  100,
		MaxRetryTimeout: 50 * time.Millisecond,
	})
	return NewCoinGecko(srv.URL, "demo-key", client)
}

func TestCoinGeckoSearch(t *testing.T) {
	g := newTestCoinGecko(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" || r.URL.Query().Get("query") != "sol ana" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		if r.Header.Get("x-cg-demo-api-key") != "demo-key" {
			t.Errorf("api key header missing")
		}
		w.Write([]byte(`{"coins":[{"id":"solana","name":"Solana","symbol":"sol","thumb":"t.png"}]}`))
	})

	got, err := g.Search(context.Background(), "sol ana")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "solana" || got[0].Thumbnail != "t.png" {
		t.Fatalf("got %+v", got)
	}
}

func TestCoinGeckoDetailsAndHistory(t *testing.T) {
	g := newTestCoinGecko(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/coins/bitcoin":
			if r.URL.Query().Get("market_data") != "true" {
				t.Errorf("market_data flag missing")
			}
			w.Write([]byte(`{"market_data":{"current_price":{"usd":65000.5},"price_change_percentage_24h":-2.25,"market_cap":{"usd":1.2e12},"total_volume":{"usd":3.4e10}}}`))
		case "/coins/bitcoin/market_chart":
			q := r.URL.Query()
			if q.Get("vs_currency") != "usd" || q.Get("days") != "30" || q.Get("interval") != "daily" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			w.Write([]byte(`{"prices":[[1700000000000,64000.1],[1700086400000,65000.5]]}`))
		default:
			http.NotFound(w, r)
		}
	})

	q, err := g.Details(context.Background(), "bitcoin")
	if err != nil {
		t.Fatal(err)
	}
	if q.Price == nil || *q.Price != 65000.5 || *q.PriceChange24hPercent != -2.25 || *q.MarketCap != 1.2e12 || *q.Volume24h != 3.4e10 {
		t.Fatalf("unexpected quote %+v", q)
	}

	points, err := g.History(context.Background(), "bitcoin", 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 || points[0].Timestamp != 1700000000 || points[1].Price != 65000.5 {
		t.Fatalf("unexpected history %+v", points)
	}
}

func TestCoinGeckoRateLimit(t *testing.T) {
	calls := 0
	g := newTestCoinGecko(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := g.Details(context.Background(), "bitcoin")
	if !IsRateLimited(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("429 must not be retried, got %d calls", calls)
	}

	c := NewClient(g)
	if _, err := c.Suggestions(context.Background(), "btc"); !IsRateLimited(err) {
		t.Fatalf("suggestions: expected rate limit error, got %v", err)
	}
}

func TestCoinGeckoServerErrorDegrades(t *testing.T) {
	g := newTestCoinGecko(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	c := NewClient(g)
	got, err := c.Suggestions(context.Background(), "btc")
	if err != nil || len(got) != 0 {
		t.Fatalf("expected silent empty result, got %+v, %v", got, err)
	}
}
