package market

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"crypto-advisor/internal/types"
)

type paprikaReply struct {
	status int
	body   string
}

// paprikaTransport answers by the last path segment of the request
type paprikaTransport map[string]paprikaReply

func (p paprikaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	path := strings.TrimSuffix(req.URL.Path, "/")
	reply, ok := p[path[strings.LastIndex(path, "/")+1:]]
	if !ok {
		reply = paprikaReply{status: http.StatusNotFound, body: `{"error":"not found"}`}
	}
	return &http.Response{
		StatusCode: reply.status,
		Body:       io.NopCloser(strings.NewReader(reply.body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

const paprikaTicker = `{"id":"btc-bitcoin","name":"Bitcoin","symbol":"BTC",
	"quotes":{"USD":{"price":65000.5,"percent_change_24h":2.5,"market_cap":1200000000,"volume_24h":30000000}}}`

const paprikaHistory = `[{"timestamp":"2024-05-01T00:00:00Z","price":60000},{"timestamp":"2024-05-02T00:00:00Z","price":61000}]`

var tooMany = paprikaReply{status: http.StatusTooManyRequests, body: "slow down"}

func newPaprika(routes paprikaTransport) *CoinPaprika {
	p := NewCoinPaprika(&http.Client{Transport: routes}, "")
	p.now = func() time.Time { return time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC) }
	return p
}

func TestCoinPaprikaRateLimit(t *testing.T) {
	p := newPaprika(paprikaTransport{"search": tooMany, "btc-bitcoin": tooMany})
	ctx := context.Background()

	if _, err := p.Search(ctx, "bitcoin"); !IsRateLimited(err) {
		t.Errorf("search: err = %v, want rate limit", err)
	}
	if _, err := p.Details(ctx, "btc-bitcoin"); !IsRateLimited(err) {
		t.Errorf("details: err = %v, want rate limit", err)
	}

	prev := types.NewAsset("btc-bitcoin", "Bitcoin", "BTC")
	got, fresh, err := NewClient(p).Refresh(ctx, prev)
	if !IsRateLimited(err) || fresh {
		t.Fatalf("refresh: fresh = %v, err = %v", fresh, err)
	}
	if got.ID != prev.ID || got.LastUpdated != nil {
		t.Errorf("refresh changed the asset: %+v", got)
	}
}

func TestCoinPaprikaRefresh(t *testing.T) {
	tests := []struct {
		name        string
		routes      paprikaTransport
		fresh       bool
		historyLen  int
		wantPrice   float64
		rateLimited bool
	}{
		{
			name:       "full refresh",
			routes:     paprikaTransport{"btc-bitcoin": {http.StatusOK, paprikaTicker}, "historical": {http.StatusOK, paprikaHistory}},
			fresh:      true,
			historyLen: 2,
			wantPrice:  65000.5,
		},
		{
			name:      "history rate limit is not fatal",
			routes:    paprikaTransport{"btc-bitcoin": {http.StatusOK, paprikaTicker}, "historical": tooMany},
			fresh:     true,
			wantPrice: 65000.5,
		},
		{
			name:      "server error keeps the previous record",
			routes:    paprikaTransport{"btc-bitcoin": {http.StatusInternalServerError, "oops"}},
			wantPrice: 42,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := types.NewAsset("btc-bitcoin", "Bitcoin", "BTC")
			prev.CurrentPrice = 42

			got, fresh, err := NewClient(newPaprika(tt.routes)).Refresh(context.Background(), prev)
			if err != nil {
				t.Fatalf("err = %v", err)
			}
			if fresh != tt.fresh {
				t.Fatalf("fresh = %v, want %v", fresh, tt.fresh)
			}
			if got.CurrentPrice != tt.wantPrice {
				t.Errorf("price = %v, want %v", got.CurrentPrice, tt.wantPrice)
			}
			if len(got.PriceHistory) != tt.historyLen {
				t.Errorf("history = %d points, want %d", len(got.PriceHistory), tt.historyLen)
			}
			if !tt.fresh && got.LastUpdated != nil {
				t.Errorf("degraded refresh must not stamp LastUpdated")
			}
		})
	}
}

func TestCoinPaprikaSearch(t *testing.T) {
	p := newPaprika(paprikaTransport{"search": {http.StatusOK,
		`{"currencies":[{"id":"btc-bitcoin","name":"Bitcoin","symbol":"BTC"},{"name":"no id"}]}`}})

	got, err := p.Search(context.Background(), "bit")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "btc-bitcoin" || got[0].Symbol != "BTC" {
		t.Fatalf("suggestions = %+v", got)
	}
}
