package market

import (
	"context"
	"reflect"
	"testing"
	"time"

	"crypto-advisor/internal/types"

	"github.com/pkg/errors"
)

type fakeProvider struct {
	suggestions []types.Suggestion
	searchErr   error
	quote       Quote
	detailsErr  error
	history     []types.PricePoint
	historyErr  error
	searches    int
}

func (f *fakeProvider) Search(context.Context, string) ([]types.Suggestion, error) {
	f.searches++
	return f.suggestions, f.searchErr
}

func (f *fakeProvider) Details(context.Context, string) (Quote, error) {
	return f.quote, f.detailsErr
}

func (f *fakeProvider) History(context.Context, string, int) ([]types.PricePoint, error) {
	return f.history, f.historyErr
}

func float(v float64) *float64 { return &v }

func TestSuggestions(t *testing.T) {
	many := make([]types.Suggestion, 10)
	for i := range many {
		many[i] = types.Suggestion{ID: string(rune('a' + i)), Symbol: "sym"}
	}

	tests := []struct {
		name     string
		query    string
		provider *fakeProvider
		want     int
		calls    int
		rateErr  bool
	}{
		{name: "short query skips remote call", query: " b ", provider: &fakeProvider{suggestions: many}, want: 0, calls: 0},
		{name: "truncated to seven", query: "bitcoin", provider: &fakeProvider{suggestions: many}, want: 7, calls: 1},
		{name: "generic error degrades to empty", query: "bitcoin", provider: &fakeProvider{searchErr: errors.New("boom")}, want: 0, calls: 1},
		{name: "rate limit propagates", query: "bitcoin", provider: &fakeProvider{searchErr: rateLimitError("suggestions")}, want: 0, calls: 1, rateErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.provider)
			got, err := c.Suggestions(context.Background(), tt.query)
			if tt.rateErr != IsRateLimited(err) {
				t.Fatalf("rate limited = %v, want %v (err %v)", IsRateLimited(err), tt.rateErr, err)
			}
			if !tt.rateErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d suggestions, want %d", len(got), tt.want)
			}
			if tt.provider.searches != tt.calls {
				t.Errorf("remote calls = %d, want %d", tt.provider.searches, tt.calls)
			}
			for _, s := range got {
				if s.Symbol != "SYM" {
					t.Errorf("symbol not upper-cased: %q", s.Symbol)
				}
			}
		})
	}
}

func TestSearchBestMatch(t *testing.T) {
	suggestions := []types.Suggestion{
		{ID: "bitcoin-cash", Name: "Bitcoin Cash", Symbol: "bch"},
		{ID: "wrapped-bitcoin", Name: "Bitcoin", Symbol: "wbtc"},
		{ID: "bitcoin", Name: "Bitcoin Core", Symbol: "btc"},
	}

	tests := []struct {
		query string
		want  string
	}{
		{query: "BTC", want: "bitcoin"},
		{query: "bitcoin", want: "wrapped-bitcoin"},
		{query: "bitco", want: "bitcoin-cash"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c := NewClient(&fakeProvider{suggestions: suggestions})
			got, err := c.Search(context.Background(), tt.query)
			if err != nil {
				t.Fatal(err)
			}
			if got == nil || got.ID != tt.want {
				t.Fatalf("got %+v, want %s", got, tt.want)
			}
		})
	}

	c := NewClient(&fakeProvider{})
	got, err := c.Search(context.Background(), "nothing")
	if err != nil || got != nil {
		t.Fatalf("expected no match, got %+v, %v", got, err)
	}
}

func TestRefresh(t *testing.T) {
	updatedAt := time.Unix(1700000000, 0)
	prev := types.Asset{
		ID:                    "bitcoin",
		Name:                  "Bitcoin",
		Symbol:                "BTC",
		CurrentPrice:          100,
		PriceChange24hPercent: 1.5,
		Volume24h:             10,
		MarketCap:             1000,
		PriceHistory:          []types.PricePoint{{Timestamp: 1, Price: 90}},
		LastUpdated:           &updatedAt,
	}

	t.Run("primary failure returns previous record unchanged", func(t *testing.T) {
		for _, p := range []*fakeProvider{
			{detailsErr: errors.New("connection reset")},
			{quote: Quote{MarketCap: float(5)}},
		} {
			c := NewClient(p)
			got, ok, err := c.Refresh(context.Background(), prev)
			if err != nil || ok {
				t.Fatalf("ok=%v err=%v", ok, err)
			}
			if !reflect.DeepEqual(got, prev) {
				t.Fatalf("record changed: %+v", got)
			}
		}
	})

	t.Run("rate limit propagates", func(t *testing.T) {
		c := NewClient(&fakeProvider{detailsErr: rateLimitError("details")})
		_, ok, err := c.Refresh(context.Background(), prev)
		if ok || !IsRateLimited(err) {
			t.Fatalf("ok=%v err=%v", ok, err)
		}
	})

	t.Run("history failure is not fatal", func(t *testing.T) {
		c := NewClient(&fakeProvider{
			quote:      Quote{Price: float(120)},
			historyErr: rateLimitError("history"),
		})
		now := time.Unix(1800000000, 0)
		c.now = func() time.Time { return now }

		got, ok, err := c.Refresh(context.Background(), prev)
		if err != nil || !ok {
			t.Fatalf("ok=%v err=%v", ok, err)
		}
		if got.CurrentPrice != 120 || len(got.PriceHistory) != 0 {
			t.Errorf("unexpected asset: %+v", got)
		}
		if got.MarketCap != prev.MarketCap || got.Volume24h != prev.Volume24h {
			t.Errorf("missing fields should keep previous values: %+v", got)
		}
		if got.LastUpdated == nil || !got.LastUpdated.Equal(now) {
			t.Errorf("last updated = %v", got.LastUpdated)
		}
		if len(prev.PriceHistory) != 1 {
			t.Errorf("previous record mutated")
		}
	})

	t.Run("full refresh", func(t *testing.T) {
		history := []types.PricePoint{{Timestamp: 10, Price: 1}, {Timestamp: 20, Price: 2}}
		c := NewClient(&fakeProvider{
			quote:   Quote{Price: float(2), PriceChange24hPercent: float(-3), MarketCap: float(7), Volume24h: float(8)},
			history: history,
		})
		got, ok, err := c.Refresh(context.Background(), prev)
		if err != nil || !ok {
			t.Fatalf("ok=%v err=%v", ok, err)
		}
		if got.PriceChange24hPercent != -3 || got.MarketCap != 7 || got.Volume24h != 8 {
			t.Errorf("unexpected quote fields: %+v", got)
		}
		if !reflect.DeepEqual(got.PriceHistory, history) {
			t.Errorf("history = %+v", got.PriceHistory)
		}
	})
}
