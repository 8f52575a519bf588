package market

import (
	"context"
	"net/http"
	"time"

	"crypto-advisor/internal/types"

	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/pkg/errors"
)

var errTooManyRequests = errors.New("coinpaprika: 429 too many requests")

// CoinPaprika is a Provider backed by the official CoinPaprika client
type CoinPaprika struct {
	client *coinpaprika.Client
	now    func() time.Time
}

// NewCoinPaprika builds the provider. httpClient may be nil; its transport
// is wrapped so that 429 answers surface as rate-limit errors.
func NewCoinPaprika(httpClient *http.Client, apiProKey string) *CoinPaprika {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	wrapped := *httpClient
	next := wrapped.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	wrapped.Transport = rateLimitTransport{next: next}

	var client *coinpaprika.Client
	if apiProKey != "" {
		client = coinpaprika.NewClient(&wrapped, coinpaprika.WithAPIKey(apiProKey))
	} else {
		client = coinpaprika.NewClient(&wrapped)
	}
	return &CoinPaprika{client: client, now: time.Now}
}

func (p *CoinPaprika) Search(_ context.Context, query string) ([]types.Suggestion, error) {
	result, err := p.client.Search.Search(&coinpaprika.SearchOptions{
		Query:      query,
		Categories: "currencies",
	})
	if err != nil {
		return nil, classifyPaprikaError("suggestions", err)
	}

	suggestions := make([]types.Suggestion, 0, len(result.Currencies))
	for _, c := range result.Currencies {
		if c == nil || c.ID == nil {
			continue
		}
		suggestions = append(suggestions, types.Suggestion{
			ID:     *c.ID,
			Name:   deref(c.Name),
			Symbol: deref(c.Symbol),
		})
	}
	return suggestions, nil
}

func (p *CoinPaprika) Details(_ context.Context, id string) (Quote, error) {
	ticker, err := p.client.Tickers.GetByID(id, &coinpaprika.TickersOptions{Quotes: "USD"})
	if err != nil {
		return Quote{}, classifyPaprikaError("details", err)
	}
	if ticker == nil || ticker.Quotes == nil {
		return Quote{}, errors.Errorf("no quotes for %s", id)
	}
	usd, ok := ticker.Quotes["USD"]
	if !ok {
		return Quote{}, errors.Errorf("no USD quote for %s", id)
	}

	return Quote{
		Price:                 usd.Price,
		PriceChange24hPercent: usd.PercentChange24h,
		MarketCap:             usd.MarketCap,
		Volume24h:             usd.Volume24h,
	}, nil
}

func (p *CoinPaprika) History(_ context.Context, id string, days int) ([]types.PricePoint, error) {
	tickers, err := p.client.Tickers.GetHistoricalTickersByID(id, &coinpaprika.TickersHistoricalOptions{
		Quote:    "USD",
		Limit:    days,
		Interval: "1d",
		Start:    p.now().AddDate(0, 0, -days),
	})
	if err != nil {
		return nil, classifyPaprikaError("history", err)
	}

	points := make([]types.PricePoint, 0, len(tickers))
	for _, t := range tickers {
		if t == nil || t.Timestamp == nil || t.Price == nil {
			continue
		}
		points = append(points, types.PricePoint{
			Timestamp: t.Timestamp.Unix(),
			Price:     *t.Price,
		})
	}
	return points, nil
}

func classifyPaprikaError(op string, err error) error {
	if errors.Is(err, errTooManyRequests) {
		return rateLimitError(op)
	}
	return errors.Wrapf(err, "coinpaprika %s", op)
}

type rateLimitTransport struct {
	next http.RoundTripper
}

func (t rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return nil, errTooManyRequests
	}
	return resp, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
