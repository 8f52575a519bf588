package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	platformhttp "crypto-advisor/internal/platform/http"
	"crypto-advisor/internal/types"

	"github.com/pkg/errors"
)

const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGecko is a Provider backed by the CoinGecko v3 REST API
type CoinGecko struct {
	baseURL string
	apiKey  string
	client  *platformhttp.Client
}

func NewCoinGecko(baseURL, apiKey string, client *platformhttp.Client) *CoinGecko {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	return &CoinGecko{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (g *CoinGecko) Search(ctx context.Context, query string) ([]types.Suggestion, error) {
	var result struct {
		Coins []struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Symbol string `json:"symbol"`
			Thumb  string `json:"thumb"`
		} `json:"coins"`
	}

	endpoint := "/search?query=" + url.QueryEscape(query)
	if err := g.get(ctx, "suggestions", endpoint, &result); err != nil {
		return nil, err
	}

	suggestions := make([]types.Suggestion, 0, len(result.Coins))
	for _, c := range result.Coins {
		suggestions = append(suggestions, types.Suggestion{
			ID:        c.ID,
			Name:      c.Name,
			Symbol:    c.Symbol,
			Thumbnail: c.Thumb,
		})
	}
	return suggestions, nil
}

func (g *CoinGecko) Details(ctx context.Context, id string) (Quote, error) {
	var coin struct {
		MarketData *struct {
			CurrentPrice struct {
				USD *float64 `json:"usd"`
			} `json:"current_price"`
			PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
			MarketCap                struct {
				USD *float64 `json:"usd"`
			} `json:"market_cap"`
			TotalVolume struct {
				USD *float64 `json:"usd"`
			} `json:"total_volume"`
		} `json:"market_data"`
	}

	endpoint := fmt.Sprintf("/coins/%s?localization=false&tickers=false&market_data=true&community_data=false&developer_data=false&sparkline=false",
		url.PathEscape(id))
	if err := g.get(ctx, "details", endpoint, &coin); err != nil {
		return Quote{}, err
	}
	if coin.MarketData == nil {
		return Quote{}, errors.Errorf("market_data missing for %s", id)
	}

	return Quote{
		Price:                 coin.MarketData.CurrentPrice.USD,
		PriceChange24hPercent: coin.MarketData.PriceChangePercentage24h,
		MarketCap:             coin.MarketData.MarketCap.USD,
		Volume24h:             coin.MarketData.TotalVolume.USD,
	}, nil
}

func (g *CoinGecko) History(ctx context.Context, id string, days int) ([]types.PricePoint, error) {
	var chart struct {
		Prices [][2]float64 `json:"prices"`
	}

	endpoint := fmt.Sprintf("/coins/%s/market_chart?vs_currency=usd&days=%d&interval=daily", url.PathEscape(id), days)
	if err := g.get(ctx, "history", endpoint, &chart); err != nil {
		return nil, err
	}

	points := make([]types.PricePoint, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		points = append(points, types.PricePoint{
			Timestamp: int64(p[0]) / 1000,
			Price:     p[1],
		})
	}
	return points, nil
}

func (g *CoinGecko) get(ctx context.Context, op, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", g.apiKey)
	}

	resp, err := g.client.DoRequest(ctx, req)
	if err != nil {
		var statusErr *platformhttp.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.TooManyRequests() {
			return rateLimitError(op)
		}
		return errors.Wrapf(err, "GET %s", endpoint)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding %s response", op)
	}
	return nil
}

func rateLimitError(op string) *RateLimitError {
	msg := "Market data API request limit reached. Please wait a moment and try again."
	return &RateLimitError{Op: op, Message: msg}
}
