package market

import (
	"context"
	"strings"
	"time"

	"crypto-advisor/internal/types"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	maxSuggestions   = 7
	minSuggestionLen = 2
	historyDays      = 30
)

// Quote is the current market data of a single asset in USD
type Quote struct {
	Price                 *float64
	PriceChange24hPercent *float64
	MarketCap             *float64
	Volume24h             *float64
}

// Provider is a remote market-data API
type Provider interface {
	Search(ctx context.Context, query string) ([]types.Suggestion, error)
	Details(ctx context.Context, id string) (Quote, error)
	History(ctx context.Context, id string, days int) ([]types.PricePoint, error)
}

// RateLimitError is returned when the market-data API answered 429
type RateLimitError struct {
	Op      string
	Message string
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// IsRateLimited reports whether err carries a *RateLimitError
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// Client implements search and refresh contracts on top of a Provider
type Client struct {
	provider Provider
	now      func() time.Time
	logger   *log.Entry
}

func NewClient(provider Provider) *Client {
	return &Client{
		provider: provider,
		now:      time.Now,
		logger:   log.WithField("component", "market"),
	}
}

// Suggestions returns up to seven ranked candidates for typeahead use
func (c *Client) Suggestions(ctx context.Context, query string) ([]types.Suggestion, error) {
	query = strings.TrimSpace(query)
	if len(query) < minSuggestionLen {
		return nil, nil
	}

	results, err := c.provider.Search(ctx, query)
	if err != nil {
		if IsRateLimited(err) {
			c.logger.Warnf("rate limit hit fetching suggestions for %q", query)
			return nil, err
		}
		c.logger.Errorf("error fetching suggestions for %q: %v", query, err)
		return nil, nil
	}

	if len(results) > maxSuggestions {
		results = results[:maxSuggestions]
	}
	suggestions := make([]types.Suggestion, 0, len(results))
	for _, r := range results {
		r.Symbol = strings.ToUpper(r.Symbol)
		suggestions = append(suggestions, r)
	}
	return suggestions, nil
}

// Search returns the best candidate for query: exact ticker, exact name, else the first one
func (c *Client) Search(ctx context.Context, query string) (*types.Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	suggestions, err := c.Suggestions(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(suggestions) == 0 {
		return nil, nil
	}

	for i := range suggestions {
		if strings.EqualFold(suggestions[i].Symbol, query) {
			return &suggestions[i], nil
		}
	}
	for i := range suggestions {
		if strings.EqualFold(suggestions[i].Name, query) {
			return &suggestions[i], nil
		}
	}
	return &suggestions[0], nil
}

// Refresh fetches fresh market data for prev. The bool reports whether the
// primary price was retrieved; when false, prev is returned untouched. Only a
// rate limit on the primary call escapes as an error.
func (c *Client) Refresh(ctx context.Context, prev types.Asset) (types.Asset, bool, error) {
	name := prev.Name
	if name == "" {
		name = prev.ID
	}

	quote, err := c.provider.Details(ctx, prev.ID)
	if err != nil {
		if IsRateLimited(err) {
			c.logger.Warnf("rate limit hit fetching market data for %s", name)
			return prev, false, err
		}
		c.logger.Errorf("error fetching market data for %s: %v", name, err)
		return prev, false, nil
	}
	if quote.Price == nil {
		c.logger.Errorf("market data or current price missing for %s", name)
		return prev, false, nil
	}

	updated := prev
	updated.CurrentPrice = *quote.Price
	if quote.PriceChange24hPercent != nil {
		updated.PriceChange24hPercent = *quote.PriceChange24hPercent
	}
	if quote.MarketCap != nil {
		updated.MarketCap = *quote.MarketCap
	}
	if quote.Volume24h != nil {
		updated.Volume24h = *quote.Volume24h
	}

	updated.PriceHistory = []types.PricePoint{}
	history, err := c.provider.History(ctx, prev.ID, historyDays)
	switch {
	case err != nil && IsRateLimited(err):
		c.logger.Warnf("rate limit hit fetching price history for %s, using market data only", name)
	case err != nil:
		c.logger.Warnf("error fetching price history for %s: %v", name, err)
	case len(history) == 0:
		c.logger.Warnf("price history for %s returned no data", name)
	default:
		updated.PriceHistory = history
	}

	now := c.now()
	updated.LastUpdated = &now
	return updated, true, nil
}
