package types

import (
	"strings"
	"time"
)

// PricePoint is one daily sample of an asset price history
type PricePoint struct {
	Timestamp int64   `json:"timestamp"` // unix seconds
	Price     float64 `json:"price"`
}

// Asset is a tracked cryptocurrency and its latest market snapshot
type Asset struct {
	ID                    string       `json:"id"`
	Name                  string       `json:"name"`
	Symbol                string       `json:"symbol"`
	ChartSymbol           string       `json:"chart_symbol"`
	CurrentPrice          float64      `json:"current_price"`
	PriceChange24hPercent float64      `json:"price_change_24h_percent"`
	Volume24h             float64      `json:"volume_24h"`
	MarketCap             float64      `json:"market_cap"`
	PriceHistory          []PricePoint `json:"price_history"`
	LastUpdated           *time.Time   `json:"last_updated,omitempty"`
}

// NewAsset returns a placeholder asset that has never been refreshed
func NewAsset(id, name, symbol string) Asset {
	if name == "" {
		name = id
	}
	if symbol == "" {
		symbol = id
	}
	return Asset{
		ID:           id,
		Name:         name,
		Symbol:       symbol,
		ChartSymbol:  strings.ToUpper(symbol) + "USD",
		PriceHistory: []PricePoint{},
	}
}

// HasData reports whether the asset was refreshed and carries a history
func (a Asset) HasData() bool {
	return a.LastUpdated != nil && len(a.PriceHistory) > 0
}

// Suggestion is one candidate returned by a remote search
type Suggestion struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	Thumbnail string `json:"thumb,omitempty"`
}

type AlertCondition string

const (
	PriceDropsTo AlertCondition = "PRICE_DROPS_TO"
	PriceRisesTo AlertCondition = "PRICE_RISES_TO"
)

func (c AlertCondition) Valid() bool {
	return c == PriceDropsTo || c == PriceRisesTo
}

// Alert is a user defined price threshold watch on an asset
type Alert struct {
	ID          string         `json:"id"`
	AssetID     string         `json:"crypto_id"`
	AssetName   string         `json:"crypto_name"`
	AssetSymbol string         `json:"crypto_symbol"`
	TargetPrice float64        `json:"target_price"`
	Condition   AlertCondition `json:"condition"`
	CreatedAt   time.Time      `json:"created_at"`
	IsActive    bool           `json:"is_active"`
	TriggeredAt *time.Time     `json:"triggered_at,omitempty"`
}

// Satisfied reports whether price meets the alert condition
func (a Alert) Satisfied(price float64) bool {
	switch a.Condition {
	case PriceDropsTo:
		return price <= a.TargetPrice
	case PriceRisesTo:
		return price >= a.TargetPrice
	}
	return false
}

type Classification string

const (
	Buy           Classification = "buy"
	Sell          Classification = "sell"
	Hold          Classification = "hold"
	Informational Classification = "informational"
)

// Recommendation is a classified trading suggestion computed from an asset snapshot
type Recommendation struct {
	ID             string         `json:"id"`
	Asset          Asset          `json:"asset"`
	Classification Classification `json:"classification"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	RawResponse    string         `json:"raw_response,omitempty"`
}
