package chart

import (
	"bytes"
	"testing"
	"time"

	"crypto-advisor/internal/types"

	"github.com/pkg/errors"
)

func history(prices ...float64) []types.PricePoint {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	points := make([]types.PricePoint, 0, len(prices))
	for i, p := range prices {
		points = append(points, types.PricePoint{Timestamp: start.AddDate(0, 0, i).Unix(), Price: p})
	}
	return points
}

func TestRenderProducesPNG(t *testing.T) {
	asset := types.NewAsset("bitcoin", "Bitcoin", "BTC")
	asset.PriceHistory = history(60000, 61000, 59500, 62000, 63000)

	for _, theme := range []Theme{ThemeDark, ThemeLight} {
		png, err := Render(asset, Options{Theme: theme, Locale: "es", Width: 600, Height: 300})
		if err != nil {
			t.Fatalf("%s: %v", theme, err)
		}
		if !bytes.HasPrefix(png, []byte("\x89PNG")) {
			t.Fatalf("%s: output is not a PNG", theme)
		}
	}
}

func TestRenderFlatSeries(t *testing.T) {
	asset := types.NewAsset("tether", "Tether", "USDT")
	asset.PriceHistory = history(1, 1, 1)
	if _, err := Render(asset, Options{}); err != nil {
		t.Fatal(err)
	}
}

func TestRenderNeedsTwoPoints(t *testing.T) {
	asset := types.NewAsset("bitcoin", "Bitcoin", "BTC")
	asset.PriceHistory = history(60000)
	if _, err := Render(asset, Options{}); !errors.Is(err, ErrNotEnoughData) {
		t.Fatalf("err = %v", err)
	}
}

func TestDayLabel(t *testing.T) {
	day := time.Date(2024, 8, 3, 0, 0, 0, 0, time.UTC)
	tests := map[string]string{"es": "03-ago", "en": "03-Aug", "fr": "03-Aug", "ES": "03-ago"}
	for locale, want := range tests {
		if got := DayLabel(day, locale); got != want {
			t.Errorf("DayLabel(%s) = %s, want %s", locale, got, want)
		}
	}
}
