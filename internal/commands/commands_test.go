package commands

import (
	"os"
	"strings"
	"testing"
	"time"

	"crypto-advisor/internal/chart"
	"crypto-advisor/internal/poller"
	"crypto-advisor/internal/types"
	"crypto-advisor/lib/translation"
)

func TestMain(m *testing.M) {
	translation.Configure("../../locales", "en")
	os.Exit(m.Run())
}

func refreshedAsset() types.Asset {
	a := types.NewAsset("bitcoin", "Bitcoin", "BTC")
	now := time.Now()
	a.CurrentPrice = 64123.45
	a.PriceChange24hPercent = -1.5
	a.Volume24h = 1234567
	a.MarketCap = 0
	a.LastUpdated = &now
	a.PriceHistory = []types.PricePoint{{Timestamp: now.Unix() - 86400, Price: 63000}, {Timestamp: now.Unix(), Price: 64123.45}}
	return a
}

func TestCommandPrice(t *testing.T) {
	got := CommandPrice(refreshedAsset())
	for _, want := range []string{"*Bitcoin* \\(BTC\\)", "*$64,123\\.45*", "*\\-1\\.50%*", "*$1,234,567*", "*$N/A*"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}

	if got := CommandPrice(types.NewAsset("bitcoin", "Bitcoin", "BTC")); !strings.Contains(got, "No market data yet") {
		t.Errorf("placeholder asset rendered as %q", got)
	}
}

func TestCommandAdvice(t *testing.T) {
	if got := CommandAdvice(nil); !strings.Contains(got, "No recommendation yet") {
		t.Fatalf("got %q", got)
	}

	rec := &types.Recommendation{
		Asset:          refreshedAsset(),
		Classification: types.Buy,
		Summary:        "Strong momentum.",
		Detail:         "RSI (14) is 61.",
	}
	got := CommandAdvice(rec)
	for _, want := range []string{"🟢 *Buy* \\- Bitcoin", "Strong momentum\\.", "*Technical details*", "RSI \\(14\\) is 61\\."} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}

	rec.Detail = ""
	if strings.Contains(CommandAdvice(rec), "Technical details") {
		t.Error("detail header rendered without detail")
	}
}

func TestCommandAlertList(t *testing.T) {
	if got := CommandAlertList(nil); got != "You have no alerts\\." {
		t.Fatalf("got %q", got)
	}

	triggeredAt := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	alerts := []types.Alert{
		{ID: "old", AssetName: "Bitcoin", AssetSymbol: "BTC", TargetPrice: 60000, Condition: types.PriceDropsTo, TriggeredAt: &triggeredAt},
		{ID: "new", AssetName: "Bitcoin", AssetSymbol: "BTC", TargetPrice: 70000, Condition: types.PriceRisesTo, IsActive: true},
	}
	got := CommandAlertList(alerts)
	if strings.Index(got, "`new`") > strings.Index(got, "`old`") {
		t.Errorf("active alerts must be listed first:\n%s", got)
	}
	for _, want := range []string{"rises to $70,000\\.00", "falls to $60,000\\.00, triggered 2024\\-05\\-01 10:30"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestCommandStatus(t *testing.T) {
	s := poller.Snapshot{
		Tracked:         []types.Asset{refreshedAsset()},
		GlobalError:     "Limit reached.",
		CooldownActive:  true,
		CooldownReason:  "Limit reached.",
		Countdown:       "Retrying in 12s...",
		AdviceAvailable: false,
		Triggered:       []types.Alert{{ID: "a1", AssetName: "Bitcoin", AssetSymbol: "BTC", TargetPrice: 60000}},
		ActiveAlerts:    []types.Alert{{ID: "a2"}, {ID: "a3"}},
	}
	got := CommandStatus(s)
	for _, want := range []string{"⚠️ Limit reached\\. Retrying in 12s\\.\\.\\.", "*Bitcoin*", "Active alerts: 2", "AI advisor is disabled", "*Triggered alerts:*", "`a1`"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}

	s.GlobalError = "Error updating data for Bitcoin."
	if got := CommandStatus(s); !strings.Contains(got, "Limit reached\\. Error updating data for Bitcoin\\. Retrying in 12s") {
		t.Errorf("cooldown reason missing in:\n%s", got)
	}

	if got := CommandStatus(poller.Snapshot{AdviceAvailable: true}); !strings.Contains(got, "No cryptocurrency is being tracked") {
		t.Errorf("got %q", got)
	}
}

func TestChartCache(t *testing.T) {
	renders := 0
	c := NewCharts(chart.Options{})
	c.render = func(types.Asset, chart.Options) ([]byte, error) {
		renders++
		return []byte("png"), nil
	}
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	c.cache.now = func() time.Time { return now }

	asset := refreshedAsset()
	for i := 0; i < 3; i++ {
		if _, _, err := c.CommandChart(asset); err != nil {
			t.Fatal(err)
		}
	}
	if renders != 1 {
		t.Fatalf("renders = %d, want 1", renders)
	}

	updated := asset.LastUpdated.Add(time.Minute)
	asset.LastUpdated = &updated
	c.CommandChart(asset)
	if renders != 2 {
		t.Fatalf("new data must re-render, renders = %d", renders)
	}

	now = now.Add(chartCacheTTL)
	c.CommandChart(asset)
	if renders != 3 {
		t.Fatalf("expired entry must re-render, renders = %d", renders)
	}
}

func TestChartWithoutHistory(t *testing.T) {
	c := NewCharts(chart.Options{})
	data, caption, err := c.CommandChart(types.NewAsset("bitcoin", "Bitcoin", "BTC"))
	if err != nil || data != nil || !strings.Contains(caption, "No price history") {
		t.Fatalf("got %v, %q, %v", data, caption, err)
	}
}
