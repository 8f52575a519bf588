package advice

import (
	"fmt"
	"strings"

	"crypto-advisor/internal/types"

	"github.com/dustin/go-humanize"
)

// BuildPrompt renders the daily-chart analysis request for asset
func BuildPrompt(asset types.Asset) string {
	decimals := 2
	if asset.Symbol == "DOGE" || asset.Symbol == "ADA" || asset.CurrentPrice < 0.1 {
		decimals = 4
	}

	trend := "Detailed daily price trend history is not available."
	if len(asset.PriceHistory) > 1 {
		trend = fmt.Sprintf("Price moved from about $%.2f to $%.2f (USD) over the recent period (last 30 days, daily data).",
			asset.PriceHistory[0].Price, asset.CurrentPrice)
	}

	history := "Not enough historical data for a detailed summary."
	if len(asset.PriceHistory) > 5 {
		recent := asset.PriceHistory[len(asset.PriceHistory)-5:]
		points := make([]string, 0, len(recent))
		for _, p := range recent {
			points = append(points, fmt.Sprintf("$%.2f", p.Price))
		}
		history = "Recent daily closes (USD): " + strings.Join(points, ", ") + "."
	}

	var sb strings.Builder
	sb.WriteString("You are an elite financial advisor and seasoned trader. ")
	sb.WriteString(fmt.Sprintf("Analyse %s (%s) and decide whether the current moment favours a speculative BUY or SELL, ", asset.Name, asset.Symbol))
	sb.WriteString("focusing mainly on the DAILY chart.\n\n")

	sb.WriteString("Current market data:\n")
	sb.WriteString(fmt.Sprintf("- Price: $%.*f USD\n", decimals, asset.CurrentPrice))
	sb.WriteString(fmt.Sprintf("- 24h change: %.2f%%\n", asset.PriceChange24hPercent))
	sb.WriteString(fmt.Sprintf("- 24h volume: $%s USD\n", humanize.Commaf(asset.Volume24h)))
	sb.WriteString(fmt.Sprintf("- Market cap: $%s USD\n", humanize.Commaf(asset.MarketCap)))
	sb.WriteString(fmt.Sprintf("- Recent trend (daily data): %s\n", trend))
	sb.WriteString(fmt.Sprintf("- Price history summary (daily data): %s\n\n", history))

	sb.WriteString("Consider daily support and resistance, classic chart patterns, conceptual 20/50/200 day moving averages, ")
	sb.WriteString("momentum divergences (RSI, MACD), volume confirmation, confluence of signals and buyside/sellside liquidity. ")
	sb.WriteString("Keep a stable stance unless the daily chart changes significantly.\n\n")

	sb.WriteString(fmt.Sprintf("Your COMPLETE reply MUST start with exactly one of: %q, %q or %q. ", TokenBuy, TokenSell, TokenHold))
	sb.WriteString("Use the hold keyword only when the daily picture is truly neutral, and explain what would change your view. ")
	sb.WriteString("Do not start with \"INFO:\".\n")
	sb.WriteString("After the keyword write a plain 1-2 sentence summary for a beginner, ")
	sb.WriteString(fmt.Sprintf("then the exact separator %q, then the advanced technical analysis.\n", DetailSeparator))
	sb.WriteString("Do not mention that you are limited to the data provided.\n")

	return sb.String()
}
