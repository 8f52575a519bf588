package commands

import (
	"fmt"

	"crypto-advisor/internal/types"
	"crypto-advisor/lib/helpers"
	"crypto-advisor/lib/translation"

	"github.com/dustin/go-humanize"
)

// CommandPrice renders the market snapshot of asset
func CommandPrice(asset types.Asset) string {
	name := helpers.EscapeMarkdownV2(asset.Name)
	symbol := helpers.EscapeMarkdownV2(asset.Symbol)

	if asset.LastUpdated == nil {
		return fmt.Sprintf(translation.Translate("asset_not_refreshed"), name, symbol)
	}

	return fmt.Sprintf(translation.Translate("asset_summary"),
		name,
		symbol,
		helpers.FormatPriceUS(asset.CurrentPrice, asset.Symbol, true),
		helpers.FormatPercent(asset.PriceChange24hPercent, true),
		helpers.FormatAmountUS(asset.Volume24h, true),
		helpers.FormatAmountUS(asset.MarketCap, true),
		helpers.EscapeMarkdownV2(humanize.Time(*asset.LastUpdated)),
	)
}

// CommandSuggestions renders a typeahead result header
func CommandSuggestions(query string, suggestions []types.Suggestion) string {
	if len(suggestions) == 0 {
		return helpers.EscapeMarkdownV2(fmt.Sprintf(translation.Translate("no_suggestions"), query))
	}
	return helpers.EscapeMarkdownV2(fmt.Sprintf(translation.Translate("suggestions_header"), len(suggestions), query))
}

// SuggestionLabel is the button text of one suggestion
func SuggestionLabel(s types.Suggestion) string {
	return fmt.Sprintf(translation.Translate("coin_display_format"), s.Name, s.Symbol)
}
