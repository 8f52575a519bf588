package commands

import (
	"fmt"
	"strings"

	"crypto-advisor/internal/types"
	"crypto-advisor/lib/helpers"
	"crypto-advisor/lib/translation"
)

var classificationIcons = map[types.Classification]string{
	types.Buy:           "🟢",
	types.Sell:          "🔴",
	types.Hold:          "🟡",
	types.Informational: "ℹ️",
}

var classificationLabels = map[types.Classification]string{
	types.Buy:           "advice_buy",
	types.Sell:          "advice_sell",
	types.Hold:          "advice_hold",
	types.Informational: "advice_info",
}

// CommandAdvice renders a recommendation card
func CommandAdvice(rec *types.Recommendation) string {
	if rec == nil {
		return translation.Translate("no_recommendation")
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf(translation.Translate("advice_card"),
		classificationIcons[rec.Classification],
		translation.Translate(classificationLabels[rec.Classification]),
		helpers.EscapeMarkdownV2(rec.Asset.Name),
		helpers.EscapeMarkdownV2(rec.Summary),
	))

	if rec.Asset.CurrentPrice > 0 {
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf(translation.Translate("advice_reference"),
			helpers.FormatPriceUS(rec.Asset.CurrentPrice, rec.Asset.Symbol, true),
			helpers.FormatPercent(rec.Asset.PriceChange24hPercent, true),
		))
	}

	if rec.Detail != "" {
		b.WriteString("\n\n")
		b.WriteString(translation.Translate("advice_detail_header"))
		b.WriteString("\n")
		b.WriteString(helpers.EscapeMarkdownV2(rec.Detail))
	}
	return b.String()
}
