package helpers

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func EscapeMarkdownV2(text string) string {
	charactersToEscape := []string{"\\", ".", "-", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "=", "|", "{", "}", "!"}

	for _, char := range charactersToEscape {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}
	return text
}

// PriceDecimals is the number of decimals a price of the given asset is shown with
func PriceDecimals(price float64, symbol string) int {
	symbol = strings.ToUpper(symbol)
	switch {
	case price == 0:
		return 2
	case price < 0.000001:
		return 8
	case price < 0.001:
		return 6
	case symbol == "DOGE" || symbol == "ADA" || price < 1:
		return 4
	}
	return 2
}

// FormatPriceUS formats price with US thousand separators
func FormatPriceUS(price float64, symbol string, escapeMarkdown bool) string {
	p := message.NewPrinter(language.English)
	formatted := p.Sprintf("%.*f", PriceDecimals(price, symbol), price)

	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}

// FormatAmountUS formats a rounded amount such as volume or market cap, N/A when unknown
func FormatAmountUS(amount float64, escapeMarkdown bool) string {
	formatted := "N/A"
	if amount > 0 {
		p := message.NewPrinter(language.English)
		formatted = p.Sprintf("%d", int64(amount+0.5))
	}

	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}

// FormatPercent renders a signed percentage with two decimals
func FormatPercent(pct float64, escapeMarkdown bool) string {
	formatted := fmt.Sprintf("%+.2f%%", pct)

	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}
