package advice

import (
	"strings"

	"crypto-advisor/internal/types"
)

const (
	TokenBuy  = "COMPRAR:"
	TokenSell = "VENDER:"
	TokenHold = "MANTENER:"

	DetailSeparator = "---DETALLES_AVANZADOS---"

	unformattedSummary = "The advisor replied, but the answer could not be formatted into a short summary. Check the full response."
)

var classificationTokens = []struct {
	token          string
	classification types.Classification
}{
	{TokenBuy, types.Buy},
	{TokenSell, types.Sell},
	{TokenHold, types.Hold},
}

// Parsed is a completion split into its classification, summary and optional detail
type Parsed struct {
	Classification types.Classification
	Summary        string
	Detail         string
}

// Parse classifies a completion by its leading token, then splits the rest
// on DetailSeparator. Unrecognised replies are informational and kept whole.
func Parse(raw string) Parsed {
	text := strings.TrimSpace(raw)

	classification, rest, ok := classify(text)
	if !ok {
		return Parsed{Classification: types.Informational, Summary: text}
	}

	summary, detail := split(rest)
	if summary == "" && text != "" {
		summary = unformattedSummary
	}
	return Parsed{Classification: classification, Summary: summary, Detail: detail}
}

func classify(text string) (types.Classification, string, bool) {
	for _, t := range classificationTokens {
		if len(text) >= len(t.token) && strings.EqualFold(text[:len(t.token)], t.token) {
			return t.classification, strings.TrimSpace(text[len(t.token):]), true
		}
	}
	return types.Informational, text, false
}

func split(text string) (string, string) {
	before, after, found := strings.Cut(text, DetailSeparator)
	if !found {
		return text, ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}
