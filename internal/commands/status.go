package commands

import (
	"fmt"
	"strings"

	"crypto-advisor/internal/poller"
	"crypto-advisor/lib/helpers"
	"crypto-advisor/lib/translation"
)

// CommandStatus renders the session overview: tracked asset, errors, cooldown and queued alerts
func CommandStatus(s poller.Snapshot) string {
	var b strings.Builder

	if s.GlobalError != "" || s.CooldownActive {
		text := s.GlobalError
		if s.CooldownActive {
			if !strings.Contains(text, s.CooldownReason) {
				text = s.CooldownReason + " " + text
			}
			text = strings.TrimSpace(text + " " + s.Countdown)
		}
		b.WriteString("⚠️ ")
		b.WriteString(helpers.EscapeMarkdownV2(text))
		b.WriteString("\n\n")
	}
	if s.SearchError != "" {
		b.WriteString(helpers.EscapeMarkdownV2(s.SearchError))
		b.WriteString("\n\n")
	}

	if len(s.Tracked) == 0 {
		b.WriteString(helpers.EscapeMarkdownV2(translation.Translate("nothing_tracked")))
	}
	for _, asset := range s.Tracked {
		b.WriteString(CommandPrice(asset))
		b.WriteString("\n")
	}

	if len(s.ActiveAlerts) > 0 {
		b.WriteString(helpers.EscapeMarkdownV2(fmt.Sprintf(translation.Translate("active_alerts_count"), len(s.ActiveAlerts))))
		b.WriteString("\n")
	}

	if !s.AdviceAvailable {
		b.WriteString("\n")
		b.WriteString(helpers.EscapeMarkdownV2(translation.Translate("advisor_disabled")))
		b.WriteString("\n")
	}

	if len(s.Triggered) > 0 {
		b.WriteString("\n")
		b.WriteString(translation.Translate("triggered_header"))
		for _, a := range s.Triggered {
			b.WriteString(fmt.Sprintf(translation.Translate("triggered_item"),
				helpers.EscapeMarkdownV2(a.AssetName),
				helpers.EscapeMarkdownV2(a.AssetSymbol),
				helpers.FormatPriceUS(a.TargetPrice, a.AssetSymbol, true),
				a.ID,
			))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
