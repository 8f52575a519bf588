package commands

import (
	"fmt"
	"strings"

	"crypto-advisor/internal/types"
	"crypto-advisor/lib/helpers"
	"crypto-advisor/lib/translation"
)

const dateFormat = "2006-01-02 15:04"

func conditionText(c types.AlertCondition) string {
	if c == types.PriceRisesTo {
		return translation.Translate("alert_condition_rises")
	}
	return translation.Translate("alert_condition_drops")
}

// CommandAlertList renders every stored alert, active ones first
func CommandAlertList(alerts []types.Alert) string {
	if len(alerts) == 0 {
		return translation.Translate("no_alerts")
	}

	var alertList strings.Builder
	alertList.WriteString(translation.Translate("alerts_list_header"))

	for _, active := range []bool{true, false} {
		for _, a := range alerts {
			if a.IsActive != active {
				continue
			}
			if a.IsActive {
				alertList.WriteString(fmt.Sprintf(translation.Translate("alert_list_item_active"),
					helpers.EscapeMarkdownV2(a.AssetName),
					helpers.EscapeMarkdownV2(a.AssetSymbol),
					conditionText(a.Condition),
					helpers.FormatPriceUS(a.TargetPrice, a.AssetSymbol, true),
					a.ID,
				))
				continue
			}

			triggered := ""
			if a.TriggeredAt != nil {
				triggered = a.TriggeredAt.Format(dateFormat)
			}
			alertList.WriteString(fmt.Sprintf(translation.Translate("alert_list_item_triggered"),
				helpers.EscapeMarkdownV2(a.AssetName),
				helpers.EscapeMarkdownV2(a.AssetSymbol),
				conditionText(a.Condition),
				helpers.FormatPriceUS(a.TargetPrice, a.AssetSymbol, true),
				helpers.EscapeMarkdownV2(triggered),
				a.ID,
			))
		}
	}
	return alertList.String()
}

// CommandAlertSet confirms a newly created alert
func CommandAlertSet(a types.Alert) string {
	return fmt.Sprintf(translation.Translate("alert_set_success"),
		helpers.EscapeMarkdownV2(a.AssetName),
		helpers.EscapeMarkdownV2(a.AssetSymbol),
		conditionText(a.Condition),
		helpers.FormatPriceUS(a.TargetPrice, a.AssetSymbol, true),
		a.ID,
	)
}

// CommandAlertTriggered is the push notification of a fired alert
func CommandAlertTriggered(a types.Alert, currentPrice float64) string {
	return fmt.Sprintf(translation.Translate("alert_triggered"),
		helpers.EscapeMarkdownV2(a.AssetName),
		helpers.EscapeMarkdownV2(a.AssetSymbol),
		helpers.FormatPriceUS(a.TargetPrice, a.AssetSymbol, true),
		helpers.FormatPriceUS(currentPrice, a.AssetSymbol, true),
		a.ID,
	)
}
