package commands

import (
	"fmt"

	"crypto-advisor/internal/chart"
	"crypto-advisor/internal/types"
	"crypto-advisor/lib/helpers"
	"crypto-advisor/lib/translation"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Charts renders price charts and reuses them while the data is unchanged
type Charts struct {
	cache   *ChartCache
	options chart.Options
	render  func(types.Asset, chart.Options) ([]byte, error)
}

func NewCharts(options chart.Options) *Charts {
	return &Charts{
		cache:   NewChartCache(),
		options: options,
		render:  chart.Render,
	}
}

// CommandChart returns the PNG and caption for asset. Without enough history
// it returns no data and a text explaining why.
func (c *Charts) CommandChart(asset types.Asset) ([]byte, string, error) {
	log.Debugf("processing command /chart for %s", asset.ID)

	if cachedItem, found := c.cache.Get(asset); found {
		log.Debugf("returning cached chart for %s", asset.ChartSymbol)
		return cachedItem.ChartData, cachedItem.Caption, nil
	}

	caption := fmt.Sprintf(translation.Translate("chart_caption"),
		helpers.EscapeMarkdownV2(asset.Name),
		helpers.EscapeMarkdownV2(asset.ChartSymbol),
		helpers.FormatPriceUS(asset.CurrentPrice, asset.Symbol, true),
	)

	chartData, err := c.render(asset, c.options)
	if errors.Is(err, chart.ErrNotEnoughData) {
		return nil, fmt.Sprintf(translation.Translate("chart_no_history"), helpers.EscapeMarkdownV2(asset.Name)), nil
	}
	if err != nil {
		return nil, "", err
	}

	c.cache.Set(asset, chartData, caption)
	return chartData, caption, nil
}
