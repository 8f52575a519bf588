package advice

import (
	"context"
	"fmt"
	"time"

	"crypto-advisor/internal/types"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	UnavailableSummary = "The AI advisor is currently unavailable. Make sure the API key is configured."
	UnavailableDetail  = "Set the LLM_API_KEY environment variable to enable AI analysis."
)

// Completer sends a single prompt to a text-generation service
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Advisor turns an asset snapshot into a Recommendation
type Advisor struct {
	completer Completer
	now       func() time.Time
	logger    *log.Entry
}

// NewAdvisor returns an advisor. A nil completer disables the service.
func NewAdvisor(completer Completer) *Advisor {
	return &Advisor{
		completer: completer,
		now:       time.Now,
		logger:    log.WithField("component", "advice"),
	}
}

// Available reports whether a completion provider is configured
func (a *Advisor) Available() bool {
	return a.completer != nil
}

// Advise never fails: provider errors come back as informational recommendations.
// The asset must have a price history.
func (a *Advisor) Advise(ctx context.Context, asset types.Asset) types.Recommendation {
	if !a.Available() {
		a.logger.Warn("completion client not configured, returning placeholder")
		return a.recommendation(asset, Parsed{
			Classification: types.Informational,
			Summary:        UnavailableSummary,
			Detail:         UnavailableDetail,
		}, "")
	}

	raw, err := a.completer.Complete(ctx, BuildPrompt(asset))
	if err != nil {
		a.logger.WithError(err).Errorf("error getting advice for %s", asset.Name)
		return a.recommendation(asset, Parsed{
			Classification: types.Informational,
			Summary: fmt.Sprintf("Could not get advice for %s. The AI service may be temporarily unavailable or misconfigured. Details: %v",
				asset.Name, err),
		}, "")
	}

	parsed := Parse(raw)
	if parsed.Classification == types.Informational {
		a.logger.Warnf("completion did not start with a classification token: %q", raw)
	}
	return a.recommendation(asset, parsed, raw)
}

func (a *Advisor) recommendation(asset types.Asset, p Parsed, raw string) types.Recommendation {
	return types.Recommendation{
		ID:             uuid.NewString(),
		Asset:          asset,
		Classification: p.Classification,
		Summary:        p.Summary,
		Detail:         p.Detail,
		CreatedAt:      a.now(),
		RawResponse:    raw,
	}
}
