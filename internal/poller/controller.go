package poller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"crypto-advisor/internal/alert"
	"crypto-advisor/internal/market"
	"crypto-advisor/internal/metrics"
	"crypto-advisor/internal/types"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultRefreshInterval   = 7 * time.Minute
	DefaultAdviceInterval    = 2 * time.Hour
	DefaultCountdownInterval = time.Second
)

var (
	ErrCooldown     = errors.New("market data requests are paused by the rate limit cooldown")
	ErrNoMatch      = errors.New("no cryptocurrency matched the query")
	ErrEmptyQuery   = errors.New("empty query")
	ErrPartialData  = errors.New("market data is incomplete")
	ErrUnknownAsset = errors.New("asset is not tracked")
	ErrInFlight     = errors.New("a request for this asset is already in flight")
)

const (
	msgAdvisorDisabled   = "The AI API key is not configured. AI features are disabled. Market data and alerts are still shown when you search for a cryptocurrency."
	msgCooldownSuffix    = "Market data requests are paused for a moment."
	msgRefreshPaused     = "Data refresh paused due to the API rate limit."
	msgSearchPaused      = "Search paused due to the API rate limit."
	msgSuggestionsPaused = "Suggestions paused due to the API rate limit."
	msgFeaturePaused     = "Feature paused due to the API rate limit."
	msgEmptyQuery        = "Please enter a cryptocurrency name or symbol."
	msgRateLimited       = "API request limit reached."
	msgRefreshInProgress = "A data refresh is already in progress. Try again shortly."
)

// MarketClient is the market data side of the controller
type MarketClient interface {
	Suggestions(ctx context.Context, query string) ([]types.Suggestion, error)
	Search(ctx context.Context, query string) (*types.Suggestion, error)
	Refresh(ctx context.Context, prev types.Asset) (types.Asset, bool, error)
}

// Advisor issues recommendations. Advise must only be given assets with a price history.
type Advisor interface {
	Available() bool
	Advise(ctx context.Context, asset types.Asset) types.Recommendation
}

// Notifier receives session events as they happen
type Notifier interface {
	AlertTriggered(a types.Alert)
	RecommendationIssued(r types.Recommendation)
	SuggestionsReady(query string, suggestions []types.Suggestion)
	CooldownStarted(message string, endsAt time.Time)
	CooldownEnded()
}

type NopNotifier struct{}

func (NopNotifier) AlertTriggered(types.Alert)                  {}
func (NopNotifier) RecommendationIssued(types.Recommendation)   {}
func (NopNotifier) SuggestionsReady(string, []types.Suggestion) {}
func (NopNotifier) CooldownStarted(string, time.Time)           {}
func (NopNotifier) CooldownEnded()                              {}

type Config struct {
	RefreshInterval   time.Duration
	AdviceInterval    time.Duration
	CountdownInterval time.Duration
	Cooldown          time.Duration
	Debounce          time.Duration
	AdviceMaxAge      time.Duration
	AdvicePriceChange float64
}

func DefaultConfig() Config {
	return Config{
		RefreshInterval:   DefaultRefreshInterval,
		AdviceInterval:    DefaultAdviceInterval,
		CountdownInterval: DefaultCountdownInterval,
		Cooldown:          DefaultCooldown,
		Debounce:          DefaultDebounce,
		AdviceMaxAge:      DefaultAdviceMaxAge,
		AdvicePriceChange: DefaultAdvicePriceChange,
	}
}

// Snapshot is a consistent copy of the session state
type Snapshot struct {
	Tracked         []types.Asset
	Recommendation  *types.Recommendation
	Suggestions     []types.Suggestion
	Triggered       []types.Alert
	GlobalError     string
	SearchError     string
	CooldownActive  bool
	CooldownReason  string
	Countdown       string
	AdviceAvailable bool
	// ActiveAlerts are the pending alerts of the tracked assets
	ActiveAlerts []types.Alert
}

// Controller owns one advisor session: the tracked assets, their snapshots,
// the current recommendation and the cooldown gate.
type Controller struct {
	mu sync.Mutex

	market    MarketClient
	advisor   Advisor
	alerts    *alert.Book
	notifier  Notifier
	gate      *Gate
	debouncer *Debouncer
	rule      DecisionRule
	cfg       Config
	now       func() time.Time
	logger    *log.Entry

	tracked     []string
	assets      map[string]types.Asset
	refreshing  map[string]bool
	advising    map[string]bool
	current     *types.Recommendation
	suggestions []types.Suggestion
	globalError string
	searchError string
}

func NewController(mc MarketClient, advisor Advisor, book *alert.Book, notifier Notifier, cfg Config) *Controller {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	defaults := DefaultConfig()
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaults.RefreshInterval
	}
	if cfg.AdviceInterval <= 0 {
		cfg.AdviceInterval = defaults.AdviceInterval
	}
	if cfg.CountdownInterval <= 0 {
		cfg.CountdownInterval = defaults.CountdownInterval
	}
	if cfg.AdviceMaxAge <= 0 {
		cfg.AdviceMaxAge = defaults.AdviceMaxAge
	}
	if cfg.AdvicePriceChange <= 0 {
		cfg.AdvicePriceChange = defaults.AdvicePriceChange
	}

	c := &Controller{
		market:     mc,
		advisor:    advisor,
		alerts:     book,
		notifier:   notifier,
		rule:       DecisionRule{MaxAge: cfg.AdviceMaxAge, PercentChange: cfg.AdvicePriceChange},
		cfg:        cfg,
		now:        time.Now,
		logger:     log.WithField("component", "poller"),
		assets:     make(map[string]types.Asset),
		refreshing: make(map[string]bool),
		advising:   make(map[string]bool),
	}
	c.gate = NewGate(cfg.Cooldown, func() time.Time { return c.now() })
	c.debouncer = NewDebouncer(cfg.Debounce, c.typed)

	if !advisor.Available() {
		c.globalError = msgAdvisorDisabled
	}
	return c
}

// WithClock overrides the time source of the controller and its cooldown gate
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// Run drives the refresh, advice and countdown timers until ctx is cancelled
func (c *Controller) Run(ctx context.Context) {
	var wg sync.WaitGroup

	Task{Name: "refresh", Every: c.cfg.RefreshInterval, Handler: c.RefreshTick}.Start(ctx, &wg)
	Task{Name: "advice", Every: c.cfg.AdviceInterval, Handler: c.AdviceTick}.Start(ctx, &wg)
	Task{Name: "countdown", Every: c.cfg.CountdownInterval, Handler: func(context.Context) { c.CountdownTick() }}.Start(ctx, &wg)

	c.logger.Infof("polling started: refresh every %s, advice every %s", c.cfg.RefreshInterval, c.cfg.AdviceInterval)
	<-ctx.Done()
	c.debouncer.Stop()
	wg.Wait()
	c.logger.Info("polling stopped")
}

// RefreshTick refreshes every tracked asset that is not already being refreshed
func (c *Controller) RefreshTick(ctx context.Context) {
	if c.gate.Active() {
		c.logger.Debug("rate limit cooldown active, skipping periodic data update cycle")
		metrics.MarketRequests.WithLabelValues("refresh", metrics.OutcomeSkipped).Inc()
		return
	}

	for _, id := range c.trackedIDs() {
		c.mu.Lock()
		_, known := c.assets[id]
		busy := c.refreshing[id]
		c.mu.Unlock()
		if !known || busy {
			continue
		}

		asset, fresh, err := c.refresh(ctx, id)
		switch {
		case err != nil && !market.IsRateLimited(err) && !errors.Is(err, ErrCooldown) && !errors.Is(err, ErrInFlight):
			c.logger.WithError(err).Warnf("periodic refresh of %s failed", id)
		case err == nil && !fresh:
			c.setGlobalError(fmt.Sprintf("Error updating data for %s.", asset.Name))
		}
	}
}

// AdviceTick asks for a new recommendation where the decision rule calls for one
func (c *Controller) AdviceTick(ctx context.Context) {
	if !c.advisor.Available() {
		return
	}

	now := c.now()
	for _, id := range c.trackedIDs() {
		c.mu.Lock()
		asset, known := c.assets[id]
		busy := c.advising[id]
		var last *types.Recommendation
		if c.current != nil && c.current.Asset.ID == id {
			rec := *c.current
			last = &rec
		}
		c.mu.Unlock()

		if !known || busy || asset.LastUpdated == nil {
			continue
		}
		if !c.rule.ShouldRequestAdvice(last, asset, now) {
			c.logger.Debugf("advice for %s is still current", asset.Name)
			continue
		}
		if _, err := c.advise(ctx, asset); err != nil && !errors.Is(err, ErrInFlight) {
			c.logger.WithError(err).Debugf("periodic advice for %s", asset.Name)
		}
	}
}

// CountdownTick clears the cooldown once it has run out
func (c *Controller) CountdownTick() {
	if !c.gate.Tick() {
		return
	}

	c.mu.Lock()
	c.globalError = ""
	c.searchError = ""
	c.mu.Unlock()

	metrics.CooldownActive.Set(0)
	c.logger.Info("rate limit cooldown over, market data requests resumed")
	c.notifier.CooldownEnded()
}

// Search resolves query to its best match and starts tracking it
func (c *Controller) Search(ctx context.Context, query string) error {
	if c.gate.Active() {
		c.setSearchError(msgSearchPaused)
		return ErrCooldown
	}
	query = strings.TrimSpace(query)
	if query == "" {
		c.setSearchError(msgEmptyQuery)
		return ErrEmptyQuery
	}
	c.setSearchError("")

	match, err := c.market.Search(ctx, query)
	if err != nil {
		if market.IsRateLimited(err) {
			metrics.MarketRequests.WithLabelValues("search", metrics.OutcomeRateLimited).Inc()
			c.activateCooldown(err)
			return err
		}
		c.setSearchError(fmt.Sprintf("Error during the search for %q.", query))
		return errors.Wrapf(err, "searching %q", query)
	}
	metrics.MarketRequests.WithLabelValues("search", metrics.OutcomeOK).Inc()

	if match == nil {
		c.setSearchError(fmt.Sprintf("Cryptocurrency %q not found. Try another name or symbol.", query))
		return ErrNoMatch
	}
	return c.Select(ctx, match.ID, match.Name, match.Symbol)
}

// Select replaces the tracked set with one asset, refreshes it and asks for advice
func (c *Controller) Select(ctx context.Context, id, name, symbol string) error {
	if c.gate.Active() {
		c.setSearchError(msgSearchPaused)
		return ErrCooldown
	}
	c.debouncer.Stop()

	c.mu.Lock()
	asset, known := c.assets[id]
	if !known {
		asset = types.NewAsset(id, name, symbol)
	}
	c.tracked = []string{id}
	c.assets = map[string]types.Asset{id: asset}
	c.current = nil
	c.suggestions = nil
	c.searchError = ""
	c.mu.Unlock()
	metrics.TrackedAssets.Set(1)

	updated, fresh, err := c.refresh(ctx, id)
	if err != nil {
		switch {
		case market.IsRateLimited(err), errors.Is(err, ErrCooldown):
		case errors.Is(err, ErrInFlight):
			c.setSearchError(msgRefreshInProgress)
		default:
			c.setSearchError(fmt.Sprintf("Error updating data for %s.", asset.Name))
		}
		return err
	}
	if !fresh {
		c.setSearchError(fmt.Sprintf("Could not get complete data for %q. The AI analysis will not be available.", asset.Name))
		c.publish(c.info(updated, fmt.Sprintf("Could not get complete market data for %s. The price history may be unavailable.", asset.Name)))
		return ErrPartialData
	}

	_, err = c.advise(ctx, updated)
	return err
}

// Suggestions fetches typeahead candidates for query
func (c *Controller) Suggestions(ctx context.Context, query string) ([]types.Suggestion, error) {
	if c.gate.Active() {
		c.setSearchError(msgSuggestionsPaused)
		return nil, ErrCooldown
	}
	c.setSearchError("")

	suggestions, err := c.market.Suggestions(ctx, query)
	if err != nil {
		if market.IsRateLimited(err) {
			metrics.MarketRequests.WithLabelValues("suggestions", metrics.OutcomeRateLimited).Inc()
			c.activateCooldown(err)
		}
		return nil, err
	}
	metrics.MarketRequests.WithLabelValues("suggestions", metrics.OutcomeOK).Inc()

	c.mu.Lock()
	c.suggestions = suggestions
	c.mu.Unlock()
	return suggestions, nil
}

// Type feeds one keystroke state of the search box into the debouncer
func (c *Controller) Type(query string) {
	c.debouncer.Trigger(query)
}

func (c *Controller) typed(query string) {
	suggestions, err := c.Suggestions(context.Background(), query)
	if err != nil {
		c.logger.WithError(err).Debugf("suggestions for %q", query)
		return
	}
	c.notifier.SuggestionsReady(query, suggestions)
}

// ManualAdvice requests a recommendation now, refreshing first when the asset never was
func (c *Controller) ManualAdvice(ctx context.Context, id string) error {
	if c.gate.Active() {
		c.setSearchError(msgFeaturePaused)
		return ErrCooldown
	}

	c.mu.Lock()
	asset, known := c.assets[id]
	busy := c.advising[id]
	c.mu.Unlock()
	if !known {
		return ErrUnknownAsset
	}
	if busy {
		return ErrInFlight
	}

	if asset.LastUpdated == nil {
		updated, fresh, err := c.refresh(ctx, id)
		if err != nil {
			if market.IsRateLimited(err) {
				c.setSearchError(msgRateLimited)
			} else {
				c.setSearchError(fmt.Sprintf("Error getting data for %s before generating advice.", asset.Name))
			}
			return err
		}
		if !fresh {
			c.setSearchError(fmt.Sprintf("Error getting data for %s before generating advice.", asset.Name))
			return ErrPartialData
		}
		asset = updated
	}

	_, err := c.advise(ctx, asset)
	return err
}

// AddAlert sets a price alert on a tracked asset
func (c *Controller) AddAlert(ctx context.Context, assetID string, target float64, condition types.AlertCondition) (types.Alert, error) {
	c.mu.Lock()
	asset, known := c.assets[assetID]
	c.mu.Unlock()
	if !known {
		return types.Alert{}, ErrUnknownAsset
	}
	return c.alerts.Add(ctx, asset, target, condition)
}

func (c *Controller) RemoveAlert(ctx context.Context, id string) error {
	return c.alerts.Remove(ctx, id)
}

func (c *Controller) DismissTriggered(id string) {
	c.alerts.Queue().Dismiss(id)
}

func (c *Controller) Alerts() []types.Alert {
	return c.alerts.List()
}

// Snapshot returns a copy of the session state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Suggestions:     append([]types.Suggestion(nil), c.suggestions...),
		Triggered:       c.alerts.Queue().Items(),
		GlobalError:     c.globalError,
		SearchError:     c.searchError,
		CooldownActive:  c.gate.Active(),
		Countdown:       c.gate.Countdown(),
		AdviceAvailable: c.advisor.Available(),
	}
	if s.CooldownActive {
		s.CooldownReason = c.gate.Message()
	}
	for _, id := range c.tracked {
		if a, ok := c.assets[id]; ok {
			s.Tracked = append(s.Tracked, a)
			s.ActiveAlerts = append(s.ActiveAlerts, c.alerts.Active(id)...)
		}
	}
	if c.current != nil {
		rec := *c.current
		s.Recommendation = &rec
	}
	return s
}

// refresh claims the in-flight flag of id, fetches fresh market data and
// evaluates the alerts of the asset on success.
func (c *Controller) refresh(ctx context.Context, id string) (types.Asset, bool, error) {
	c.mu.Lock()
	prev, known := c.assets[id]
	switch {
	case !known:
		c.mu.Unlock()
		return types.Asset{}, false, ErrUnknownAsset
	case c.gate.Active():
		c.globalError = msgRefreshPaused
		c.mu.Unlock()
		metrics.MarketRequests.WithLabelValues("refresh", metrics.OutcomeSkipped).Inc()
		return prev, false, ErrCooldown
	case c.refreshing[id]:
		c.mu.Unlock()
		return prev, false, ErrInFlight
	}
	c.refreshing[id] = true
	c.mu.Unlock()

	updated, fresh, err := c.market.Refresh(ctx, prev)

	c.mu.Lock()
	delete(c.refreshing, id)
	if err == nil && fresh {
		if _, still := c.assets[id]; still {
			c.assets[id] = updated
		}
	}
	c.mu.Unlock()

	if err != nil {
		if market.IsRateLimited(err) {
			metrics.MarketRequests.WithLabelValues("refresh", metrics.OutcomeRateLimited).Inc()
			c.activateCooldown(err)
		}
		return prev, false, err
	}
	if !fresh {
		metrics.MarketRequests.WithLabelValues("refresh", metrics.OutcomeDegraded).Inc()
		return prev, false, nil
	}
	metrics.MarketRequests.WithLabelValues("refresh", metrics.OutcomeOK).Inc()

	for _, a := range c.alerts.Evaluate(ctx, updated) {
		metrics.AlertsTriggered.Inc()
		c.notifier.AlertTriggered(a)
	}
	return updated, true, nil
}

// advise claims the advice flag of the asset and makes the result the current
// recommendation. Without a price history the advisor is not called.
func (c *Controller) advise(ctx context.Context, asset types.Asset) (types.Recommendation, error) {
	if !asset.HasData() {
		rec := c.info(asset, fmt.Sprintf("Not enough up-to-date market or historical data for %s to generate advice. Try again in a few moments.", asset.Name))
		c.publish(rec)
		return rec, ErrPartialData
	}

	c.mu.Lock()
	if c.advising[asset.ID] {
		c.mu.Unlock()
		return types.Recommendation{}, ErrInFlight
	}
	c.advising[asset.ID] = true
	c.mu.Unlock()

	rec := c.advisor.Advise(ctx, asset)

	c.mu.Lock()
	delete(c.advising, asset.ID)
	c.mu.Unlock()

	c.publish(rec)
	c.logger.Infof("recommendation for %s: %s", asset.Name, rec.Classification)
	return rec, nil
}

func (c *Controller) publish(rec types.Recommendation) {
	c.mu.Lock()
	c.current = &rec
	c.mu.Unlock()

	metrics.Recommendations.WithLabelValues(string(rec.Classification)).Inc()
	c.notifier.RecommendationIssued(rec)
}

func (c *Controller) info(asset types.Asset, summary string) types.Recommendation {
	return types.Recommendation{
		ID:             uuid.NewString(),
		Asset:          asset,
		Classification: types.Informational,
		Summary:        summary,
		CreatedAt:      c.now(),
	}
}

// activateCooldown is the only place the gate gets armed
func (c *Controller) activateCooldown(err error) {
	reason := msgRateLimited
	var rl *market.RateLimitError
	if errors.As(err, &rl) && rl.Message != "" {
		reason = rl.Message
	}

	endsAt := c.gate.Activate(reason)
	message := fmt.Sprintf("%s %s", reason, msgCooldownSuffix)

	c.mu.Lock()
	c.globalError = message
	c.mu.Unlock()

	metrics.RateLimits.Inc()
	metrics.CooldownActive.Set(1)
	c.logger.Warnf("rate limit hit, pausing market data requests until %s", endsAt.Format(time.TimeOnly))
	c.notifier.CooldownStarted(message, endsAt)
}

func (c *Controller) trackedIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.tracked...)
}

func (c *Controller) setGlobalError(msg string) {
	c.mu.Lock()
	c.globalError = msg
	c.mu.Unlock()
}

func (c *Controller) setSearchError(msg string) {
	c.mu.Lock()
	c.searchError = msg
	c.mu.Unlock()
}
