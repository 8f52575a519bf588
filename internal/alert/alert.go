package alert

import (
	"context"
	"sync"
	"time"

	"crypto-advisor/internal/types"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	ErrInvalidTarget    = errors.New("target price must be greater than zero")
	ErrInvalidCondition = errors.New("unknown alert condition")
	ErrTargetNotBelow   = errors.New("for a drop alert the target must be below the current price")
	ErrTargetNotAbove   = errors.New("for a rise alert the target must be above the current price")
	ErrNotFound         = errors.New("alert not found")
)

// Repository persists the whole alert list at once
type Repository interface {
	Load(ctx context.Context) ([]types.Alert, error)
	SaveAll(ctx context.Context, alerts []types.Alert) error
}

// Book owns the alert list and the triggered-alert queue
type Book struct {
	mu     sync.Mutex
	repo   Repository
	alerts []types.Alert
	queue  *Queue
	now    func() time.Time
	logger *log.Entry
}

// NewBook loads the stored alerts once
func NewBook(ctx context.Context, repo Repository) *Book {
	b := &Book{
		repo:   repo,
		queue:  NewQueue(),
		now:    time.Now,
		logger: log.WithField("component", "alert"),
	}

	alerts, err := repo.Load(ctx)
	if err != nil {
		b.logger.WithError(err).Error("failed to load alerts, starting with an empty list")
		alerts = nil
	}
	b.alerts = alerts
	b.logger.Debugf("%d alerts loaded", len(alerts))
	return b
}

// WithClock overrides the time source
func (b *Book) WithClock(now func() time.Time) *Book {
	b.now = now
	return b
}

// Queue returns the triggered-alert notification buffer
func (b *Book) Queue() *Queue {
	return b.queue
}

// Add creates an active alert for asset. When the current price is known the
// target has to lie on the side the condition waits for.
func (b *Book) Add(ctx context.Context, asset types.Asset, target float64, condition types.AlertCondition) (types.Alert, error) {
	if !condition.Valid() {
		return types.Alert{}, ErrInvalidCondition
	}
	if target <= 0 {
		return types.Alert{}, ErrInvalidTarget
	}
	if asset.CurrentPrice > 0 {
		if condition == types.PriceDropsTo && target >= asset.CurrentPrice {
			return types.Alert{}, ErrTargetNotBelow
		}
		if condition == types.PriceRisesTo && target <= asset.CurrentPrice {
			return types.Alert{}, ErrTargetNotAbove
		}
	}

	a := types.Alert{
		ID:          uuid.NewString(),
		AssetID:     asset.ID,
		AssetName:   asset.Name,
		AssetSymbol: asset.Symbol,
		TargetPrice: target,
		Condition:   condition,
		CreatedAt:   b.now(),
		IsActive:    true,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	alerts := append(append([]types.Alert(nil), b.alerts...), a)
	if err := b.save(ctx, alerts); err != nil {
		return types.Alert{}, err
	}
	b.alerts = alerts
	b.logger.Infof("alert %s set: %s %s %f", a.ID, a.AssetSymbol, a.Condition, a.TargetPrice)
	return a, nil
}

// Remove deletes an alert, active or not. The list is left untouched when
// saving fails.
func (b *Book) Remove(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, a := range b.alerts {
		if a.ID == id {
			alerts := append(b.alerts[:i:i], b.alerts[i+1:]...)
			if err := b.save(ctx, alerts); err != nil {
				return err
			}
			b.alerts = alerts
			return nil
		}
	}
	return ErrNotFound
}

// List returns a copy of every stored alert
func (b *Book) List() []types.Alert {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]types.Alert(nil), b.alerts...)
}

// Active returns the active alerts of one asset
func (b *Book) Active(assetID string) []types.Alert {
	b.mu.Lock()
	defer b.mu.Unlock()

	var active []types.Alert
	for _, a := range b.alerts {
		if a.AssetID == assetID && a.IsActive {
			active = append(active, a)
		}
	}
	return active
}

// Evaluate fires every active alert of asset whose condition holds at the
// asset's current price. Fired alerts are deactivated, persisted and queued.
func (b *Book) Evaluate(ctx context.Context, asset types.Asset) []types.Alert {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	var fired []types.Alert
	for i := range b.alerts {
		a := &b.alerts[i]
		if a.AssetID != asset.ID || !a.IsActive || !a.Satisfied(asset.CurrentPrice) {
			continue
		}
		triggeredAt := now
		a.IsActive = false
		a.TriggeredAt = &triggeredAt
		fired = append(fired, *a)

		b.logger.Infof("alert %s triggered: %s %s %f, current %f",
			a.ID, a.AssetSymbol, a.Condition, a.TargetPrice, asset.CurrentPrice)
	}

	if len(fired) == 0 {
		return nil
	}
	for _, a := range fired {
		b.queue.Push(a)
	}
	if err := b.persist(ctx); err != nil {
		b.logger.WithError(err).Error("failed to persist triggered alerts")
	}
	return fired
}

func (b *Book) persist(ctx context.Context) error {
	return b.save(ctx, b.alerts)
}

func (b *Book) save(ctx context.Context, alerts []types.Alert) error {
	if err := b.repo.SaveAll(ctx, append([]types.Alert(nil), alerts...)); err != nil {
		return errors.Wrap(err, "saving alerts")
	}
	return nil
}
