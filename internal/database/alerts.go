package database

import (
	"context"
	"encoding/json"

	"crypto-advisor/internal/types"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// AlertsKey is the single key holding the serialized alert list
const AlertsKey = "cryptoAdvisorAlerts"

// AlertRepository stores the whole alert list as one JSON blob
type AlertRepository struct {
	store BlobStore
}

func NewAlertRepository(store BlobStore) *AlertRepository {
	return &AlertRepository{store: store}
}

// Load returns the stored alerts. Corrupt data is discarded and the key reset.
func (r *AlertRepository) Load(ctx context.Context) ([]types.Alert, error) {
	raw, err := r.store.Get(ctx, AlertsKey)
	if errors.Is(err, ErrKeyNotFound) {
		return []types.Alert{}, nil
	}
	if err != nil {
		return nil, err
	}

	var alerts []types.Alert
	if err := json.Unmarshal(raw, &alerts); err != nil {
		log.WithError(err).Warn("stored alerts are corrupt, resetting")
		if err := r.store.Delete(ctx, AlertsKey); err != nil {
			return nil, err
		}
		return []types.Alert{}, nil
	}
	if alerts == nil {
		alerts = []types.Alert{}
	}
	return alerts, nil
}

// SaveAll overwrites the stored list with alerts
func (r *AlertRepository) SaveAll(ctx context.Context, alerts []types.Alert) error {
	if alerts == nil {
		alerts = []types.Alert{}
	}
	raw, err := json.Marshal(alerts)
	if err != nil {
		return errors.Wrap(err, "failed to encode alerts")
	}
	return r.store.Put(ctx, AlertsKey, raw)
}
