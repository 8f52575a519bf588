package database

import (
	"database/sql"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func (db *DB) SaveMetric(metricName string, value float64) error {
	return db.SaveMetricWithLabels(metricName, "", "", value)
}

func (db *DB) GetMetric(metricName string) (float64, error) {
	var value float64
	query := `
	SELECT metric_value
	FROM metrics
	WHERE metric_name = ? AND label_key = '' AND label_value = '';`
	err := db.Get(&value, query, metricName)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debugf("Metric %s not found in the database, defaulting to 0", metricName)
		return 0, nil
	} else if err != nil {
		return 0, errors.Wrapf(err, "failed to get metric %s", metricName)
	}
	log.Debugf("Metric loaded: %s = %f", metricName, value)
	return value, nil
}

func (db *DB) SaveMetricWithLabels(metricName, labelKey, labelValue string, value float64) error {
	query := `
	INSERT OR REPLACE INTO metrics (metric_name, label_key, label_value, metric_value)
	VALUES (?, ?, ?, ?);`
	_, err := db.Exec(query, metricName, labelKey, labelValue, value)
	if err != nil {
		return errors.Wrap(err, "failed to save metric")
	}
	log.Debugf("Metric saved: %s[%s=%s] = %f", metricName, labelKey, labelValue, value)
	return nil
}

type labeledMetric struct {
	LabelKey   string  `db:"label_key"`
	LabelValue string  `db:"label_value"`
	Value      float64 `db:"metric_value"`
}

// GetMetricsWithLabels fetches all labeled rows of a metric as key -> value -> metric
func (db *DB) GetMetricsWithLabels(metricName string) (map[string]map[string]float64, error) {
	query := `
	SELECT label_key, label_value, metric_value
	FROM metrics
	WHERE metric_name = ? AND label_key != '';`

	var rows []labeledMetric
	if err := db.Select(&rows, query, metricName); err != nil {
		return nil, errors.Wrap(err, "failed to query metrics with labels")
	}

	metrics := make(map[string]map[string]float64)
	for _, row := range rows {
		if _, exists := metrics[row.LabelKey]; !exists {
			metrics[row.LabelKey] = make(map[string]float64)
		}
		metrics[row.LabelKey][row.LabelValue] = row.Value
	}
	return metrics, nil
}
