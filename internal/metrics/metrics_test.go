package metrics

import (
	"testing"

	"crypto-advisor/internal/database"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	db, err := database.InitDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.CloseDB()

	RateLimits.Add(2)
	AlertsTriggered.Add(3)
	Recommendations.WithLabelValues("buy").Add(4)

	SaveToDB(db)

	if v, _ := db.GetMetric("rate_limits_total"); v != testutil.ToFloat64(RateLimits) {
		t.Errorf("rate_limits_total = %v", v)
	}
	if v, _ := db.GetMetric("alerts_triggered_total"); v != 3 {
		t.Errorf("alerts_triggered_total = %v", v)
	}
	labeled, _ := db.GetMetricsWithLabels("recommendations_total")
	if labeled["classification"]["buy"] != 4 {
		t.Errorf("recommendations = %+v", labeled)
	}

	before := testutil.ToFloat64(AlertsTriggered)
	LoadFromDB(db)
	if got := testutil.ToFloat64(AlertsTriggered); got != before+3 {
		t.Errorf("alerts after load = %v, want %v", got, before+3)
	}
}

func TestGetMetricValueGauge(t *testing.T) {
	CooldownActive.Set(1)
	defer CooldownActive.Set(0)
	if v := GetMetricValue(CooldownActive); v != 1 {
		t.Fatalf("gauge = %v", v)
	}
}
