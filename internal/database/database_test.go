package database

import (
	"context"
	"testing"
	"time"

	"crypto-advisor/internal/types"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := InitDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.CloseDB() })
	return db
}

func TestAlertRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewAlertRepository(NewSQLiteStore(openTestDB(t)))

	got, err := repo.Load(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("empty store: %+v, %v", got, err)
	}

	triggered := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	alerts := []types.Alert{
		{ID: "a1", AssetID: "bitcoin", TargetPrice: 50000, Condition: types.PriceDropsTo, IsActive: true,
			CreatedAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "a2", AssetID: "solana", TargetPrice: 300, Condition: types.PriceRisesTo, TriggeredAt: &triggered,
			CreatedAt: time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)},
	}
	if err := repo.SaveAll(ctx, alerts); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveAll(ctx, alerts[:1]); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveAll(ctx, alerts); err != nil {
		t.Fatal(err)
	}

	got, err = repo.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].TriggeredAt == nil || !got[1].TriggeredAt.Equal(triggered) || got[0].IsActive != true {
		t.Fatalf("loaded %+v", got)
	}
}

func TestAlertRepositoryDiscardsCorruptData(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(openTestDB(t))
	if err := store.Put(ctx, AlertsKey, []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	got, err := NewAlertRepository(store).Load(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %+v, %v", got, err)
	}
	if _, err := store.Get(ctx, AlertsKey); err != ErrKeyNotFound {
		t.Fatalf("corrupt key not reset: %v", err)
	}
}

func TestMetrics(t *testing.T) {
	db := openTestDB(t)

	if v, err := db.GetMetric("rate_limits"); err != nil || v != 0 {
		t.Fatalf("missing metric: %v, %v", v, err)
	}
	if err := db.SaveMetric("rate_limits", 3); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMetric("rate_limits", 4); err != nil {
		t.Fatal(err)
	}
	if v, _ := db.GetMetric("rate_limits"); v != 4 {
		t.Fatalf("rate_limits = %v", v)
	}

	db.SaveMetricWithLabels("recommendations", "classification", "buy", 2)
	db.SaveMetricWithLabels("recommendations", "classification", "hold", 5)
	labeled, err := db.GetMetricsWithLabels("recommendations")
	if err != nil {
		t.Fatal(err)
	}
	if labeled["classification"]["buy"] != 2 || labeled["classification"]["hold"] != 5 {
		t.Fatalf("labeled = %+v", labeled)
	}
}
