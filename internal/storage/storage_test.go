package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cryptomagiciian/sali-bot/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func intp(v int) *int { return &v }

func testSignal(ticker string, ts time.Time, score float64) *models.Signal {
	return &models.Signal{
		ID:          uuid.New().String(),
		Ticker:      ticker,
		Title:       "Test Market",
		Vertical:    "NFL",
		YesPrice:    48,
		PMarket:     0.48,
		PModel:      0.56,
		Edge:        0.08,
		Confidence:  0.7,
		Why:         []string{"Standard signal based on model edge"},
		Timestamp:   ts,
		SignalScore: score,
	}
}

func TestSnapshots_RecentNewestFirst(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()

	for i, bid := range []int{40, 44, 50} {
		snap := models.Snapshot{
			Timestamp: now.Add(time.Duration(-50+i*20) * time.Minute),
			Ticker:    "T1",
			YesBid:    intp(bid),
			Volume:    100,
		}
		if err := s.SaveSnapshot(snap); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}

	snaps, err := s.RecentSnapshots("T1", 60*time.Minute)
	if err != nil {
		t.Fatalf("RecentSnapshots: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snaps))
	}
	if *snaps[0].YesBid != 50 || *snaps[2].YesBid != 40 {
		t.Errorf("expected newest-first ordering, got %d..%d", *snaps[0].YesBid, *snaps[2].YesBid)
	}
}

func TestSnapshots_WindowCutoff(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()

	old := models.Snapshot{Timestamp: now.Add(-2 * time.Hour), Ticker: "T1", YesBid: intp(30)}
	recent := models.Snapshot{Timestamp: now.Add(-10 * time.Minute), Ticker: "T1", YesBid: intp(35)}
	for _, snap := range []models.Snapshot{old, recent} {
		if err := s.SaveSnapshot(snap); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}

	snaps, err := s.RecentSnapshots("T1", 60*time.Minute)
	if err != nil {
		t.Fatalf("RecentSnapshots: %v", err)
	}
	if len(snaps) != 1 || *snaps[0].YesBid != 35 {
		t.Errorf("expected only the in-window snapshot, got %v", snaps)
	}
}

func TestSnapshots_NilPrices(t *testing.T) {
	s := newTestStorage(t)
	snap := models.Snapshot{Timestamp: time.Now(), Ticker: "T1", Volume: 7}
	if err := s.SaveSnapshot(snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	snaps, err := s.RecentSnapshots("T1", time.Hour)
	if err != nil {
		t.Fatalf("RecentSnapshots: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	if snaps[0].YesBid != nil || snaps[0].YesAsk != nil {
		t.Error("expected nil prices to round-trip as nil")
	}
	if snaps[0].Volume != 7 {
		t.Errorf("expected volume 7, got %d", snaps[0].Volume)
	}
}

func TestSignals_SaveAndTop(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()

	for i, score := range []float64{0.1, 0.5, 0.3} {
		sig := testSignal("T"+string(rune('A'+i)), now, score)
		if err := s.SaveSignal(sig); err != nil {
			t.Fatalf("SaveSignal: %v", err)
		}
	}

	top, err := s.TopSignals(2)
	if err != nil {
		t.Fatalf("TopSignals: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(top))
	}
	if top[0].SignalScore != 0.5 || top[1].SignalScore != 0.3 {
		t.Errorf("expected score-descending order, got %f, %f", top[0].SignalScore, top[1].SignalScore)
	}
	if top[0].Ticker != "TB" {
		t.Errorf("expected TB first, got %s", top[0].Ticker)
	}
}

func TestLastAlert_MissingTicker(t *testing.T) {
	s := newTestStorage(t)
	_, ok, err := s.LastAlertTime("nope")
	if err != nil {
		t.Fatalf("LastAlertTime: %v", err)
	}
	if ok {
		t.Error("expected no last alert for unknown ticker")
	}
}

func TestRecordAlert_UpdatesLastAlertAndLog(t *testing.T) {
	s := newTestStorage(t)
	t1 := time.Now().Add(-30 * time.Minute)
	t2 := time.Now()

	if err := s.RecordAlert("T1", t1); err != nil {
		t.Fatalf("RecordAlert: %v", err)
	}
	if err := s.RecordAlert("T1", t2); err != nil {
		t.Fatalf("RecordAlert: %v", err)
	}

	last, ok, err := s.LastAlertTime("T1")
	if err != nil || !ok {
		t.Fatalf("LastAlertTime: ok=%v err=%v", ok, err)
	}
	if !last.Equal(t2) {
		t.Errorf("expected last alert overwritten to %v, got %v", t2, last)
	}

	// The log is append-only: both entries count.
	count, err := s.AlertCountSince(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("AlertCountSince: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 logged alerts, got %d", count)
	}
}

func TestAlertCountSince_Cutoff(t *testing.T) {
	s := newTestStorage(t)
	if err := s.RecordAlert("T1", time.Now().Add(-2*time.Hour)); err != nil {
		t.Fatalf("RecordAlert: %v", err)
	}
	if err := s.RecordAlert("T2", time.Now()); err != nil {
		t.Fatalf("RecordAlert: %v", err)
	}

	count, err := s.AlertCountSince(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("AlertCountSince: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 alert inside the window, got %d", count)
	}
}

func TestWatchlist_AddRemoveAll(t *testing.T) {
	s := newTestStorage(t)

	if err := s.WatchlistAdd("T1", "NFL"); err != nil {
		t.Fatalf("WatchlistAdd: %v", err)
	}
	if err := s.WatchlistAdd("T2", "CULTURE"); err != nil {
		t.Fatalf("WatchlistAdd: %v", err)
	}

	all, err := s.WatchlistAll()
	if err != nil {
		t.Fatalf("WatchlistAll: %v", err)
	}
	if len(all) != 2 || all["T1"] != "NFL" || all["T2"] != "CULTURE" {
		t.Errorf("unexpected watchlist contents: %v", all)
	}

	removed, err := s.WatchlistRemove("T1")
	if err != nil || !removed {
		t.Fatalf("WatchlistRemove: removed=%v err=%v", removed, err)
	}
	removed, err = s.WatchlistRemove("T1")
	if err != nil {
		t.Fatalf("WatchlistRemove: %v", err)
	}
	if removed {
		t.Error("expected second removal to report false")
	}
}

func TestAgentOutputAndPrediction(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()

	out := models.AgentOutput{
		Ticker:     "T1",
		Title:      "t",
		Vertical:   "NFL",
		Timestamp:  now,
		Confidence: 0.7,
		Why:        []string{"Standard signal based on model edge"},
	}
	if err := s.SaveAgentOutput(out); err != nil {
		t.Fatalf("SaveAgentOutput: %v", err)
	}
	if err := s.SavePrediction(now, "T1", 0.48, 0.56, 0.08, 0.7); err != nil {
		t.Fatalf("SavePrediction: %v", err)
	}
}
