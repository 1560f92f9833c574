package engine

import (
	"sync"
	"time"
)

// LedgerStore is the persistence surface the admission ledger needs.
type LedgerStore interface {
	LastAlertTime(ticker string) (time.Time, bool, error)
	RecordAlert(ticker string, ts time.Time) error
	AlertCountSince(cutoff time.Time) (int, error)
}

// Ledger is the single admission-control component: per-ticker cooldown
// plus the trailing-hour alert cap. All checks and writes are serialized
// under one mutex so two concurrent cycles cannot double-admit a ticker.
type Ledger struct {
	store      LedgerStore
	cooldown   time.Duration
	maxPerHour int

	mu  sync.Mutex
	now func() time.Time
}

// NewLedger creates a Ledger over the given store.
func NewLedger(store LedgerStore, cooldown time.Duration, maxPerHour int) *Ledger {
	return &Ledger{
		store:      store,
		cooldown:   cooldown,
		maxPerHour: maxPerHour,
		now:        time.Now,
	}
}

// Allowed reports whether a ticker would currently be admitted, without
// recording anything. Used by dry runs.
func (l *Ledger) Allowed(ticker string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.check(ticker)
}

// Admit performs the serialized check-then-record: if the ticker clears
// cooldown and the hourly cap, the alert is recorded and Admit returns
// true. Recording happens at admission so a failed notification cannot
// re-open the window.
func (l *Ledger) Admit(ticker string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ok, err := l.check(ticker)
	if err != nil || !ok {
		return false, err
	}
	if err := l.store.RecordAlert(ticker, l.now()); err != nil {
		return false, err
	}
	return true, nil
}

func (l *Ledger) check(ticker string) (bool, error) {
	now := l.now()

	last, found, err := l.store.LastAlertTime(ticker)
	if err != nil {
		return false, err
	}
	if found && now.Sub(last) < l.cooldown {
		return false, nil
	}

	count, err := l.store.AlertCountSince(now.Add(-time.Hour))
	if err != nil {
		return false, err
	}
	if count >= l.maxPerHour {
		return false, nil
	}
	return true, nil
}
