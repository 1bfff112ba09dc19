package ledger

import (
	"sync"

	"clipflow/internal/session"
)

// Ledger accumulates per-operation monetary cost for one session. Entries are
// append-only; the running total is always the fold over entries, so the two
// can never drift apart.
type Ledger struct {
	mu      sync.RWMutex
	entries []session.CostEntry
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Add appends one cost entry.
func (l *Ledger) Add(source session.CostSource, amount float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, session.CostEntry{Source: source, Amount: amount})
}

// Total folds every entry into the running total.
func (l *Ledger) Total() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total float64
	for _, entry := range l.entries {
		total += entry.Amount
	}
	return total
}

// BySource groups costs per source for the completion report.
func (l *Ledger) BySource() map[session.CostSource]float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[session.CostSource]float64, 2)
	for _, entry := range l.entries {
		out[entry.Source] += entry.Amount
	}
	return out
}
