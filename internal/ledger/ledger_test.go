package ledger_test

import (
	"math"
	"sync"
	"testing"

	"clipflow/internal/ledger"
	"clipflow/internal/session"
)

func TestTotalEqualsSumOfSources(t *testing.T) {
	l := ledger.New()
	l.Add(session.CostFrameExtraction, 0.25)
	l.Add(session.CostTranscription, 0.10)
	l.Add(session.CostTranscription, 0.05)

	var sum float64
	for _, amount := range l.BySource() {
		sum += amount
	}
	if got := l.Total(); math.Abs(got-sum) > 1e-12 {
		t.Fatalf("Total() = %g, fold over sources = %g", got, sum)
	}
	if got := l.Total(); math.Abs(got-0.40) > 1e-12 {
		t.Fatalf("Total() = %g, want 0.40", got)
	}
}

func TestBySourceGroupsEntries(t *testing.T) {
	l := ledger.New()
	l.Add(session.CostFrameExtraction, 1)
	l.Add(session.CostTranscription, 2)
	l.Add(session.CostTranscription, 3)

	grouped := l.BySource()
	if grouped[session.CostFrameExtraction] != 1 {
		t.Fatalf("frame extraction = %g", grouped[session.CostFrameExtraction])
	}
	if grouped[session.CostTranscription] != 5 {
		t.Fatalf("transcription = %g", grouped[session.CostTranscription])
	}
}

func TestConcurrentAddsAllLand(t *testing.T) {
	l := ledger.New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Add(session.CostFrameExtraction, 0.01)
		}()
	}
	wg.Wait()
	if got := l.Total(); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("Total() = %g, want 0.5", got)
	}
	if got := l.BySource()[session.CostFrameExtraction]; math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("frame extraction = %g, want 0.5", got)
	}
}
