package policy

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineUpdate(t *testing.T) {
	t.Run("applies valid changes and reports them", func(t *testing.T) {
		e := NewEngine(Default())
		updated, applied := e.Update(map[string]interface{}{
			"amount_tolerance_pct":  5.0,
			"duplicate_window_days": 120,
			"triage_enabled":        false,
		})

		assert.ElementsMatch(t, []string{"amount_tolerance_pct", "duplicate_window_days", "triage_enabled"}, applied)
		assert.Equal(t, 5.0, updated.AmountTolerancePct)
		assert.Equal(t, 120, updated.DuplicateWindowDays)
		assert.False(t, updated.TriageEnabled)
	})

	t.Run("skips unknown keys", func(t *testing.T) {
		e := NewEngine(Default())
		updated, applied := e.Update(map[string]interface{}{"no_such_knob": 1})
		assert.Empty(t, applied)
		assert.Equal(t, Default().AmountTolerancePct, updated.AmountTolerancePct)
	})

	t.Run("clamps percentages into range", func(t *testing.T) {
		e := NewEngine(Default())
		updated, applied := e.Update(map[string]interface{}{
			"price_tolerance_pct":         150.0,
			"auto_approve_min_confidence": -5.0,
		})
		assert.Len(t, applied, 2)
		assert.Equal(t, 100.0, updated.PriceTolerancePct)
		assert.Equal(t, 0.0, updated.AutoApproveMinConfidence)
	})

	t.Run("clamps negative day counts to zero", func(t *testing.T) {
		e := NewEngine(Default())
		updated, _ := e.Update(map[string]interface{}{"max_invoice_age_days": -10})
		assert.Equal(t, 0, updated.MaxInvoiceAgeDays)
	})

	t.Run("rejects invalid matching mode", func(t *testing.T) {
		e := NewEngine(Default())
		updated, applied := e.Update(map[string]interface{}{"matching_mode": "four_way"})
		assert.Empty(t, applied)
		assert.Equal(t, "flexible", updated.MatchingMode)
	})

	t.Run("accepts valid matching mode", func(t *testing.T) {
		e := NewEngine(Default())
		updated, applied := e.Update(map[string]interface{}{"matching_mode": "three_way"})
		assert.Equal(t, []string{"matching_mode"}, applied)
		assert.Equal(t, "three_way", updated.MatchingMode)
	})

	t.Run("rejects wrong value types", func(t *testing.T) {
		e := NewEngine(Default())
		_, applied := e.Update(map[string]interface{}{
			"amount_tolerance_pct": "lots",
			"triage_enabled":       "yes",
		})
		assert.Empty(t, applied)
	})

	t.Run("merges currency limits instead of replacing", func(t *testing.T) {
		e := NewEngine(Default())
		updated, applied := e.Update(map[string]interface{}{
			"auto_approve_limits": map[string]interface{}{"CHF": 90000.0},
		})
		assert.Equal(t, []string{"auto_approve_limits"}, applied)
		assert.Equal(t, 90000.0, updated.AutoApproveLimit("CHF"))
		assert.Equal(t, 100000.0, updated.AutoApproveLimit("USD"))
	})
}

func TestEngineApplyPreset(t *testing.T) {
	e := NewEngine(Default())

	updated, err := e.ApplyPreset("strict_audit")
	require.NoError(t, err)
	assert.Equal(t, 0.5, updated.AmountTolerancePct)
	assert.Equal(t, 0.5, e.Snapshot().AmountTolerancePct)

	_, err = e.ApplyPreset("nonexistent")
	assert.Error(t, err)
}

func TestEngineSnapshotIsolation(t *testing.T) {
	e := NewEngine(Default())

	snap := e.Snapshot()
	snap.AutoApproveLimits["USD"] = 1
	snap.AmountTolerancePct = 99

	fresh := e.Snapshot()
	assert.Equal(t, 100000.0, fresh.AutoApproveLimit("USD"))
	assert.Equal(t, Default().AmountTolerancePct, fresh.AmountTolerancePct)
}

func TestEngineConcurrentAccess(t *testing.T) {
	e := NewEngine(Default())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			e.Update(map[string]interface{}{"amount_tolerance_pct": 3.0})
		}()
		go func() {
			defer wg.Done()
			_ = e.Snapshot().AutoApproveLimit("USD")
		}()
	}
	wg.Wait()

	assert.Equal(t, 3.0, e.Snapshot().AmountTolerancePct)
}
