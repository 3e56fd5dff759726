package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRecord(t *testing.T) {
	tick := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ledger := NewLedger(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	})

	assert.Equal(t, "ev-001", ledger.Record("system.parts", "\n  SELECT 1\n"))
	assert.Equal(t, "ev-002", ledger.Record("system.merges", "SELECT 2"))
	assert.Equal(t, 2, ledger.Len())

	e, ok := ledger.Get("ev-001")
	require.True(t, ok)
	assert.Equal(t, "system.parts", e.Source)
	assert.Equal(t, "SELECT 1", e.SQL)
	assert.Equal(t, "2026-01-02T03:04:06Z", e.CollectedAt)

	_, ok = ledger.Get("ev-003")
	assert.False(t, ok)
}

func TestLedgerIDsHaveNoGaps(t *testing.T) {
	ledger := NewLedger(nil)
	for i := 0; i < 120; i++ {
		ledger.Record("system.parts", "SELECT 1")
	}

	all := ledger.All()
	require.Len(t, all, 120)
	assert.Equal(t, "ev-001", all[0].ID)
	assert.Equal(t, "ev-099", all[98].ID)
	assert.Equal(t, "ev-100", all[99].ID)
	assert.Equal(t, "ev-120", all[119].ID)
}

func TestLedgerAllReturnsCopy(t *testing.T) {
	ledger := NewLedger(nil)
	ledger.Record("system.disks", "SELECT 1")

	all := ledger.All()
	all[0].SQL = "mutated"

	e, _ := ledger.Get("ev-001")
	assert.Equal(t, "SELECT 1", e.SQL)
	assert.NotNil(t, NewLedger(nil).All())
}
