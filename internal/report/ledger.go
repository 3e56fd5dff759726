package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/pipeaudit/internal/models"
)

// Ledger is the append-only evidence list of one run. Ids are ev-001,
// ev-002, ... in insertion order.
type Ledger struct {
	entries []models.Evidence
	index   map[string]int
	now     func() time.Time
}

// NewLedger creates an empty ledger stamping entries with now. A nil now
// means time.Now.
func NewLedger(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		entries: []models.Evidence{},
		index:   make(map[string]int),
		now:     now,
	}
}

// Record appends the trimmed sql for source and returns its id.
func (l *Ledger) Record(source, sql string) string {
	id := fmt.Sprintf("ev-%03d", len(l.entries)+1)
	l.index[id] = len(l.entries)
	l.entries = append(l.entries, models.Evidence{
		ID:          id,
		Source:      source,
		SQL:         strings.TrimSpace(sql),
		CollectedAt: l.now().UTC().Format(time.RFC3339),
	})
	return id
}

// Get returns the entry with id.
func (l *Ledger) Get(id string) (models.Evidence, bool) {
	i, ok := l.index[id]
	if !ok {
		return models.Evidence{}, false
	}
	return l.entries[i], true
}

// All returns a copy of every entry in insertion order.
func (l *Ledger) All() []models.Evidence {
	return append([]models.Evidence{}, l.entries...)
}

func (l *Ledger) Len() int {
	return len(l.entries)
}
