package storage

import (
	"context"
	"sync"

	"github.com/your-org/vsconsole/internal/models"
)

// MemoryAudit keeps the most recent audit entries in process. It is used
// when no database is configured.
type MemoryAudit struct {
	mu      sync.Mutex
	entries []models.AuditEntry
	max     int
}

func NewMemoryAudit(capacity int) *MemoryAudit {
	if capacity <= 0 {
		capacity = DefaultAuditLimit
	}
	return &MemoryAudit{max: capacity}
}

func (m *MemoryAudit) Record(_ context.Context, e models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	if len(m.entries) > m.max {
		m.entries = m.entries[len(m.entries)-m.max:]
	}
	return nil
}

// List returns the newest entries first.
func (m *MemoryAudit) List(_ context.Context, limit int) ([]models.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]models.AuditEntry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}
