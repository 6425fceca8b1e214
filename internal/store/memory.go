package store

import (
	"context"
	"sync"
	"time"
)

// DeliveryRecord is one outbound SMS attempt.
type DeliveryRecord struct {
	ID        string
	To        string
	From      string
	Backend   string
	Status    string
	ErrorText string
	MessageID string
	CreatedAt time.Time
}

// DeliveryLog is an append-only journal of outbound SMS attempts.
type DeliveryLog interface {
	Record(ctx context.Context, rec DeliveryRecord) error
}

// MemoryDeliveryLog keeps the most recent maxRecords deliveries in memory.
type MemoryDeliveryLog struct {
	mu         sync.RWMutex
	records    []DeliveryRecord
	maxRecords int
}

func NewMemoryDeliveryLog(maxRecords int) *MemoryDeliveryLog {
	return &MemoryDeliveryLog{maxRecords: maxRecords}
}

func (m *MemoryDeliveryLog) Record(_ context.Context, rec DeliveryRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	m.trimLocked()
	return nil
}

// Recent returns a copy of the retained records, oldest first.
func (m *MemoryDeliveryLog) Recent() []DeliveryRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]DeliveryRecord, len(m.records))
	copy(out, m.records)
	return out
}

func (m *MemoryDeliveryLog) trimLocked() {
	if m.maxRecords <= 0 {
		return
	}
	if len(m.records) > m.maxRecords {
		m.records = append([]DeliveryRecord(nil), m.records[len(m.records)-m.maxRecords:]...)
	}
}
