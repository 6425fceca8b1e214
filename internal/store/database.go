package store

import (
	"context"
	"fmt"
	"time"

	"dad-joke-hotline/internal/db"
)

// DatabaseDeliveryLog writes delivery records to the sms_deliveries table.
type DatabaseDeliveryLog struct {
	db *db.DB
}

func NewDatabaseDeliveryLog(database *db.DB) *DatabaseDeliveryLog {
	return &DatabaseDeliveryLog{db: database}
}

func (ds *DatabaseDeliveryLog) Record(ctx context.Context, rec DeliveryRecord) error {
	if rec.ID == "" || rec.To == "" {
		return fmt.Errorf("id and to are required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO sms_deliveries (id, to_number, from_number, backend, status, error_text, message_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			error_text = EXCLUDED.error_text,
			message_id = EXCLUDED.message_id
	`
	_, err := ds.db.ExecContext(ctx, query,
		rec.ID, rec.To, rec.From, rec.Backend, rec.Status, rec.ErrorText, rec.MessageID, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}
