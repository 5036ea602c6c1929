package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clientbook/internal/models"
)

const dayLayout = "2006-01-02"

func (db *DB) UpsertDayAvailability(ctx context.Context, rec *models.DayAvailability) error {
	now := time.Now()
	query := `INSERT INTO day_availability (date, status, start_minute, end_minute, updated_at)
              VALUES (?, ?, ?, ?, ?)
              ON CONFLICT(date) DO UPDATE SET
                status = excluded.status,
                start_minute = excluded.start_minute,
                end_minute = excluded.end_minute,
                updated_at = excluded.updated_at`
	_, err := db.ExecContext(ctx, query,
		rec.Date.Format(dayLayout), rec.Status, rec.StartMinute, rec.EndMinute, now)
	if err != nil {
		return fmt.Errorf("failed to upsert day availability: %w", err)
	}
	rec.UpdatedAt = now
	return nil
}

// GetDayAvailability returns nil without error for days with no record, which
// are treated as open.
func (db *DB) GetDayAvailability(ctx context.Context, date time.Time) (*models.DayAvailability, error) {
	query := `SELECT date, status, start_minute, end_minute, updated_at FROM day_availability WHERE date = ?`
	rec := &models.DayAvailability{}
	var dateStr string
	err := db.QueryRowContext(ctx, query, date.Format(dayLayout)).Scan(
		&dateStr, &rec.Status, &rec.StartMinute, &rec.EndMinute, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get day availability: %w", err)
	}
	parsed, err := time.ParseInLocation(dayLayout, dateStr, date.Location())
	if err != nil {
		return nil, fmt.Errorf("failed to parse availability date %s: %w", dateStr, err)
	}
	rec.Date = parsed
	return rec, nil
}

// NarrowDayToWindow marks the day limited to exactly [startMinute, endMinute).
// Used when the user overrides an availability conflict: the day narrows to
// the booking's slot.
func (db *DB) NarrowDayToWindow(ctx context.Context, date time.Time, startMinute, endMinute int) error {
	return db.UpsertDayAvailability(ctx, &models.DayAvailability{
		Date:        date,
		Status:      models.DayLimited,
		StartMinute: startMinute,
		EndMinute:   endMinute,
	})
}
