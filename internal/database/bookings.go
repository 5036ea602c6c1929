package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clientbook/internal/models"

	"github.com/google/uuid"
)

const bookingColumns = `id, client_id, service, location, date_time, duration_min, status,
       base_rate, extras, travel_fee, deposit_amount, payment_method, deposit_method,
       deposit_received, payment_received,
       requires_safety_check, safety_check_minutes_after, safety_contact_id,
       recurrence, parent_booking_id, recurrence_root_id, notes,
       created_at, updated_at, confirmed_at, completed_at, cancelled_at, version`

func (db *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	return db.CreateBookingIn(ctx, db.DB, b)
}

func (db *DB) CreateBookingIn(ctx context.Context, q DBTX, b *models.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Recurrence == "" {
		b.Recurrence = models.RecurrenceNone
	}
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Version = 1

	query := `INSERT INTO bookings (` + bookingColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := q.ExecContext(ctx, query,
		b.ID, nullString(b.ClientID), b.Service, b.Location, b.DateTime, b.DurationMin, b.Status,
		b.BaseRate, b.Extras, b.TravelFee, b.DepositAmount, b.PaymentMethod, b.DepositMethod,
		b.DepositReceived, b.PaymentReceived,
		b.RequiresSafetyCheck, b.SafetyCheckMinutesAfter, nullString(b.SafetyContactID),
		b.Recurrence, nullString(b.ParentBookingID), nullString(b.RecurrenceRootID), b.Notes,
		b.CreatedAt, b.UpdatedAt, nullTime(b.ConfirmedAt), nullTime(b.CompletedAt), nullTime(b.CancelledAt), b.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return db.GetBookingIn(ctx, db.DB, id)
}

func (db *DB) GetBookingIn(ctx context.Context, q DBTX, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// UpdateBooking writes the full row guarded by optimistic version. Returns
// ErrConcurrentModification when the stored version moved on.
func (db *DB) UpdateBooking(ctx context.Context, b *models.Booking) error {
	return db.UpdateBookingIn(ctx, db.DB, b)
}

func (db *DB) UpdateBookingIn(ctx context.Context, q DBTX, b *models.Booking) error {
	now := time.Now()
	query := `UPDATE bookings SET
                client_id = ?, service = ?, location = ?, date_time = ?, duration_min = ?, status = ?,
                base_rate = ?, extras = ?, travel_fee = ?, deposit_amount = ?,
                payment_method = ?, deposit_method = ?,
                deposit_received = ?, payment_received = ?,
                requires_safety_check = ?, safety_check_minutes_after = ?, safety_contact_id = ?,
                recurrence = ?, parent_booking_id = ?, recurrence_root_id = ?, notes = ?,
                updated_at = ?, confirmed_at = ?, completed_at = ?, cancelled_at = ?,
                version = version + 1
              WHERE id = ? AND version = ?`
	result, err := q.ExecContext(ctx, query,
		nullString(b.ClientID), b.Service, b.Location, b.DateTime, b.DurationMin, b.Status,
		b.BaseRate, b.Extras, b.TravelFee, b.DepositAmount,
		b.PaymentMethod, b.DepositMethod,
		b.DepositReceived, b.PaymentReceived,
		b.RequiresSafetyCheck, b.SafetyCheckMinutesAfter, nullString(b.SafetyContactID),
		b.Recurrence, nullString(b.ParentBookingID), nullString(b.RecurrenceRootID), b.Notes,
		now, nullTime(b.ConfirmedAt), nullTime(b.CompletedAt), nullTime(b.CancelledAt),
		b.ID, b.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	b.UpdatedAt = now
	b.Version++
	return nil
}

// ListOpenBookings returns all bookings not in a terminal state, ordered by
// start time. This is the working set of each engine tick.
func (db *DB) ListOpenBookings(ctx context.Context) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE status NOT IN (?, ?, ?) ORDER BY date_time ASC`
	return db.queryBookings(ctx, query, models.StatusCompleted, models.StatusCancelled, models.StatusNoShow)
}

func (db *DB) ListBookingsInRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE date_time >= ? AND date_time < ? ORDER BY date_time ASC`
	return db.queryBookings(ctx, query, start, end)
}

func (db *DB) ListBookingsByClient(ctx context.Context, clientID string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE client_id = ? ORDER BY date_time DESC`
	return db.queryBookings(ctx, query, clientID)
}

// ListBookingsByRoot returns an entire recurrence chain without walking parent
// pointers. The root booking itself predates the recurrence_root_id column
// convention, so it is matched by id as well.
func (db *DB) ListBookingsByRoot(ctx context.Context, rootID string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE recurrence_root_id = ? OR id = ? ORDER BY date_time ASC`
	return db.queryBookings(ctx, query, rootID, rootID)
}

// ListBookingIDs returns every booking id. Used by one-off maintenance passes.
func (db *DB) ListBookingIDs(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM bookings ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list booking ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan booking id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (db *DB) ChildBookingExists(ctx context.Context, parentID string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE parent_booking_id = ?`, parentID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check child booking: %w", err)
	}
	return count > 0, nil
}

func (db *DB) CountClientNoShows(ctx context.Context, clientID string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE client_id = ? AND status = ?`,
		clientID, models.StatusNoShow).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count no-shows: %w", err)
	}
	return count, nil
}

// DeleteBooking removes a booking together with its ledger, transaction and
// safety-check rows.
func (db *DB) DeleteBooking(ctx context.Context, id string) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM transactions WHERE payment_id IN (SELECT id FROM booking_payments WHERE booking_id = ?)`, id); err != nil {
			return fmt.Errorf("failed to delete booking transactions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM booking_payments WHERE booking_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete booking payments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM safety_checks WHERE booking_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete booking safety check: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete booking: %w", err)
		}
		return nil
	})
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	var clientID, safetyContactID, parentID, rootID sql.NullString
	var confirmedAt, completedAt, cancelledAt sql.NullTime
	err := row.Scan(
		&b.ID, &clientID, &b.Service, &b.Location, &b.DateTime, &b.DurationMin, &b.Status,
		&b.BaseRate, &b.Extras, &b.TravelFee, &b.DepositAmount, &b.PaymentMethod, &b.DepositMethod,
		&b.DepositReceived, &b.PaymentReceived,
		&b.RequiresSafetyCheck, &b.SafetyCheckMinutesAfter, &safetyContactID,
		&b.Recurrence, &parentID, &rootID, &b.Notes,
		&b.CreatedAt, &b.UpdatedAt, &confirmedAt, &completedAt, &cancelledAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	b.ClientID = clientID.String
	b.SafetyContactID = safetyContactID.String
	b.ParentBookingID = parentID.String
	b.RecurrenceRootID = rootID.String
	b.ConfirmedAt = timePtr(confirmedAt)
	b.CompletedAt = timePtr(completedAt)
	b.CancelledAt = timePtr(cancelledAt)
	return b, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
