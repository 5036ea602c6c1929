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

const paymentColumns = `id, booking_id, amount, method, label, date, notes, created_at`
const transactionColumns = `id, payment_id, type, category, amount, date, description, created_at`

func (db *DB) CreatePayment(ctx context.Context, q DBTX, p *models.BookingPayment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	query := `INSERT INTO booking_payments (` + paymentColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := q.ExecContext(ctx, query,
		p.ID, p.BookingID, p.Amount, p.Method, p.Label, p.Date, p.Notes, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (db *DB) GetPayment(ctx context.Context, id string) (*models.BookingPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM booking_payments WHERE id = ?`
	p, err := scanPayment(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

func (db *DB) DeletePayment(ctx context.Context, q DBTX, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM booking_payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) ListPaymentsForBooking(ctx context.Context, bookingID string) ([]*models.BookingPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM booking_payments WHERE booking_id = ? ORDER BY date ASC, created_at ASC`
	rows, err := db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.BookingPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (db *DB) SumPaymentsForBooking(ctx context.Context, q DBTX, bookingID string) (models.Cents, error) {
	var total models.Cents
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM booking_payments WHERE booking_id = ?`, bookingID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum payments: %w", err)
	}
	return total, nil
}

func (db *DB) HasPaymentWithLabel(ctx context.Context, q DBTX, bookingID string, label models.PaymentLabel) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM booking_payments WHERE booking_id = ? AND label = ?`, bookingID, label).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check payment label: %w", err)
	}
	return count > 0, nil
}

// SetBookingPaymentFlags writes the derived deposit/paid caches. The version
// bump makes a concurrent engine update fail fast and retry on a fresh read.
func (db *DB) SetBookingPaymentFlags(ctx context.Context, q DBTX, bookingID string, depositReceived, paymentReceived bool) error {
	_, err := q.ExecContext(ctx,
		`UPDATE bookings SET deposit_received = ?, payment_received = ?, updated_at = ?, version = version + 1 WHERE id = ?`,
		depositReceived, paymentReceived, time.Now(), bookingID)
	if err != nil {
		return fmt.Errorf("failed to set payment flags: %w", err)
	}
	return nil
}

func (db *DB) CreateTransaction(ctx context.Context, q DBTX, t *models.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	query := `INSERT INTO transactions (` + transactionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := q.ExecContext(ctx, query,
		t.ID, nullString(t.PaymentID), t.Type, t.Category, t.Amount, t.Date, t.Description, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (db *DB) DeleteTransactionsForPayment(ctx context.Context, q DBTX, paymentID string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM transactions WHERE payment_id = ?`, paymentID)
	if err != nil {
		return fmt.Errorf("failed to delete transactions for payment: %w", err)
	}
	return nil
}

func (db *DB) ListTransactionsInRange(ctx context.Context, start, end time.Time) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE date >= ? AND date < ? ORDER BY date ASC`
	rows, err := db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (db *DB) ListTransactionsForPayment(ctx context.Context, paymentID string) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE payment_id = ?`
	rows, err := db.QueryContext(ctx, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func scanPayment(row rowScanner) (*models.BookingPayment, error) {
	p := &models.BookingPayment{}
	err := row.Scan(&p.ID, &p.BookingID, &p.Amount, &p.Method, &p.Label, &p.Date, &p.Notes, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	t := &models.Transaction{}
	var paymentID sql.NullString
	err := row.Scan(&t.ID, &paymentID, &t.Type, &t.Category, &t.Amount, &t.Date, &t.Description, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.PaymentID = paymentID.String
	return t, nil
}
