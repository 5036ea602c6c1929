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

const clientColumns = `id, name, phone, email, screening_status, risk_level, notes, last_seen, created_at, updated_at`

func (db *DB) CreateClient(ctx context.Context, c *models.Client) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.ScreeningStatus == "" {
		c.ScreeningStatus = models.ScreeningUnscreened
	}
	if c.RiskLevel == "" {
		c.RiskLevel = models.RiskUnknown
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `INSERT INTO clients (` + clientColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		c.ID, c.Name, c.Phone, c.Email, c.ScreeningStatus, c.RiskLevel, c.Notes,
		nullTime(c.LastSeen), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

func (db *DB) GetClient(ctx context.Context, id string) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = ?`
	c, err := scanClient(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

func (db *DB) UpdateClient(ctx context.Context, c *models.Client) error {
	now := time.Now()
	query := `UPDATE clients SET name = ?, phone = ?, email = ?, screening_status = ?,
                risk_level = ?, notes = ?, last_seen = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query,
		c.Name, c.Phone, c.Email, c.ScreeningStatus, c.RiskLevel, c.Notes,
		nullTime(c.LastSeen), now, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	c.UpdatedAt = now
	return nil
}

func (db *DB) UpdateClientRisk(ctx context.Context, id string, risk models.RiskLevel) error {
	_, err := db.ExecContext(ctx,
		`UPDATE clients SET risk_level = ?, updated_at = ? WHERE id = ?`, risk, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update client risk: %w", err)
	}
	return nil
}

// TouchClientLastSeen stamps last_seen; a missing client is not an error since
// bookings may outlive their client.
func (db *DB) TouchClientLastSeen(ctx context.Context, q DBTX, id string, at time.Time) error {
	if id == "" {
		return nil
	}
	_, err := q.ExecContext(ctx,
		`UPDATE clients SET last_seen = ?, updated_at = ? WHERE id = ?`, at, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to touch client last_seen: %w", err)
	}
	return nil
}

func (db *DB) ListClients(ctx context.Context) ([]*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients ORDER BY name ASC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// DeleteClient removes the client and the ledger, transaction and safety-check
// rows of its bookings. The bookings themselves remain with a dangling weak
// reference, which readers must tolerate.
func (db *DB) DeleteClient(ctx context.Context, id string) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		const bookingIDs = `SELECT id FROM bookings WHERE client_id = ?`
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM transactions WHERE payment_id IN
               (SELECT id FROM booking_payments WHERE booking_id IN (`+bookingIDs+`))`, id); err != nil {
			return fmt.Errorf("failed to delete client transactions: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM booking_payments WHERE booking_id IN (`+bookingIDs+`)`, id); err != nil {
			return fmt.Errorf("failed to delete client payments: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM safety_checks WHERE booking_id IN (`+bookingIDs+`)`, id); err != nil {
			return fmt.Errorf("failed to delete client safety checks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete client: %w", err)
		}
		return nil
	})
}

func scanClient(row rowScanner) (*models.Client, error) {
	c := &models.Client{}
	var lastSeen sql.NullTime
	err := row.Scan(
		&c.ID, &c.Name, &c.Phone, &c.Email, &c.ScreeningStatus, &c.RiskLevel,
		&c.Notes, &lastSeen, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.LastSeen = timePtr(lastSeen)
	return c, nil
}
