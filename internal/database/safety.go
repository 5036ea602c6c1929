package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"clientbook/internal/models"

	"github.com/google/uuid"
)

const safetyCheckColumns = `id, booking_id, safety_contact_id, scheduled_time, buffer_minutes, status, checked_in_at, created_at`

// CreateSafetyCheck inserts a check; the UNIQUE constraint on booking_id is
// the backstop that keeps the one-check-per-booking invariant even if two
// ticks race. Returns ErrConflict in that case.
func (db *DB) CreateSafetyCheck(ctx context.Context, q DBTX, c *models.SafetyCheck) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = models.SafetyPending
	}
	if c.BufferMinutes <= 0 {
		c.BufferMinutes = models.DefaultSafetyBufferMinutes
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	query := `INSERT INTO safety_checks (` + safetyCheckColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := q.ExecContext(ctx, query,
		c.ID, c.BookingID, nullString(c.SafetyContactID), c.ScheduledTime,
		c.BufferMinutes, c.Status, nullTime(c.CheckedInAt), c.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrConflict
		}
		return fmt.Errorf("failed to create safety check: %w", err)
	}
	return nil
}

func (db *DB) GetSafetyCheck(ctx context.Context, id string) (*models.SafetyCheck, error) {
	query := `SELECT ` + safetyCheckColumns + ` FROM safety_checks WHERE id = ?`
	c, err := scanSafetyCheck(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get safety check: %w", err)
	}
	return c, nil
}

// GetSafetyCheckForBooking returns nil without error when no check exists.
func (db *DB) GetSafetyCheckForBooking(ctx context.Context, q DBTX, bookingID string) (*models.SafetyCheck, error) {
	query := `SELECT ` + safetyCheckColumns + ` FROM safety_checks WHERE booking_id = ?`
	c, err := scanSafetyCheck(q.QueryRowContext(ctx, query, bookingID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get safety check for booking: %w", err)
	}
	return c, nil
}

func (db *DB) ListSafetyChecksByStatus(ctx context.Context, status models.SafetyCheckStatus) ([]*models.SafetyCheck, error) {
	query := `SELECT ` + safetyCheckColumns + ` FROM safety_checks WHERE status = ? ORDER BY scheduled_time ASC`
	rows, err := db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list safety checks: %w", err)
	}
	defer rows.Close()

	var checks []*models.SafetyCheck
	for rows.Next() {
		c, err := scanSafetyCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan safety check: %w", err)
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

func (db *DB) UpdateSafetyCheckStatus(ctx context.Context, id string, status models.SafetyCheckStatus, checkedInAt *time.Time) error {
	result, err := db.ExecContext(ctx,
		`UPDATE safety_checks SET status = ?, checked_in_at = ? WHERE id = ?`,
		status, nullTime(checkedInAt), id)
	if err != nil {
		return fmt.Errorf("failed to update safety check status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSafetyCheck(row rowScanner) (*models.SafetyCheck, error) {
	c := &models.SafetyCheck{}
	var contactID sql.NullString
	var checkedInAt sql.NullTime
	err := row.Scan(&c.ID, &c.BookingID, &contactID, &c.ScheduledTime,
		&c.BufferMinutes, &c.Status, &checkedInAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.SafetyContactID = contactID.String
	c.CheckedInAt = timePtr(checkedInAt)
	return c, nil
}

const safetyContactColumns = `id, name, phone, email, relationship, created_at`

func (db *DB) CreateSafetyContact(ctx context.Context, c *models.SafetyContact) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	query := `INSERT INTO safety_contacts (` + safetyContactColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query, c.ID, c.Name, c.Phone, c.Email, c.Relationship, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create safety contact: %w", err)
	}
	return nil
}

func (db *DB) GetSafetyContact(ctx context.Context, id string) (*models.SafetyContact, error) {
	query := `SELECT ` + safetyContactColumns + ` FROM safety_contacts WHERE id = ?`
	c := &models.SafetyContact{}
	err := db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Relationship, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get safety contact: %w", err)
	}
	return c, nil
}

func (db *DB) ListSafetyContacts(ctx context.Context) ([]*models.SafetyContact, error) {
	query := `SELECT ` + safetyContactColumns + ` FROM safety_contacts ORDER BY name ASC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list safety contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*models.SafetyContact
	for rows.Next() {
		c := &models.SafetyContact{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Relationship, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan safety contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}
