package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound               = errors.New("record not found")
	ErrConcurrentModification = errors.New("record was modified concurrently")
	ErrConflict               = errors.New("record already exists")
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx. Store methods that
// participate in multi-step transitions accept it so callers can group writes
// into one transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{DB: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS clients (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            phone TEXT,
            email TEXT,
            screening_status TEXT NOT NULL DEFAULT 'unscreened',
            risk_level TEXT NOT NULL DEFAULT 'unknown',
            notes TEXT,
            last_seen DATETIME,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,

		`CREATE TABLE IF NOT EXISTS bookings (
            id TEXT PRIMARY KEY,
            client_id TEXT,
            service TEXT,
            location TEXT,
            date_time DATETIME NOT NULL,
            duration_min INTEGER NOT NULL,
            status TEXT NOT NULL,
            base_rate INTEGER NOT NULL DEFAULT 0,
            extras INTEGER NOT NULL DEFAULT 0,
            travel_fee INTEGER NOT NULL DEFAULT 0,
            deposit_amount INTEGER NOT NULL DEFAULT 0,
            payment_method TEXT,
            deposit_method TEXT,
            deposit_received BOOLEAN NOT NULL DEFAULT 0,
            payment_received BOOLEAN NOT NULL DEFAULT 0,
            requires_safety_check BOOLEAN NOT NULL DEFAULT 0,
            safety_check_minutes_after INTEGER NOT NULL DEFAULT 0,
            safety_contact_id TEXT,
            recurrence TEXT NOT NULL DEFAULT 'none',
            parent_booking_id TEXT,
            recurrence_root_id TEXT,
            notes TEXT,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            confirmed_at DATETIME,
            completed_at DATETIME,
            cancelled_at DATETIME,
            version INTEGER NOT NULL DEFAULT 1
        )`,

		`CREATE TABLE IF NOT EXISTS booking_payments (
            id TEXT PRIMARY KEY,
            booking_id TEXT NOT NULL,
            amount INTEGER NOT NULL,
            method TEXT,
            label TEXT NOT NULL,
            date DATETIME NOT NULL,
            notes TEXT,
            created_at DATETIME NOT NULL
        )`,

		`CREATE TABLE IF NOT EXISTS transactions (
            id TEXT PRIMARY KEY,
            payment_id TEXT,
            type TEXT NOT NULL,
            category TEXT NOT NULL,
            amount INTEGER NOT NULL,
            date DATETIME NOT NULL,
            description TEXT,
            created_at DATETIME NOT NULL
        )`,

		`CREATE TABLE IF NOT EXISTS safety_checks (
            id TEXT PRIMARY KEY,
            booking_id TEXT NOT NULL UNIQUE,
            safety_contact_id TEXT,
            scheduled_time DATETIME NOT NULL,
            buffer_minutes INTEGER NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            checked_in_at DATETIME,
            created_at DATETIME NOT NULL
        )`,

		`CREATE TABLE IF NOT EXISTS safety_contacts (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            phone TEXT,
            email TEXT,
            relationship TEXT,
            created_at DATETIME NOT NULL
        )`,

		`CREATE TABLE IF NOT EXISTS day_availability (
            date TEXT PRIMARY KEY,
            status TEXT NOT NULL,
            start_minute INTEGER NOT NULL DEFAULT 0,
            end_minute INTEGER NOT NULL DEFAULT 0,
            updated_at DATETIME NOT NULL
        )`,

		`CREATE TABLE IF NOT EXISTS settings (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_client_id ON bookings(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_date_time ON bookings(date_time)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_parent ON bookings(parent_booking_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_root ON bookings(recurrence_root_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_booking_id ON booking_payments(booking_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_payment_id ON transactions(payment_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date)`,
		`CREATE INDEX IF NOT EXISTS idx_safety_checks_status ON safety_checks(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// WithTx runs fn inside a transaction, rolling back on error. Transitions that
// touch more than one record go through this so a crash mid-tick cannot leave
// a booking half-applied.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *DB) Close() error {
	return db.DB.Close()
}
