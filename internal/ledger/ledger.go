package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"clientbook/internal/database"
	"clientbook/internal/models"

	"github.com/rs/zerolog"
)

const flagsMigratedKey = "ledger_flags_migrated"

// Ledger owns all money movement against bookings. Every payment write goes
// through here so the mirrored transaction row and the derived deposit/paid
// flags on the booking can never drift apart.
type Ledger struct {
	db     *database.DB
	logger zerolog.Logger
	now    func() time.Time
}

func New(db *database.DB, logger *zerolog.Logger) *Ledger {
	return &Ledger{
		db:     db,
		logger: logger.With().Str("component", "ledger").Logger(),
		now:    time.Now,
	}
}

// RecordPayment appends a ledger entry to the booking, mirrors it into the
// transaction log and recomputes the booking's payment flags, all in one
// transaction.
func (l *Ledger) RecordPayment(ctx context.Context, p *models.BookingPayment) error {
	booking, err := l.db.GetBooking(ctx, p.BookingID)
	if err != nil {
		return fmt.Errorf("record payment: %w", err)
	}

	if p.Label == "" {
		p.Label = models.LabelPayment
	}
	if p.Date.IsZero() {
		p.Date = l.now()
	}

	err = l.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := l.db.CreatePayment(ctx, tx, p); err != nil {
			return err
		}
		if err := l.mirrorTransaction(ctx, tx, booking, p); err != nil {
			return err
		}
		return l.recomputeFlags(ctx, tx, booking.ID)
	})
	if err != nil {
		return err
	}

	l.logger.Info().
		Str("booking_id", p.BookingID).
		Str("payment_id", p.ID).
		Str("label", string(p.Label)).
		Int64("amount_cents", int64(p.Amount)).
		Msg("payment recorded")
	return nil
}

// RemovePayment deletes a ledger entry together with its mirrored
// transactions and recomputes the booking's flags. Removing the last deposit
// entry clears the deposit flag again.
func (l *Ledger) RemovePayment(ctx context.Context, paymentID string) error {
	payment, err := l.db.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("remove payment: %w", err)
	}

	err = l.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := l.db.DeleteTransactionsForPayment(ctx, tx, paymentID); err != nil {
			return err
		}
		if err := l.db.DeletePayment(ctx, tx, paymentID); err != nil {
			return err
		}
		return l.recomputeFlags(ctx, tx, payment.BookingID)
	})
	if err != nil {
		return err
	}

	l.logger.Info().
		Str("booking_id", payment.BookingID).
		Str("payment_id", paymentID).
		Msg("payment removed")
	return nil
}

// TotalPaid sums every ledger entry of the booking, tips included.
func (l *Ledger) TotalPaid(ctx context.Context, bookingID string) (models.Cents, error) {
	return l.db.SumPaymentsForBooking(ctx, l.db.DB, bookingID)
}

// Balance is the amount still owed toward the session price. Never negative.
func (l *Ledger) Balance(ctx context.Context, booking *models.Booking) (models.Cents, error) {
	paid, err := l.db.SumPaymentsForBooking(ctx, l.db.DB, booking.ID)
	if err != nil {
		return 0, err
	}
	owed := booking.Total() - paid
	if owed < 0 {
		owed = 0
	}
	return owed, nil
}

// RecomputeFlags re-derives the booking's deposit/paid flags from the ledger.
func (l *Ledger) RecomputeFlags(ctx context.Context, bookingID string) error {
	return l.db.WithTx(ctx, func(tx *sql.Tx) error {
		return l.recomputeFlags(ctx, tx, bookingID)
	})
}

// SettleTx records the outstanding balance as a final payment and marks the
// booking fully paid. It runs inside the caller's transaction so settlement
// and the status change that triggered it commit together.
func (l *Ledger) SettleTx(ctx context.Context, q database.DBTX, booking *models.Booking) error {
	paid, err := l.db.SumPaymentsForBooking(ctx, q, booking.ID)
	if err != nil {
		return err
	}

	if owed := booking.Total() - paid; owed > 0 {
		p := &models.BookingPayment{
			BookingID: booking.ID,
			Amount:    owed,
			Method:    booking.PaymentMethod,
			Label:     models.LabelPayment,
			Date:      l.now(),
			Notes:     "settled on completion",
		}
		if err := l.db.CreatePayment(ctx, q, p); err != nil {
			return err
		}
		if err := l.mirrorTransaction(ctx, q, booking, p); err != nil {
			return err
		}
	}

	hasDeposit, err := l.db.HasPaymentWithLabel(ctx, q, booking.ID, models.LabelDeposit)
	if err != nil {
		return err
	}
	booking.DepositReceived = hasDeposit
	booking.PaymentReceived = true
	return l.db.SetBookingPaymentFlags(ctx, q, booking.ID, hasDeposit, true)
}

// MigrateLegacyFlags re-derives payment flags for every booking once, for
// databases written before the flags became ledger-derived. Guarded by a
// settings marker so restarts do not repeat the pass.
func (l *Ledger) MigrateLegacyFlags(ctx context.Context) error {
	done, err := l.db.GetSetting(ctx, flagsMigratedKey)
	if err != nil {
		return fmt.Errorf("migrate flags: %w", err)
	}
	if done != "" {
		return nil
	}

	ids, err := l.db.ListBookingIDs(ctx)
	if err != nil {
		return fmt.Errorf("migrate flags: %w", err)
	}

	err = l.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if err := l.recomputeFlags(ctx, tx, id); err != nil {
				return err
			}
		}
		return l.db.SetSetting(ctx, tx, flagsMigratedKey, l.now().Format(time.RFC3339))
	})
	if err != nil {
		return err
	}

	l.logger.Info().Int("bookings", len(ids)).Msg("payment flags migrated")
	return nil
}

// mirrorTransaction writes the transaction-log twin of a payment. Positive
// amounts become income, negative adjustments become expenses, zero-amount
// entries have no twin.
func (l *Ledger) mirrorTransaction(ctx context.Context, q database.DBTX, booking *models.Booking, p *models.BookingPayment) error {
	if p.Amount == 0 {
		return nil
	}

	t := &models.Transaction{
		PaymentID:   p.ID,
		Type:        models.TransactionIncome,
		Category:    models.CategoryBooking,
		Amount:      p.Amount,
		Date:        p.Date,
		Description: fmt.Sprintf("%s for %s", p.Label, booking.Service),
	}
	if p.Amount < 0 {
		t.Type = models.TransactionExpense
		t.Amount = -p.Amount
	}
	if p.Label == models.LabelTip {
		t.Category = models.CategoryTip
	}
	return l.db.CreateTransaction(ctx, q, t)
}

// recomputeFlags derives the booking's cached flags from the ledger:
// deposit received when a Deposit-labeled entry exists, fully paid when the
// ledger sum covers the session price.
func (l *Ledger) recomputeFlags(ctx context.Context, q database.DBTX, bookingID string) error {
	booking, err := l.db.GetBookingIn(ctx, q, bookingID)
	if err != nil {
		return err
	}

	hasDeposit, err := l.db.HasPaymentWithLabel(ctx, q, bookingID, models.LabelDeposit)
	if err != nil {
		return err
	}
	paidTotal, err := l.db.SumPaymentsForBooking(ctx, q, bookingID)
	if err != nil {
		return err
	}

	paid := paidTotal >= booking.Total()
	if booking.DepositReceived == hasDeposit && booking.PaymentReceived == paid {
		return nil
	}
	return l.db.SetBookingPaymentFlags(ctx, q, bookingID, hasDeposit, paid)
}
