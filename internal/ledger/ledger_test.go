package ledger

import (
	"context"
	"testing"
	"time"

	"clientbook/internal/database"
	"clientbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*Ledger, *database.DB) {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, &logger), db
}

func createBooking(t *testing.T, db *database.DB, base, deposit models.Cents) *models.Booking {
	t.Helper()
	b := &models.Booking{
		Service:       "standard",
		DateTime:      time.Now().Add(24 * time.Hour),
		DurationMin:   60,
		Status:        models.StatusConfirmed,
		BaseRate:      base,
		DepositAmount: deposit,
		PaymentMethod: "cash",
	}
	require.NoError(t, db.CreateBooking(context.Background(), b))
	return b
}

func TestRecordPaymentSetsDepositFlag(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()
	b := createBooking(t, db, 60000, 15000)

	err := l.RecordPayment(ctx, &models.BookingPayment{
		BookingID: b.ID,
		Amount:    15000,
		Method:    "venmo",
		Label:     models.LabelDeposit,
	})
	require.NoError(t, err)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.DepositReceived)
	assert.False(t, got.PaymentReceived, "deposit alone does not cover the total")

	total, err := l.TotalPaid(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Cents(15000), total)
}

func TestRecordPaymentMirrorsTransaction(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()
	b := createBooking(t, db, 60000, 15000)

	p := &models.BookingPayment{BookingID: b.ID, Amount: 15000, Label: models.LabelDeposit}
	require.NoError(t, l.RecordPayment(ctx, p))

	txns, err := db.ListTransactionsForPayment(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, models.TransactionIncome, txns[0].Type)
	assert.Equal(t, models.CategoryBooking, txns[0].Category)
	assert.Equal(t, models.Cents(15000), txns[0].Amount)
	assert.Equal(t, p.ID, txns[0].PaymentID)
}

func TestTipMirrorsTipCategory(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()
	b := createBooking(t, db, 60000, 0)

	p := &models.BookingPayment{BookingID: b.ID, Amount: 10000, Label: models.LabelTip}
	require.NoError(t, l.RecordPayment(ctx, p))

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, got.PaymentReceived)

	owed, err := l.Balance(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, models.Cents(50000), owed)

	txns, err := db.ListTransactionsForPayment(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, models.CategoryTip, txns[0].Category)
}

func TestFullPaymentSetsPaidFlag(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()
	b := createBooking(t, db, 60000, 15000)

	require.NoError(t, l.RecordPayment(ctx, &models.BookingPayment{
		BookingID: b.ID, Amount: 15000, Label: models.LabelDeposit,
	}))
	require.NoError(t, l.RecordPayment(ctx, &models.BookingPayment{
		BookingID: b.ID, Amount: 45000, Label: models.LabelPayment,
	}))

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.DepositReceived)
	assert.True(t, got.PaymentReceived)
}

func TestRemovePaymentClearsFlagsAndTransactions(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()
	b := createBooking(t, db, 60000, 15000)

	p := &models.BookingPayment{BookingID: b.ID, Amount: 15000, Label: models.LabelDeposit}
	require.NoError(t, l.RecordPayment(ctx, p))
	require.NoError(t, l.RemovePayment(ctx, p.ID))

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, got.DepositReceived, "removing the only deposit clears the flag")

	txns, err := db.ListTransactionsForPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, txns)

	_, err = db.GetPayment(ctx, p.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRemovePaymentUnknownID(t *testing.T) {
	l, _ := newTestLedger(t)
	err := l.RemovePayment(context.Background(), "missing")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestNegativeAdjustmentMirrorsExpense(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()
	b := createBooking(t, db, 60000, 0)

	p := &models.BookingPayment{BookingID: b.ID, Amount: -5000, Label: models.LabelAdjustment}
	require.NoError(t, l.RecordPayment(ctx, p))

	txns, err := db.ListTransactionsForPayment(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, models.TransactionExpense, txns[0].Type)
	assert.Equal(t, models.Cents(5000), txns[0].Amount)
}

func TestSettleTxRecordsRemainder(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()
	b := createBooking(t, db, 60000, 15000)

	require.NoError(t, l.RecordPayment(ctx, &models.BookingPayment{
		BookingID: b.ID, Amount: 15000, Label: models.LabelDeposit,
	}))

	require.NoError(t, l.SettleTx(ctx, db.DB, b))

	payments, err := db.ListPaymentsForBooking(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)

	var remainder *models.BookingPayment
	for _, p := range payments {
		if p.Label == models.LabelPayment {
			remainder = p
		}
	}
	require.NotNil(t, remainder)
	assert.Equal(t, models.Cents(45000), remainder.Amount)
	assert.Equal(t, "cash", remainder.Method)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.DepositReceived)
	assert.True(t, got.PaymentReceived)
}

func TestSettleTxAlreadyPaidAddsNothing(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()
	b := createBooking(t, db, 60000, 0)

	require.NoError(t, l.RecordPayment(ctx, &models.BookingPayment{
		BookingID: b.ID, Amount: 60000, Label: models.LabelPayment,
	}))
	require.NoError(t, l.SettleTx(ctx, db.DB, b))

	payments, err := db.ListPaymentsForBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.PaymentReceived)
}

func TestMigrateLegacyFlagsRunsOnce(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()
	b := createBooking(t, db, 60000, 15000)

	// Simulate a pre-ledger row whose flags drifted from its payments.
	require.NoError(t, db.CreatePayment(ctx, db.DB, &models.BookingPayment{
		BookingID: b.ID, Amount: 15000, Label: models.LabelDeposit, Date: time.Now(),
	}))

	require.NoError(t, l.MigrateLegacyFlags(ctx))

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.DepositReceived)

	require.NoError(t, l.RemovePayment(ctx, mustOnlyPaymentID(t, db, b.ID)))
	require.NoError(t, l.MigrateLegacyFlags(ctx), "second run is a no-op")
}

func mustOnlyPaymentID(t *testing.T, db *database.DB, bookingID string) string {
	t.Helper()
	payments, err := db.ListPaymentsForBooking(context.Background(), bookingID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	return payments[0].ID
}
