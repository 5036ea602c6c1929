package export

import (
	"context"
	"testing"
	"time"

	"clientbook/internal/database"
	"clientbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteRange(t *testing.T) {
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	b := &models.Booking{
		Service:       "standard",
		DateTime:      time.Date(2026, 3, 6, 19, 0, 0, 0, time.UTC),
		DurationMin:   90,
		Status:        models.StatusCompleted,
		BaseRate:      60000,
		DepositAmount: 15000,
	}
	require.NoError(t, db.CreateBooking(ctx, b))
	require.NoError(t, db.CreatePayment(ctx, db.DB, &models.BookingPayment{
		BookingID: b.ID, Amount: 15000, Label: models.LabelDeposit,
		Date: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}))

	e := New(db, t.TempDir(), &logger)
	path, err := e.WriteRange(ctx,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	id, err := f.GetCellValue("Bookings", "A2")
	require.NoError(t, err)
	assert.Equal(t, b.ID, id)

	total, err := f.GetCellValue("Bookings", "G2")
	require.NoError(t, err)
	assert.Equal(t, "600.00", total)

	label, err := f.GetCellValue("Ledger", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Deposit", label)

	amount, err := f.GetCellValue("Ledger", "E2")
	require.NoError(t, err)
	assert.Equal(t, "150.00", amount)
}

func TestWriteRangeEmpty(t *testing.T) {
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	e := New(db, t.TempDir(), &logger)
	path, err := e.WriteRange(context.Background(),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Bookings", "A1")
	require.NoError(t, err)
	assert.Equal(t, "ID", header)
}
