package recurrence

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

func newTestSpawner(t *testing.T) (*Spawner, *database.DB) {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, &logger), db
}

func seedCompleted(t *testing.T, db *database.DB, rec models.Recurrence, screening models.ScreeningStatus) *models.Booking {
	t.Helper()
	ctx := context.Background()

	client := &models.Client{Name: "Alex", ScreeningStatus: screening}
	require.NoError(t, db.CreateClient(ctx, client))

	b := &models.Booking{
		ClientID:      client.ID,
		Service:       "standard",
		DateTime:      time.Date(2026, 3, 6, 19, 0, 0, 0, time.UTC),
		DurationMin:   90,
		Status:        models.StatusCompleted,
		BaseRate:      60000,
		DepositAmount: 15000,
		Recurrence:    rec,
	}
	require.NoError(t, db.CreateBooking(ctx, b))
	return b
}

func TestSpawnNextWeekly(t *testing.T) {
	s, db := newTestSpawner(t)
	ctx := context.Background()
	parent := seedCompleted(t, db, models.RecurrenceWeekly, models.ScreeningScreened)

	child, err := s.SpawnNext(ctx, parent)
	require.NoError(t, err)
	require.NotNil(t, child)

	assert.Equal(t, parent.DateTime.AddDate(0, 0, 7), child.DateTime)
	assert.Equal(t, models.StatusConfirmed, child.Status)
	require.NotNil(t, child.ConfirmedAt)
	assert.Equal(t, parent.ID, child.ParentBookingID)
	assert.Equal(t, parent.ID, child.RecurrenceRootID, "parent is the chain root")
	assert.Equal(t, parent.ClientID, child.ClientID)
	assert.Equal(t, parent.BaseRate, child.BaseRate)
	assert.Equal(t, parent.Recurrence, child.Recurrence)
	assert.False(t, child.DepositReceived)
	assert.False(t, child.PaymentReceived)

	stored, err := db.GetBooking(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, child.DateTime.UTC(), stored.DateTime.UTC())
}

func TestSpawnNextPropagatesRoot(t *testing.T) {
	s, db := newTestSpawner(t)
	ctx := context.Background()
	parent := seedCompleted(t, db, models.RecurrenceBiweekly, models.ScreeningScreened)
	parent.RecurrenceRootID = "root-0"
	parent.ParentBookingID = "prev-1"

	child, err := s.SpawnNext(ctx, parent)
	require.NoError(t, err)
	require.NotNil(t, child)
	assert.Equal(t, "root-0", child.RecurrenceRootID)
	assert.Equal(t, parent.ID, child.ParentBookingID)
	assert.Equal(t, parent.DateTime.AddDate(0, 0, 14), child.DateTime)
}

func TestSpawnNextNonRecurring(t *testing.T) {
	s, db := newTestSpawner(t)
	parent := seedCompleted(t, db, models.RecurrenceNone, models.ScreeningScreened)

	child, err := s.SpawnNext(context.Background(), parent)
	require.NoError(t, err)
	assert.Nil(t, child)
}

func TestSpawnNextIdempotent(t *testing.T) {
	s, db := newTestSpawner(t)
	ctx := context.Background()
	parent := seedCompleted(t, db, models.RecurrenceWeekly, models.ScreeningScreened)

	first, err := s.SpawnNext(ctx, parent)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := s.SpawnNext(ctx, parent)
	require.NoError(t, err)
	assert.Nil(t, second, "a completed booking spawns at most one child")
}

func TestSpawnNextUnscreenedClient(t *testing.T) {
	s, db := newTestSpawner(t)
	parent := seedCompleted(t, db, models.RecurrenceWeekly, models.ScreeningUnscreened)

	child, err := s.SpawnNext(context.Background(), parent)
	require.NoError(t, err)
	assert.Nil(t, child)
}

func TestSpawnNextDeletedClient(t *testing.T) {
	s, db := newTestSpawner(t)
	ctx := context.Background()
	parent := seedCompleted(t, db, models.RecurrenceWeekly, models.ScreeningScreened)
	require.NoError(t, db.DeleteClient(ctx, parent.ClientID))

	child, err := s.SpawnNext(ctx, parent)
	require.NoError(t, err)
	assert.Nil(t, child)
}

func TestSpawnNextQuota(t *testing.T) {
	s, db := newTestSpawner(t)
	ctx := context.Background()
	parent := seedCompleted(t, db, models.RecurrenceWeekly, models.ScreeningScreened)

	s.SetQuota(func(ctx context.Context, day time.Time) (bool, error) {
		return false, nil
	})
	child, err := s.SpawnNext(ctx, parent)
	require.NoError(t, err)
	assert.Nil(t, child)

	s.SetQuota(func(ctx context.Context, day time.Time) (bool, error) {
		return true, nil
	})
	child, err = s.SpawnNext(ctx, parent)
	require.NoError(t, err)
	assert.NotNil(t, child)
}

func TestSpawnNextMonthlyKeepsTimeOfDay(t *testing.T) {
	s, db := newTestSpawner(t)
	ctx := context.Background()
	parent := seedCompleted(t, db, models.RecurrenceMonthly, models.ScreeningScreened)

	child, err := s.SpawnNext(ctx, parent)
	require.NoError(t, err)
	require.NotNil(t, child)
	assert.Equal(t, parent.DateTime.AddDate(0, 1, 0), child.DateTime)
	assert.Equal(t, 19, child.DateTime.Hour())
}
