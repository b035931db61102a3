package availability

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"space-booking-backend/internal/model"
	"space-booking-backend/internal/store"
	"space-booking-backend/internal/timewindow"
)

func newTestStore(t *testing.T, name string) store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.Space{}, &model.Reservation{}))
	return store.NewGormStore(db)
}

func window(t *testing.T, startDate, endDate, startTime, endTime string) timewindow.Window {
	t.Helper()
	sd, err := timewindow.ParseDate(startDate)
	require.NoError(t, err)
	var ed = sd
	if endDate != "" {
		ed, err = timewindow.ParseDate(endDate)
		require.NoError(t, err)
	}
	sm, err := timewindow.ParseClock(startTime)
	require.NoError(t, err)
	em, err := timewindow.ParseClock(endTime)
	require.NoError(t, err)
	w, err := timewindow.New(sd, ed, sm, em)
	require.NoError(t, err)
	return w
}

func seedReservation(t *testing.T, s store.Store, spaceID uuid.UUID, w timewindow.Window, status model.ReservationStatus) *model.Reservation {
	t.Helper()
	r := &model.Reservation{
		SpaceID:      spaceID,
		ActivityName: "seeded",
		StartDate:    w.StartDate,
		EndDate:      w.EndDate,
		StartMinute:  w.StartMinute,
		EndMinute:    w.EndMinute,
		Status:       status,
	}
	require.NoError(t, s.CreateReservation(context.Background(), r))
	return r
}

func TestIsAvailable(t *testing.T) {
	s := newTestStore(t, "availability_engine")
	engine := NewEngine(s)
	ctx := context.Background()
	spaceID := uuid.New()

	approved := window(t, "10-06-2025", "", "09:00", "11:00")
	seedReservation(t, s, spaceID, approved, model.ReservationApproved)

	t.Run("overlapping window is unavailable", func(t *testing.T) {
		ok, err := engine.IsAvailable(ctx, spaceID, window(t, "10-06-2025", "", "10:00", "12:00"), nil)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("back-to-back window is available", func(t *testing.T) {
		ok, err := engine.IsAvailable(ctx, spaceID, window(t, "10-06-2025", "", "11:00", "12:00"), nil)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("other space is unaffected", func(t *testing.T) {
		ok, err := engine.IsAvailable(ctx, uuid.New(), window(t, "10-06-2025", "", "10:00", "12:00"), nil)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("terminal statuses do not block", func(t *testing.T) {
		rejected := window(t, "11-06-2025", "", "09:00", "11:00")
		seedReservation(t, s, spaceID, rejected, model.ReservationRejected)
		completed := window(t, "12-06-2025", "", "09:00", "11:00")
		seedReservation(t, s, spaceID, completed, model.ReservationCompleted)

		ok, err := engine.IsAvailable(ctx, spaceID, window(t, "11-06-2025", "12-06-2025", "09:00", "11:00"), nil)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("excluded reservation does not conflict with itself", func(t *testing.T) {
		r := seedReservation(t, s, spaceID, window(t, "20-06-2025", "", "09:00", "11:00"), model.ReservationProcessing)

		ok, err := engine.IsAvailable(ctx, spaceID, window(t, "20-06-2025", "", "09:30", "10:30"), &r.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = engine.IsAvailable(ctx, spaceID, window(t, "20-06-2025", "", "09:30", "10:30"), nil)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestIsAvailableStoreFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectQuery(".*").WillReturnError(errors.New("connection reset"))

	engine := NewEngine(store.NewGormStore(gormDB))
	_, err = engine.IsAvailable(context.Background(), uuid.New(), window(t, "10-06-2025", "", "09:00", "11:00"), nil)
	assert.Error(t, err)
}
