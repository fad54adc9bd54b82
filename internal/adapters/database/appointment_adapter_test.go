package database_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/pharmacie-web/backend/internal/adapters/database"
	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/pharmacie-web/backend/internal/domain/repositories"
	"github.com/pharmacie-web/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/pharmacie-web/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var appointmentColumns = []string{
	"id", "service_id", "pharmacist_id", "time_slot_id", "slot_date",
	"start_time", "end_time", "first_name", "last_name", "email",
	"phone", "notes", "status", "created_at",
}

func setupMockDB(t *testing.T) (repositories.AppointmentRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.NewAppointmentAdapter(postgres.NewClientFromDB(db)), mock
}

func sampleAppointment() *entities.Appointment {
	return &entities.Appointment{
		ID:           "a1",
		ServiceID:    "podologie",
		PharmacistID: "thomas-legrand",
		TimeSlotID:   "thomas-legrand-2026-03-12-10:00",
		Date:         "2026-03-12",
		StartTime:    "10:00",
		EndTime:      "10:30",
		Customer: entities.CustomerInfo{
			FirstName: "Jeanne",
			LastName:  "Martin",
			Email:     "jeanne@example.fr",
			Phone:     "0612345678",
		},
		Status:    entities.AppointmentStatusPending,
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestAppointmentAdapter_Create(t *testing.T) {
	t.Run("inserts the appointment", func(t *testing.T) {
		repo, mock := setupMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "appointments"`)).
			WillReturnResult(sqlmock.NewResult(1, 1))

		require.NoError(t, repo.Create(context.Background(), sampleAppointment()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps unique violations to conflicts", func(t *testing.T) {
		repo, mock := setupMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "appointments"`)).
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})

		err := repo.Create(context.Background(), sampleAppointment())
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	})

	t.Run("other failures are internal", func(t *testing.T) {
		repo, mock := setupMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "appointments"`)).
			WillReturnError(errors.New("connection reset"))

		err := repo.Create(context.Background(), sampleAppointment())
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
	})
}

func TestAppointmentAdapter_GetByID(t *testing.T) {
	t.Run("returns the appointment", func(t *testing.T) {
		repo, mock := setupMockDB(t)
		want := sampleAppointment()
		mock.ExpectQuery(regexp.QuoteMeta(`FROM "appointments" WHERE ("id" = $1)`)).
			WithArgs("a1").
			WillReturnRows(sqlmock.NewRows(appointmentColumns).AddRow(
				want.ID, want.ServiceID, want.PharmacistID, want.TimeSlotID,
				time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
				want.StartTime, want.EndTime, "Jeanne", "Martin", "jeanne@example.fr",
				"0612345678", nil, "pending", want.CreatedAt,
			))

		got, err := repo.GetByID(context.Background(), "a1")
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := setupMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM "appointments"`)).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(appointmentColumns))

		_, err := repo.GetByID(context.Background(), "missing")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}

func TestAppointmentAdapter_ListByPharmacist(t *testing.T) {
	repo, mock := setupMockDB(t)
	a := sampleAppointment()
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY "slot_date" ASC, "start_time" ASC`)).
		WillReturnRows(sqlmock.NewRows(appointmentColumns).
			AddRow(a.ID, a.ServiceID, a.PharmacistID, a.TimeSlotID, time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
				a.StartTime, a.EndTime, "Jeanne", "Martin", "jeanne@example.fr", nil, "Allergie", "pending", a.CreatedAt).
			AddRow("a2", a.ServiceID, a.PharmacistID, "thomas-legrand-2026-03-12-11:00", time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
				"11:00", "11:30", "Paul", "Durand", "paul@example.fr", nil, nil, "pending", a.CreatedAt))

	got, err := repo.ListByPharmacist(context.Background(), "thomas-legrand", repositories.AppointmentFilter{
		Status: entities.AppointmentStatusPending,
		Limit:  10,
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Allergie", got[0].Customer.Notes)
	assert.Empty(t, got[0].Customer.Phone)
	assert.Equal(t, "11:00", got[1].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentAdapter_BookedSlotIDs(t *testing.T) {
	repo, mock := setupMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "time_slot_id" FROM "appointments"`)).
		WithArgs("thomas-legrand", "2026-03-12", "cancelled").
		WillReturnRows(sqlmock.NewRows([]string{"time_slot_id"}).
			AddRow("thomas-legrand-2026-03-12-10:00").
			AddRow("thomas-legrand-2026-03-12-14:30"))

	booked, err := repo.BookedSlotIDs(context.Background(), "thomas-legrand", "2026-03-12")

	require.NoError(t, err)
	assert.Len(t, booked, 2)
	assert.Contains(t, booked, "thomas-legrand-2026-03-12-14:30")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateAppointments(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS appointments")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, database.MigrateAppointments(context.Background(), postgres.NewClientFromDB(db)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
