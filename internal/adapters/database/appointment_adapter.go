package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"
	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/pharmacie-web/backend/internal/domain/repositories"
	"github.com/pharmacie-web/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/pharmacie-web/backend/pkg/errors"
)

const appointmentsTable = "appointments"

// AppointmentsSchema creates the appointments table. A slot can only be held
// by one appointment that is not cancelled.
const AppointmentsSchema = `
CREATE TABLE IF NOT EXISTS appointments (
	id            TEXT PRIMARY KEY,
	service_id    TEXT NOT NULL,
	pharmacist_id TEXT NOT NULL,
	time_slot_id  TEXT NOT NULL,
	slot_date     DATE NOT NULL,
	start_time    VARCHAR(5) NOT NULL,
	end_time      VARCHAR(5) NOT NULL,
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	email         TEXT NOT NULL,
	phone         TEXT,
	notes         TEXT,
	status        VARCHAR(16) NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS appointments_active_slot_idx
	ON appointments (time_slot_id) WHERE status <> 'cancelled';
CREATE INDEX IF NOT EXISTS appointments_pharmacist_date_idx
	ON appointments (pharmacist_id, slot_date);
`

const uniqueViolation = "23505"

var appointmentColumns = []interface{}{
	"id", "service_id", "pharmacist_id", "time_slot_id", "slot_date",
	"start_time", "end_time", "first_name", "last_name", "email",
	"phone", "notes", "status", "created_at",
}

type appointmentRow struct {
	ID           string         `db:"id"`
	ServiceID    string         `db:"service_id"`
	PharmacistID string         `db:"pharmacist_id"`
	TimeSlotID   string         `db:"time_slot_id"`
	SlotDate     time.Time      `db:"slot_date"`
	StartTime    string         `db:"start_time"`
	EndTime      string         `db:"end_time"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	Email        string         `db:"email"`
	Phone        sql.NullString `db:"phone"`
	Notes        sql.NullString `db:"notes"`
	Status       string         `db:"status"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r appointmentRow) toEntity() *entities.Appointment {
	return &entities.Appointment{
		ID:           r.ID,
		ServiceID:    r.ServiceID,
		PharmacistID: r.PharmacistID,
		TimeSlotID:   r.TimeSlotID,
		Date:         r.SlotDate.Format("2006-01-02"),
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		Customer: entities.CustomerInfo{
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Email:     r.Email,
			Phone:     r.Phone.String,
			Notes:     r.Notes.String,
		},
		Status:    entities.AppointmentStatus(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// MigrateAppointments applies AppointmentsSchema
func MigrateAppointments(ctx context.Context, client *postgres.Client) error {
	if _, err := client.DB().ExecContext(ctx, AppointmentsSchema); err != nil {
		return apperrors.NewInternalError("failed to migrate appointments table", err)
	}
	return nil
}

// Create stores a new appointment
func (a *AppointmentAdapter) Create(ctx context.Context, appointment *entities.Appointment) error {
	record := goqu.Record{
		"id":            appointment.ID,
		"service_id":    appointment.ServiceID,
		"pharmacist_id": appointment.PharmacistID,
		"time_slot_id":  appointment.TimeSlotID,
		"slot_date":     appointment.Date,
		"start_time":    appointment.StartTime,
		"end_time":      appointment.EndTime,
		"first_name":    appointment.Customer.FirstName,
		"last_name":     appointment.Customer.LastName,
		"email":         appointment.Customer.Email,
		"phone":         nullString(appointment.Customer.Phone),
		"notes":         nullString(appointment.Customer.Notes),
		"status":        string(appointment.Status),
		"created_at":    appointment.CreatedAt,
	}

	query, args, err := a.db.Insert(appointmentsTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return apperrors.NewConflictError(fmt.Sprintf("time slot %s is already booked", appointment.TimeSlotID))
		}
		return apperrors.NewInternalError("failed to create appointment", err)
	}

	return nil
}

// GetByID retrieves an appointment by ID
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From(appointmentsTable).
		Prepared(true).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var row appointmentRow
	err = a.client.DB().GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get appointment", err)
	}

	return row.toEntity(), nil
}

// ListByPharmacist retrieves appointments of a pharmacist, earliest first
func (a *AppointmentAdapter) ListByPharmacist(ctx context.Context, pharmacistID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	ds := a.db.Select(appointmentColumns...).
		From(appointmentsTable).
		Prepared(true).
		Where(goqu.Ex{"pharmacist_id": pharmacistID})

	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": string(filter.Status)})
	}

	if filter.Date != "" {
		ds = ds.Where(goqu.Ex{"slot_date": filter.Date})
	}

	ds = ds.Order(goqu.I("slot_date").Asc(), goqu.I("start_time").Asc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}

	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	var rows []appointmentRow
	if err := a.client.DB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list appointments", err)
	}

	appointments := make([]*entities.Appointment, 0, len(rows))
	for _, row := range rows {
		appointments = append(appointments, row.toEntity())
	}

	return appointments, nil
}

// BookedSlotIDs returns the slots held by appointments that are not cancelled
func (a *AppointmentAdapter) BookedSlotIDs(ctx context.Context, pharmacistID, date string) (map[string]struct{}, error) {
	query, args, err := a.db.Select("time_slot_id").
		From(appointmentsTable).
		Prepared(true).
		Where(
			goqu.Ex{"pharmacist_id": pharmacistID, "slot_date": date},
			goqu.C("status").Neq(string(entities.AppointmentStatusCancelled)),
		).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var ids []string
	if err := a.client.DB().SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list booked slots", err)
	}

	booked := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		booked[id] = struct{}{}
	}
	return booked, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
