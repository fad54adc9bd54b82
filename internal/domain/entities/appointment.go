package entities

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// AppointmentService is a bookable pharmacy service (consultation, podology, wellness session...)
type AppointmentService struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	// Duration in minutes
	Duration int `json:"duration" yaml:"duration"`
	// PharmacistID is set when only one pharmacist provides the service
	PharmacistID string `json:"pharmacist_id,omitempty" yaml:"pharmacist_id"`
	Color        string `json:"color" yaml:"color"`
}

// Pharmacist is a member of the pharmacy team who can be booked
type Pharmacist struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Role        string   `json:"role" yaml:"role"`
	Specialties []string `json:"specialties" yaml:"specialties"`
	Avatar      string   `json:"avatar,omitempty" yaml:"avatar"`
}

// HasSpecialty reports whether the pharmacist lists the given specialty
func (p Pharmacist) HasSpecialty(specialty string) bool {
	for _, s := range p.Specialties {
		if s == specialty {
			return true
		}
	}
	return false
}

// TimeSlot is a bookable interval for one pharmacist on one day.
// IsAvailable is a snapshot taken when the slot was generated.
type TimeSlot struct {
	ID           string `json:"id"`
	PharmacistID string `json:"pharmacist_id"`
	// Date is the calendar day, formatted 2006-01-02
	Date string `json:"date"`
	// StartTime and EndTime are formatted 15:04
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable bool   `json:"is_available"`
	ServiceID   string `json:"service_id,omitempty"`
}

// CustomerInfo holds the contact details collected in the contact step
type CustomerInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Notes     string `json:"notes,omitempty"`
}

// Appointment is the payload handed to the submission sink
type Appointment struct {
	ID           string            `json:"id" db:"id"`
	ServiceID    string            `json:"service_id" db:"service_id"`
	PharmacistID string            `json:"pharmacist_id" db:"pharmacist_id"`
	TimeSlotID   string            `json:"time_slot_id" db:"time_slot_id"`
	Date         string            `json:"date" db:"slot_date"`
	StartTime    string            `json:"start_time" db:"start_time"`
	EndTime      string            `json:"end_time" db:"end_time"`
	Customer     CustomerInfo      `json:"customer"`
	Status       AppointmentStatus `json:"status" db:"status"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
}
