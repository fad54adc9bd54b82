package entities

// BookingStep is one of the four ordered stages of the booking wizard
type BookingStep int

const (
	StepServiceSelection BookingStep = iota + 1
	StepSlotSelection
	StepContactInfo
	StepConfirmation
)

// String returns the step name
func (s BookingStep) String() string {
	switch s {
	case StepServiceSelection:
		return "service_selection"
	case StepSlotSelection:
		return "slot_selection"
	case StepContactInfo:
		return "contact_info"
	case StepConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the four wizard steps
func (s BookingStep) Valid() bool {
	return s >= StepServiceSelection && s <= StepConfirmation
}

// BookingState is the in-progress appointment selection of one booking session
type BookingState struct {
	CurrentStep        BookingStep         `json:"current_step"`
	SelectedService    *AppointmentService `json:"selected_service"`
	SelectedPharmacist *Pharmacist         `json:"selected_pharmacist"`
	SelectedTimeSlot   *TimeSlot           `json:"selected_time_slot"`
	CustomerInfo       CustomerInfo        `json:"customer_info"`
	IsLoading          bool                `json:"is_loading"`
	Error              *string             `json:"error"`
	// Appointment is set once the submission has been accepted
	Appointment *Appointment `json:"appointment,omitempty"`
}

// NewBookingState returns the state of a freshly opened booking wizard
func NewBookingState() BookingState {
	return BookingState{CurrentStep: StepServiceSelection}
}

// Clone returns a deep copy so callers never share pointers with the owner
func (s BookingState) Clone() BookingState {
	out := s
	if s.SelectedService != nil {
		svc := *s.SelectedService
		out.SelectedService = &svc
	}
	if s.SelectedPharmacist != nil {
		p := *s.SelectedPharmacist
		p.Specialties = append([]string(nil), s.SelectedPharmacist.Specialties...)
		out.SelectedPharmacist = &p
	}
	if s.SelectedTimeSlot != nil {
		slot := *s.SelectedTimeSlot
		out.SelectedTimeSlot = &slot
	}
	if s.Error != nil {
		msg := *s.Error
		out.Error = &msg
	}
	if s.Appointment != nil {
		a := *s.Appointment
		out.Appointment = &a
	}
	return out
}
