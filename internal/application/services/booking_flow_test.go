package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pharmacie-web/backend/internal/application/services"
	"github.com/pharmacie-web/backend/internal/domain/entities"
	apperrors "github.com/pharmacie-web/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBookingFlow_InitialState(t *testing.T) {
	f := services.NewBookingFlow(&MockSubmissionSink{})

	state := f.State()
	assert.Equal(t, entities.StepServiceSelection, state.CurrentStep)
	assert.Nil(t, state.SelectedService)
	assert.Nil(t, state.SelectedPharmacist)
	assert.Nil(t, state.SelectedTimeSlot)
	assert.Equal(t, entities.CustomerInfo{}, state.CustomerInfo)
	assert.False(t, state.IsLoading)
	assert.Nil(t, state.Error)
}

func TestBookingFlow_SelectService(t *testing.T) {
	t.Run("clears pharmacist and slot even for the same service", func(t *testing.T) {
		f := services.NewBookingFlow(&MockSubmissionSink{})
		require.NoError(t, f.SelectService(podologie()))
		require.NoError(t, f.SelectPharmacist(thomas()))
		require.NoError(t, f.SelectTimeSlot(slotFor("thomas-legrand", "10:00")))

		require.NoError(t, f.SelectService(podologie()))

		state := f.State()
		assert.Equal(t, "podologie", state.SelectedService.ID)
		assert.Nil(t, state.SelectedPharmacist)
		assert.Nil(t, state.SelectedTimeSlot)
		assert.Equal(t, entities.StepServiceSelection, state.CurrentStep)
	})

	t.Run("keeps the current step", func(t *testing.T) {
		f := services.NewBookingFlow(&MockSubmissionSink{})
		require.NoError(t, f.SelectService(consultation()))
		require.NoError(t, f.Advance())

		require.NoError(t, f.SelectService(podologie()))
		assert.Equal(t, entities.StepSlotSelection, f.State().CurrentStep)
	})
}

func TestBookingFlow_SelectPharmacist(t *testing.T) {
	t.Run("requires a service", func(t *testing.T) {
		f := services.NewBookingFlow(&MockSubmissionSink{})
		err := f.SelectPharmacist(thomas())
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("rejects another pharmacist than the required one", func(t *testing.T) {
		f := services.NewBookingFlow(&MockSubmissionSink{})
		require.NoError(t, f.SelectService(podologie()))

		err := f.SelectPharmacist(alexandre())
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
		assert.Nil(t, f.State().SelectedPharmacist)
	})

	t.Run("clears the slot", func(t *testing.T) {
		f := services.NewBookingFlow(&MockSubmissionSink{})
		require.NoError(t, f.SelectService(consultation()))
		require.NoError(t, f.SelectPharmacist(alexandre()))
		require.NoError(t, f.SelectTimeSlot(slotFor("alexandre-dupont", "09:00")))

		require.NoError(t, f.SelectPharmacist(alexandre()))
		assert.Nil(t, f.State().SelectedTimeSlot)
	})
}

func TestBookingFlow_SelectTimeSlot(t *testing.T) {
	f := services.NewBookingFlow(&MockSubmissionSink{})

	err := f.SelectTimeSlot(slotFor("thomas-legrand", "10:00"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "no pharmacist selected")

	require.NoError(t, f.SelectService(podologie()))
	require.NoError(t, f.SelectPharmacist(thomas()))

	err = f.SelectTimeSlot(slotFor("marie-laurent", "10:00"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "slot of another pharmacist")

	taken := slotFor("thomas-legrand", "10:00")
	taken.IsAvailable = false
	err = f.SelectTimeSlot(taken)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "unavailable slot")

	require.NoError(t, f.SelectTimeSlot(slotFor("thomas-legrand", "10:00")))
	state := f.State()
	assert.Equal(t, "thomas-legrand-2026-03-12-10:00", state.SelectedTimeSlot.ID)
	assert.Equal(t, "thomas-legrand", state.SelectedPharmacist.ID, "selecting a slot keeps the pharmacist")
}

func TestBookingFlow_Navigation(t *testing.T) {
	f := services.NewBookingFlow(&MockSubmissionSink{})

	err := f.Advance()
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "no service")
	assert.Equal(t, entities.StepServiceSelection, f.State().CurrentStep)

	err = f.GoBack()
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict), "cannot go back from step 1")

	require.NoError(t, f.SelectService(podologie()))
	require.NoError(t, f.Advance())
	assert.Equal(t, entities.StepSlotSelection, f.State().CurrentStep)

	err = f.Advance()
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "no slot")

	require.NoError(t, f.SelectPharmacist(thomas()))
	require.NoError(t, f.SelectTimeSlot(slotFor("thomas-legrand", "10:00")))
	require.NoError(t, f.Advance())
	assert.Equal(t, entities.StepContactInfo, f.State().CurrentStep)

	err = f.Advance()
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict), "step 3 only leaves through submit")

	require.NoError(t, f.GoBack())
	state := f.State()
	assert.Equal(t, entities.StepSlotSelection, state.CurrentStep)
	assert.NotNil(t, state.SelectedTimeSlot, "going back keeps selections")

	require.NoError(t, f.GoBack())
	assert.Equal(t, entities.StepServiceSelection, f.State().CurrentStep)
	assert.NotNil(t, f.State().SelectedService)
}

func TestBookingFlow_SetCustomerInfo(t *testing.T) {
	f := services.NewBookingFlow(&MockSubmissionSink{})
	err := f.SetCustomerInfo(customer())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	f = flowAtContactStep(t, &MockSubmissionSink{})
	require.NoError(t, f.SetCustomerInfo(customer()))
	require.NoError(t, f.SetCustomerInfo(entities.CustomerInfo{Email: "autre@example.fr"}))
	assert.Equal(t, entities.CustomerInfo{Email: "autre@example.fr"}, f.State().CustomerInfo)
}

func TestBookingFlow_Submit_Success(t *testing.T) {
	sink := &MockSubmissionSink{}
	sink.On("SubmitAppointment", mock.Anything, mock.MatchedBy(func(a *entities.Appointment) bool {
		return a.ServiceID == "podologie" &&
			a.PharmacistID == "thomas-legrand" &&
			a.TimeSlotID == "thomas-legrand-2026-03-12-10:00" &&
			a.Customer.Email == "jeanne@example.fr"
	})).Return(nil).Once()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := flowAtContactStep(t, sink,
		services.WithBookingClock(func() time.Time { return now }),
		services.WithAppointmentIDs(func() string { return "apt-1" }),
	)
	require.NoError(t, f.SetCustomerInfo(customer()))

	appointment, err := f.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "apt-1", appointment.ID)
	assert.Equal(t, entities.AppointmentStatusPending, appointment.Status)
	assert.Equal(t, now, appointment.CreatedAt)
	assert.Equal(t, "2026-03-12", appointment.Date)

	state := f.State()
	assert.Equal(t, entities.StepConfirmation, state.CurrentStep)
	assert.False(t, state.IsLoading)
	assert.Nil(t, state.Error)
	require.NotNil(t, state.Appointment)
	assert.Equal(t, "apt-1", state.Appointment.ID)
	sink.AssertExpectations(t)

	t.Run("confirmed flows only accept reset", func(t *testing.T) {
		_, err := f.Submit(context.Background())
		assert.ErrorIs(t, err, services.ErrBookingConfirmed)
		assert.ErrorIs(t, f.SelectService(consultation()), services.ErrBookingConfirmed)
		assert.ErrorIs(t, f.GoBack(), services.ErrBookingConfirmed)

		f.Reset()
		assert.Equal(t, services.NewBookingFlow(sink).State(), f.State())
	})
}

func TestBookingFlow_Submit_MissingInformation(t *testing.T) {
	sink := &MockSubmissionSink{}
	f := flowAtContactStep(t, sink)

	_, err := f.Submit(context.Background())

	assert.ErrorIs(t, err, services.ErrMissingInformation)
	state := f.State()
	require.NotNil(t, state.Error)
	assert.Equal(t, services.MessageMissingInformation, *state.Error)
	assert.Equal(t, entities.StepContactInfo, state.CurrentStep)
	assert.False(t, state.IsLoading)
	sink.AssertNotCalled(t, "SubmitAppointment", mock.Anything, mock.Anything)
}

func TestBookingFlow_Submit_NotOnContactStep(t *testing.T) {
	sink := &MockSubmissionSink{}
	f := flowAtContactStep(t, sink)
	require.NoError(t, f.SetCustomerInfo(customer()))
	require.NoError(t, f.GoBack())

	_, err := f.Submit(context.Background())

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	assert.Equal(t, entities.StepSlotSelection, f.State().CurrentStep)
	assert.NotNil(t, f.State().Error)
	sink.AssertNotCalled(t, "SubmitAppointment", mock.Anything, mock.Anything)
}

func TestBookingFlow_Submit_SinkFailure(t *testing.T) {
	sink := &MockSubmissionSink{}
	sink.On("SubmitAppointment", mock.Anything, mock.Anything).Return(errors.New("network down")).Once()
	sink.On("SubmitAppointment", mock.Anything, mock.Anything).Return(nil).Once()

	f := flowAtContactStep(t, sink)
	require.NoError(t, f.SetCustomerInfo(customer()))

	_, err := f.Submit(context.Background())

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	state := f.State()
	require.NotNil(t, state.Error)
	assert.Equal(t, services.MessageSubmissionFailed, *state.Error)
	assert.Equal(t, entities.StepContactInfo, state.CurrentStep)
	assert.False(t, state.IsLoading)

	// the caller retries explicitly
	_, err = f.Submit(context.Background())
	require.NoError(t, err)
	assert.Nil(t, f.State().Error)
	assert.Equal(t, entities.StepConfirmation, f.State().CurrentStep)
	sink.AssertNumberOfCalls(t, "SubmitAppointment", 2)
}

func TestBookingFlow_Submit_SinkErrorTypeIsKept(t *testing.T) {
	taken := apperrors.NewConflictError("time slot is already booked")
	sink := &MockSubmissionSink{}
	sink.On("SubmitAppointment", mock.Anything, mock.Anything).Return(taken).Once()

	f := flowAtContactStep(t, sink)
	require.NoError(t, f.SetCustomerInfo(customer()))

	_, err := f.Submit(context.Background())

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	assert.ErrorIs(t, err, taken)
	state := f.State()
	require.NotNil(t, state.Error)
	assert.Equal(t, services.MessageSubmissionFailed, *state.Error)
	assert.Equal(t, entities.StepContactInfo, state.CurrentStep)
	assert.False(t, state.IsLoading)
}

func TestBookingFlow_Submit_DoubleSubmitIsRejected(t *testing.T) {
	sink := newGateSink()
	f := flowAtContactStep(t, sink)
	require.NoError(t, f.SetCustomerInfo(customer()))

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()
	<-sink.entered

	assert.True(t, f.State().IsLoading)
	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, services.ErrSubmissionInProgress)
	assert.ErrorIs(t, f.SelectService(consultation()), services.ErrSubmissionInProgress)

	close(sink.release)
	require.NoError(t, <-done)
	assert.Equal(t, entities.StepConfirmation, f.State().CurrentStep)
}

func TestBookingFlow_Submit_ResetDuringSubmission(t *testing.T) {
	sink := newGateSink()
	f := flowAtContactStep(t, sink)
	require.NoError(t, f.SetCustomerInfo(customer()))

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()
	<-sink.entered

	f.Reset()
	close(sink.release)

	assert.ErrorIs(t, <-done, services.ErrSubmissionSuperseded)
	assert.Equal(t, entities.NewBookingState(), f.State())
}

func TestBookingFlow_Submit_ContextCancelled(t *testing.T) {
	sink := newGateSink()
	f := flowAtContactStep(t, sink)
	require.NoError(t, f.SetCustomerInfo(customer()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(ctx)
		done <- err
	}()
	<-sink.entered
	cancel()

	err := <-done
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, f.State().IsLoading)
}

func TestBookingFlow_StateIsACopy(t *testing.T) {
	f := services.NewBookingFlow(&MockSubmissionSink{})
	require.NoError(t, f.SelectService(consultation()))
	require.NoError(t, f.SelectPharmacist(alexandre()))

	state := f.State()
	state.SelectedService.Name = "changed"
	state.SelectedPharmacist.Specialties[0] = "changed"

	assert.Equal(t, "Entretien pharmaceutique", f.State().SelectedService.Name)
	assert.Equal(t, "Entretiens pharmaceutiques", f.State().SelectedPharmacist.Specialties[0])
}

func TestRestoreBookingFlow(t *testing.T) {
	state := entities.NewBookingState()
	state.CurrentStep = entities.StepContactInfo
	svc := podologie()
	slot := slotFor("thomas-legrand", "10:00")
	state.SelectedService = &svc
	state.SelectedTimeSlot = &slot
	state.CustomerInfo = customer()
	state.IsLoading = true

	sink := &MockSubmissionSink{}
	sink.On("SubmitAppointment", mock.Anything, mock.Anything).Return(nil)

	f := services.RestoreBookingFlow(state, sink)
	assert.False(t, f.State().IsLoading, "an in-flight submission does not survive a restore")

	_, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entities.StepConfirmation, f.State().CurrentStep)

	broken := entities.BookingState{CurrentStep: 9}
	assert.Equal(t, entities.StepServiceSelection, services.RestoreBookingFlow(broken, sink).State().CurrentStep)
}
