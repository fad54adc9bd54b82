package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pharmacie-web/backend/internal/adapters/catalog"
	"github.com/pharmacie-web/backend/internal/adapters/providers/scheduling"
	"github.com/pharmacie-web/backend/internal/api/handlers"
	"github.com/pharmacie-web/backend/internal/application/services"
	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/stretchr/testify/require"
)

// stubSink accepts every appointment unless err is set
type stubSink struct {
	err error
}

func (s *stubSink) SubmitAppointment(context.Context, *entities.Appointment) error {
	return s.err
}

var errSinkDown = errors.New("sink down")

func newCatalogService(t *testing.T) *services.CatalogService {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	return services.NewCatalogService(c, c)
}

// newTestMux wires the catalog, booking and quiz handlers on real services
func newTestMux(t *testing.T, sink *stubSink) *http.ServeMux {
	t.Helper()
	catalogSvc := newCatalogService(t)

	catalogHandler := handlers.NewCatalogHandler(catalogSvc)
	slots := scheduling.NewMockSlotProvider(scheduling.WithClock(func() time.Time {
		return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	}))
	bookingHandler := handlers.NewBookingHandler(services.NewBookingSessionService(catalogSvc, slots, sink, services.SessionDeps{}))
	quizHandler := handlers.NewQuizHandler(services.NewQuizSessionService(catalogSvc, nil, services.SessionDeps{}))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/services", catalogHandler.ListServices)
	mux.HandleFunc("GET /api/services/{id}/pharmacists", catalogHandler.ListPharmacists)
	mux.HandleFunc("GET /api/quizzes", catalogHandler.ListQuizzes)
	mux.HandleFunc("GET /api/quizzes/featured", catalogHandler.FeaturedQuizzes)
	mux.HandleFunc("GET /api/quizzes/popular", catalogHandler.PopularQuizzes)
	mux.HandleFunc("GET /api/quizzes/{slug}", catalogHandler.GetQuiz)
	mux.HandleFunc("GET /api/quiz-categories", catalogHandler.ListCategories)

	mux.HandleFunc("POST /api/bookings", bookingHandler.Create)
	mux.HandleFunc("GET /api/bookings/{id}", bookingHandler.Get)
	mux.HandleFunc("POST /api/bookings/{id}/service", bookingHandler.SelectService)
	mux.HandleFunc("POST /api/bookings/{id}/pharmacist", bookingHandler.SelectPharmacist)
	mux.HandleFunc("POST /api/bookings/{id}/slot", bookingHandler.SelectTimeSlot)
	mux.HandleFunc("POST /api/bookings/{id}/advance", bookingHandler.Advance)
	mux.HandleFunc("POST /api/bookings/{id}/back", bookingHandler.GoBack)
	mux.HandleFunc("PUT /api/bookings/{id}/customer", bookingHandler.SetCustomerInfo)
	mux.HandleFunc("POST /api/bookings/{id}/submit", bookingHandler.Submit)
	mux.HandleFunc("POST /api/bookings/{id}/reset", bookingHandler.Reset)
	mux.HandleFunc("DELETE /api/bookings/{id}", bookingHandler.Delete)

	mux.HandleFunc("POST /api/quiz-sessions", quizHandler.Create)
	mux.HandleFunc("GET /api/quiz-sessions/{id}", quizHandler.Get)
	mux.HandleFunc("PUT /api/quiz-sessions/{id}/answers/{questionId}", quizHandler.SetAnswer)
	mux.HandleFunc("POST /api/quiz-sessions/{id}/next", quizHandler.Next)
	mux.HandleFunc("POST /api/quiz-sessions/{id}/previous", quizHandler.Previous)
	mux.HandleFunc("POST /api/quiz-sessions/{id}/goto", quizHandler.GoTo)
	mux.HandleFunc("POST /api/quiz-sessions/{id}/complete", quizHandler.Complete)
	mux.HandleFunc("POST /api/quiz-sessions/{id}/reset", quizHandler.Reset)
	mux.HandleFunc("DELETE /api/quiz-sessions/{id}", quizHandler.Delete)
	return mux
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
