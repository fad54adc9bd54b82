package routes

import (
	"net/http"

	"github.com/pharmacie-web/backend/internal/api/handlers"
	"github.com/pharmacie-web/backend/internal/api/middleware"
	"github.com/pharmacie-web/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	catalogHandler     *handlers.CatalogHandler
	appointmentHandler *handlers.AppointmentHandler
	bookingHandler     *handlers.BookingHandler
	quizHandler        *handlers.QuizHandler
	sseHandler         *handlers.SSEHandler

	cacheMiddleware *middleware.CacheMiddleware
	rateLimiter     *middleware.RateLimiter
	allowedOrigins  []string
	metrics         *observability.Metrics
}

// Options carries the optional pieces of the middleware chain
type Options struct {
	CacheMiddleware *middleware.CacheMiddleware
	RateLimiter     *middleware.RateLimiter
	AllowedOrigins  []string
	Metrics         *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	catalogHandler *handlers.CatalogHandler,
	appointmentHandler *handlers.AppointmentHandler,
	bookingHandler *handlers.BookingHandler,
	quizHandler *handlers.QuizHandler,
	sseHandler *handlers.SSEHandler,
	opts Options,
) *Router {
	return &Router{
		mux:                http.NewServeMux(),
		catalogHandler:     catalogHandler,
		appointmentHandler: appointmentHandler,
		bookingHandler:     bookingHandler,
		quizHandler:        quizHandler,
		sseHandler:         sseHandler,
		cacheMiddleware:    opts.CacheMiddleware,
		rateLimiter:        opts.RateLimiter,
		allowedOrigins:     opts.AllowedOrigins,
		metrics:            opts.Metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Catalog endpoints
	r.mux.HandleFunc("GET /api/services", r.catalogHandler.ListServices)
	r.mux.HandleFunc("GET /api/services/{id}/pharmacists", r.catalogHandler.ListPharmacists)
	r.mux.HandleFunc("GET /api/quizzes", r.catalogHandler.ListQuizzes)
	r.mux.HandleFunc("GET /api/quizzes/featured", r.catalogHandler.FeaturedQuizzes)
	r.mux.HandleFunc("GET /api/quizzes/popular", r.catalogHandler.PopularQuizzes)
	r.mux.HandleFunc("GET /api/quizzes/{slug}", r.catalogHandler.GetQuiz)
	r.mux.HandleFunc("GET /api/quiz-categories", r.catalogHandler.ListCategories)

	// Availability and appointment endpoints
	r.mux.HandleFunc("GET /api/pharmacists/{id}/slots", r.appointmentHandler.GetAvailability)
	r.mux.HandleFunc("GET /api/pharmacists/{id}/appointments", r.appointmentHandler.ListAppointments)
	r.mux.HandleFunc("GET /api/appointments/{id}", r.appointmentHandler.GetAppointment)

	// Booking wizard
	r.mux.HandleFunc("POST /api/bookings", r.bookingHandler.Create)
	r.mux.HandleFunc("GET /api/bookings/{id}", r.bookingHandler.Get)
	r.mux.HandleFunc("POST /api/bookings/{id}/service", r.bookingHandler.SelectService)
	r.mux.HandleFunc("POST /api/bookings/{id}/pharmacist", r.bookingHandler.SelectPharmacist)
	r.mux.HandleFunc("POST /api/bookings/{id}/slot", r.bookingHandler.SelectTimeSlot)
	r.mux.HandleFunc("POST /api/bookings/{id}/advance", r.bookingHandler.Advance)
	r.mux.HandleFunc("POST /api/bookings/{id}/back", r.bookingHandler.GoBack)
	r.mux.HandleFunc("PUT /api/bookings/{id}/customer", r.bookingHandler.SetCustomerInfo)
	r.mux.HandleFunc("POST /api/bookings/{id}/submit", r.bookingHandler.Submit)
	r.mux.HandleFunc("POST /api/bookings/{id}/reset", r.bookingHandler.Reset)
	r.mux.HandleFunc("DELETE /api/bookings/{id}", r.bookingHandler.Delete)

	// Quiz sessions
	r.mux.HandleFunc("POST /api/quiz-sessions", r.quizHandler.Create)
	r.mux.HandleFunc("GET /api/quiz-sessions/{id}", r.quizHandler.Get)
	r.mux.HandleFunc("PUT /api/quiz-sessions/{id}/answers/{questionId}", r.quizHandler.SetAnswer)
	r.mux.HandleFunc("POST /api/quiz-sessions/{id}/next", r.quizHandler.Next)
	r.mux.HandleFunc("POST /api/quiz-sessions/{id}/previous", r.quizHandler.Previous)
	r.mux.HandleFunc("POST /api/quiz-sessions/{id}/goto", r.quizHandler.GoTo)
	r.mux.HandleFunc("POST /api/quiz-sessions/{id}/complete", r.quizHandler.Complete)
	r.mux.HandleFunc("POST /api/quiz-sessions/{id}/reset", r.quizHandler.Reset)
	r.mux.HandleFunc("DELETE /api/quiz-sessions/{id}", r.quizHandler.Delete)

	// Live updates
	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/bookings", r.sseHandler.StreamBookings)
		r.mux.HandleFunc("GET /api/stream/quizzes", r.sseHandler.StreamQuizzes)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	if r.rateLimiter != nil {
		handler = r.rateLimiter.Middleware(handler)
	}
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
