package repositories

import (
	"context"

	"github.com/pharmacie-web/backend/internal/domain/entities"
)

// ServiceCatalog is the read-only list of bookable services and pharmacists
type ServiceCatalog interface {
	// ListServices returns the services in catalog order
	ListServices(ctx context.Context) ([]entities.AppointmentService, error)

	// GetService returns a service or a NOT_FOUND error
	GetService(ctx context.Context, id string) (*entities.AppointmentService, error)

	// ListPharmacists returns the team in catalog order
	ListPharmacists(ctx context.Context) ([]entities.Pharmacist, error)

	// GetPharmacist returns a pharmacist or a NOT_FOUND error
	GetPharmacist(ctx context.Context, id string) (*entities.Pharmacist, error)
}

// QuizCatalog is the read-only list of quizzes and their categories
type QuizCatalog interface {
	// ListQuizzes returns the quizzes in catalog order
	ListQuizzes(ctx context.Context) ([]entities.Quiz, error)

	// GetQuizBySlug returns a quiz or a NOT_FOUND error
	GetQuizBySlug(ctx context.Context, slug string) (*entities.Quiz, error)

	// ListCategories returns the quiz categories in catalog order
	ListCategories(ctx context.Context) ([]entities.QuizCategory, error)
}
