package services

import (
	"context"
	"sort"
	"strings"

	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/pharmacie-web/backend/internal/domain/repositories"
)

const (
	// DefaultPopularLimit is the number of quizzes returned by PopularQuizzes when no limit is given
	DefaultPopularLimit = 3

	pharmacistRole                = "Pharmacien"
	pharmaceuticalReviewID        = "entretien-pharmaceutique"
	pharmaceuticalReviewSpecialty = "Entretiens pharmaceutiques"
)

// QuizFilter narrows ListQuizzes. Zero fields do not filter.
type QuizFilter struct {
	Category   string
	Difficulty entities.Difficulty
	MaxMinutes int
	Query      string
}

// CategorySummary is a quiz category with the number of quizzes it holds
type CategorySummary struct {
	entities.QuizCategory
	QuizCount int `json:"quiz_count"`
}

// CatalogService answers read-only questions about services, the team and quizzes
type CatalogService struct {
	services repositories.ServiceCatalog
	quizzes  repositories.QuizCatalog
}

// NewCatalogService creates a new catalog service
func NewCatalogService(services repositories.ServiceCatalog, quizzes repositories.QuizCatalog) *CatalogService {
	return &CatalogService{
		services: services,
		quizzes:  quizzes,
	}
}

// ListServices returns the bookable services
func (s *CatalogService) ListServices(ctx context.Context) ([]entities.AppointmentService, error) {
	return s.services.ListServices(ctx)
}

// GetService returns a service by id
func (s *CatalogService) GetService(ctx context.Context, id string) (*entities.AppointmentService, error) {
	return s.services.GetService(ctx, id)
}

// GetPharmacist returns a pharmacist by id
func (s *CatalogService) GetPharmacist(ctx context.Context, id string) (*entities.Pharmacist, error) {
	return s.services.GetPharmacist(ctx, id)
}

// AvailablePharmacists returns who can provide a service. A service tied to
// one pharmacist returns only that pharmacist; otherwise the pharmacists by
// role, plus team members trained for pharmaceutical reviews when the
// service is one.
func (s *CatalogService) AvailablePharmacists(ctx context.Context, serviceID string) ([]entities.Pharmacist, error) {
	service, err := s.services.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	team, err := s.services.ListPharmacists(ctx)
	if err != nil {
		return nil, err
	}

	out := []entities.Pharmacist{}
	for _, p := range team {
		if canProvide(*service, p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// CanProvide reports whether pharmacist may be booked for service
func (s *CatalogService) CanProvide(service entities.AppointmentService, pharmacist entities.Pharmacist) bool {
	return canProvide(service, pharmacist)
}

func canProvide(service entities.AppointmentService, p entities.Pharmacist) bool {
	if service.PharmacistID != "" {
		return p.ID == service.PharmacistID
	}
	if strings.Contains(p.Role, pharmacistRole) {
		return true
	}
	return service.ID == pharmaceuticalReviewID && p.HasSpecialty(pharmaceuticalReviewSpecialty)
}

// ListQuizzes returns the quizzes matching filter in catalog order
func (s *CatalogService) ListQuizzes(ctx context.Context, filter QuizFilter) ([]entities.Quiz, error) {
	all, err := s.quizzes.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	out := []entities.Quiz{}
	for _, q := range all {
		if filter.Category != "" && q.Category.Slug != filter.Category {
			continue
		}
		if filter.Difficulty != "" && q.Difficulty != filter.Difficulty {
			continue
		}
		if filter.MaxMinutes > 0 && q.EstimatedTime > filter.MaxMinutes {
			continue
		}
		if query != "" && !matchesQuery(q, query) {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// FeaturedQuizzes returns the featured quizzes in catalog order
func (s *CatalogService) FeaturedQuizzes(ctx context.Context) ([]entities.Quiz, error) {
	all, err := s.quizzes.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	out := []entities.Quiz{}
	for _, q := range all {
		if q.Featured {
			out = append(out, q)
		}
	}
	return out, nil
}

// PopularQuizzes returns the limit most popular quizzes. A limit <= 0 uses DefaultPopularLimit.
func (s *CatalogService) PopularQuizzes(ctx context.Context, limit int) ([]entities.Quiz, error) {
	if limit <= 0 {
		limit = DefaultPopularLimit
	}
	all, err := s.quizzes.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}

	sorted := append([]entities.Quiz{}, all...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PopularityScore > sorted[j].PopularityScore
	})
	if limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

// SearchQuizzes matches query case-insensitively against title, description and tags
func (s *CatalogService) SearchQuizzes(ctx context.Context, query string) ([]entities.Quiz, error) {
	return s.ListQuizzes(ctx, QuizFilter{Query: query})
}

// GetQuizBySlug returns a quiz by slug
func (s *CatalogService) GetQuizBySlug(ctx context.Context, slug string) (*entities.Quiz, error) {
	return s.quizzes.GetQuizBySlug(ctx, slug)
}

// Categories returns the quiz categories with their quiz counts
func (s *CatalogService) Categories(ctx context.Context) ([]CategorySummary, error) {
	categories, err := s.quizzes.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	quizzes, err := s.quizzes.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(categories))
	for _, q := range quizzes {
		counts[q.Category.ID]++
	}
	out := make([]CategorySummary, len(categories))
	for i, c := range categories {
		out[i] = CategorySummary{QuizCategory: c, QuizCount: counts[c.ID]}
	}
	return out, nil
}

func matchesQuery(q entities.Quiz, term string) bool {
	if strings.Contains(strings.ToLower(q.Title), term) || strings.Contains(strings.ToLower(q.Description), term) {
		return true
	}
	for _, tag := range q.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}
