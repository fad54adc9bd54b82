package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"

	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/pharmacie-web/backend/internal/domain/repositories"
	apperrors "github.com/pharmacie-web/backend/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type document struct {
	Services    []entities.AppointmentService `yaml:"services"`
	Pharmacists []entities.Pharmacist         `yaml:"pharmacists"`
	Categories  []entities.QuizCategory       `yaml:"categories"`
	Quizzes     []entities.Quiz               `yaml:"quizzes"`
}

// StaticCatalog serves services, pharmacists and quizzes from a YAML document.
// It is immutable once loaded and safe for concurrent use.
type StaticCatalog struct {
	doc document
}

var (
	_ repositories.ServiceCatalog = (*StaticCatalog)(nil)
	_ repositories.QuizCatalog    = (*StaticCatalog)(nil)
)

// Default loads the catalog embedded in the binary
func Default() (*StaticCatalog, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// Load decodes a catalog document. Quiz categories are resolved by id;
// an unknown category id is an error.
func Load(r io.Reader) (*StaticCatalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	categories := make(map[string]entities.QuizCategory, len(doc.Categories))
	for _, c := range doc.Categories {
		categories[c.ID] = c
	}
	for i := range doc.Quizzes {
		q := &doc.Quizzes[i]
		category, ok := categories[q.CategoryID]
		if !ok {
			return nil, fmt.Errorf("quiz %s: unknown category %q", q.ID, q.CategoryID)
		}
		q.Category = category
		if q.Questions == nil {
			q.Questions = []entities.Question{}
		}
	}

	return &StaticCatalog{doc: doc}, nil
}

// ListServices returns the services in catalog order
func (c *StaticCatalog) ListServices(_ context.Context) ([]entities.AppointmentService, error) {
	return append([]entities.AppointmentService{}, c.doc.Services...), nil
}

// GetService returns a service by id
func (c *StaticCatalog) GetService(_ context.Context, id string) (*entities.AppointmentService, error) {
	for _, s := range c.doc.Services {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("service with id %s not found", id))
}

// ListPharmacists returns the team in catalog order
func (c *StaticCatalog) ListPharmacists(_ context.Context) ([]entities.Pharmacist, error) {
	out := make([]entities.Pharmacist, len(c.doc.Pharmacists))
	for i, p := range c.doc.Pharmacists {
		out[i] = clonePharmacist(p)
	}
	return out, nil
}

// GetPharmacist returns a pharmacist by id
func (c *StaticCatalog) GetPharmacist(_ context.Context, id string) (*entities.Pharmacist, error) {
	for _, p := range c.doc.Pharmacists {
		if p.ID == id {
			out := clonePharmacist(p)
			return &out, nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("pharmacist with id %s not found", id))
}

// ListQuizzes returns the quizzes in catalog order
func (c *StaticCatalog) ListQuizzes(_ context.Context) ([]entities.Quiz, error) {
	return append([]entities.Quiz{}, c.doc.Quizzes...), nil
}

// GetQuizBySlug returns a quiz by slug
func (c *StaticCatalog) GetQuizBySlug(_ context.Context, slug string) (*entities.Quiz, error) {
	for _, q := range c.doc.Quizzes {
		if q.Slug == slug {
			return &q, nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("quiz with slug %s not found", slug))
}

// ListCategories returns the quiz categories in catalog order
func (c *StaticCatalog) ListCategories(_ context.Context) ([]entities.QuizCategory, error) {
	return append([]entities.QuizCategory{}, c.doc.Categories...), nil
}

func clonePharmacist(p entities.Pharmacist) entities.Pharmacist {
	p.Specialties = append([]string(nil), p.Specialties...)
	return p
}
