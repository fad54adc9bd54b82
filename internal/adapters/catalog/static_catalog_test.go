package catalog_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pharmacie-web/backend/internal/adapters/catalog"
	"github.com/pharmacie-web/backend/internal/domain/entities"
	apperrors "github.com/pharmacie-web/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_LoadsEmbeddedCatalog(t *testing.T) {
	ctx := context.Background()
	c, err := catalog.Default()
	require.NoError(t, err)

	services, err := c.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, services, 3)
	assert.Equal(t, "entretien-pharmaceutique", services[0].ID)
	assert.Empty(t, services[0].PharmacistID)
	assert.Equal(t, "thomas-legrand", services[1].PharmacistID)

	pharmacists, err := c.ListPharmacists(ctx)
	require.NoError(t, err)
	assert.Len(t, pharmacists, 3)

	categories, err := c.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 4)

	quizzes, err := c.ListQuizzes(ctx)
	require.NoError(t, err)
	require.Len(t, quizzes, 6)
	assert.Equal(t, "cheveux", quizzes[0].Category.Slug)
	assert.Len(t, quizzes[0].Questions, 3)
	assert.NotNil(t, quizzes[3].Questions)
	assert.Empty(t, quizzes[3].Questions)
}

func TestDefault_KeepsPointOrder(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	quiz, err := c.GetQuizBySlug(context.Background(), "diagnostic-peau-personnalise")
	require.NoError(t, err)

	q, _, ok := quiz.Question("age-peau")
	require.True(t, ok)
	assert.Equal(t, entities.QuestionTypeSingle, q.Type)
	assert.Equal(t, entities.Weights{{Axis: "antiage", Weight: 3}}, q.Options[3].Points)
}

func TestGetters_NotFound(t *testing.T) {
	ctx := context.Background()
	c, err := catalog.Default()
	require.NoError(t, err)

	_, err = c.GetService(ctx, "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	_, err = c.GetPharmacist(ctx, "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	_, err = c.GetQuizBySlug(ctx, "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestGetPharmacist_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	c, err := catalog.Default()
	require.NoError(t, err)

	p, err := c.GetPharmacist(ctx, "marie-laurent")
	require.NoError(t, err)
	p.Specialties[0] = "changed"

	again, err := c.GetPharmacist(ctx, "marie-laurent")
	require.NoError(t, err)
	assert.Equal(t, "Dermocosmétique", again.Specialties[0])
}

func TestLoad_RejectsUnknownCategory(t *testing.T) {
	doc := `
categories:
  - {id: peau, name: Peau, slug: peau}
quizzes:
  - {id: q1, slug: q1, category: cheveux}
`
	_, err := catalog.Load(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category")
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	_, err := catalog.Load(strings.NewReader("services:\n  - {id: s1, price: 10}\n"))
	assert.Error(t, err)
}
