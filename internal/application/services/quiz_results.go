package services

import (
	"sync"

	"github.com/pharmacie-web/backend/internal/domain/entities"
)

// Quiz ids with dedicated result content
const (
	HairQuizID = "routine-cheveux-parfaite"
	SkinQuizID = "diagnostic-peau-personnalise"
)

// ResultBuilder turns a profile and its scores into result content for one quiz
type ResultBuilder interface {
	BuildResult(quiz entities.Quiz, profileType string, scores entities.ScoreMap) entities.QuizResult
}

// ResultBuilderFunc adapts a function to ResultBuilder
type ResultBuilderFunc func(quiz entities.Quiz, profileType string, scores entities.ScoreMap) entities.QuizResult

// BuildResult calls f
func (f ResultBuilderFunc) BuildResult(quiz entities.Quiz, profileType string, scores entities.ScoreMap) entities.QuizResult {
	return f(quiz, profileType, scores)
}

// ResultRegistry selects the result builder of a quiz by id
type ResultRegistry struct {
	mu       sync.RWMutex
	builders map[string]ResultBuilder
	fallback ResultBuilder
}

// NewResultRegistry creates an empty registry. A nil fallback uses GenericResult.
func NewResultRegistry(fallback ResultBuilder) *ResultRegistry {
	if fallback == nil {
		fallback = ResultBuilderFunc(GenericResult)
	}
	return &ResultRegistry{builders: make(map[string]ResultBuilder), fallback: fallback}
}

// DefaultResultRegistry has builders for the hair and skin quizzes
func DefaultResultRegistry() *ResultRegistry {
	r := NewResultRegistry(nil)
	r.Register(HairQuizID, ResultBuilderFunc(HairResult))
	r.Register(SkinQuizID, ResultBuilderFunc(SkinResult))
	return r
}

// Register sets the builder for quizID, replacing any previous one
func (r *ResultRegistry) Register(quizID string, builder ResultBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[quizID] = builder
}

// Build derives the profile from scores and runs the builder registered for
// the quiz. The result always carries the profile and the raw scores.
func (r *ResultRegistry) Build(quiz entities.Quiz, scores entities.ScoreMap) entities.QuizResult {
	r.mu.RLock()
	builder, ok := r.builders[quiz.ID]
	if !ok {
		builder = r.fallback
	}
	r.mu.RUnlock()

	profile := scores.ProfileType()
	result := builder.BuildResult(quiz, profile, scores.Clone())
	result.ProfileType = profile
	result.Score = scores.Clone()
	if result.Characteristics == nil {
		result.Characteristics = []string{}
	}
	if result.Recommendations == nil {
		result.Recommendations = []entities.ProductRecommendation{}
	}
	if result.RoutineSteps == nil {
		result.RoutineSteps = []entities.RoutineStep{}
	}
	if result.Tips == nil {
		result.Tips = []string{}
	}
	return result
}

// GenericResult is the result shell used for quizzes without dedicated content
func GenericResult(_ entities.Quiz, profileType string, scores entities.ScoreMap) entities.QuizResult {
	return entities.QuizResult{
		ProfileType:     profileType,
		Title:           "Profil personnalisé",
		Description:     "Découvrez vos recommandations sur-mesure.",
		Characteristics: []string{},
		Recommendations: []entities.ProductRecommendation{},
		RoutineSteps:    []entities.RoutineStep{},
		Tips:            []string{},
		Score:           scores,
	}
}

type hairProfile struct {
	title           string
	description     string
	characteristics []string
	recommendations []entities.ProductRecommendation
}

var hairProfiles = map[string]hairProfile{
	"gras": {
		title:           "Cheveux à tendance grasse",
		description:     "Vos cheveux ont besoin d'un équilibre délicat entre purification et hydratation.",
		characteristics: []string{"Racines qui regraissent rapidement", "Besoin de lavages fréquents", "Manque de volume"},
		recommendations: []entities.ProductRecommendation{{
			ID:          "1",
			Name:        "Shampooing purifiant",
			Brand:       "Ducray",
			Category:    "Shampooing",
			Price:       "12,90€",
			Priority:    entities.PriorityEssential,
			Description: "Nettoie en douceur sans agresser le cuir chevelu",
			Reasons:     []string{"Régule la production de sébum", "Apporte de la fraîcheur"},
		}},
	},
	"sec": {
		title:           "Cheveux secs et déshydratés",
		description:     "Vos cheveux ont soif ! Ils ont besoin de nutrition et d'hydratation intense.",
		characteristics: []string{"Cheveux ternes et rêches", "Pointes fourchues", "Difficiles à démêler"},
		recommendations: []entities.ProductRecommendation{{
			ID:          "2",
			Name:        "Masque nutritif intense",
			Brand:       "Klorane",
			Category:    "Soin",
			Price:       "16,50€",
			Priority:    entities.PriorityEssential,
			Description: "Répare et nourrit les cheveux abîmés",
			Reasons:     []string{"Hydratation profonde", "Réparation des longueurs"},
		}},
	},
}

// HairResult builds the hair routine result. Profiles without dedicated
// content get the oily hair content under their own profile type.
func HairResult(_ entities.Quiz, profileType string, scores entities.ScoreMap) entities.QuizResult {
	profile, ok := hairProfiles[profileType]
	if !ok {
		profile = hairProfiles["gras"]
	}
	return entities.QuizResult{
		ProfileType:     profileType,
		Title:           profile.title,
		Description:     profile.description,
		Characteristics: append([]string{}, profile.characteristics...),
		Recommendations: cloneRecommendations(profile.recommendations),
		RoutineSteps: []entities.RoutineStep{
			{Step: 1, Timing: entities.TimingMorning, Action: "Brossage délicat", Products: []string{"Brosse en fibres naturelles"}},
			{Step: 2, Timing: entities.TimingEvening, Action: "Shampooing adapté", Products: []string{"Shampooing spécialisé"}},
		},
		Tips: []string{
			"Évitez l'eau trop chaude qui stimule les glandes sébacées",
			"Espacez les lavages si possible",
			"Utilisez un shampooing sec entre les lavages",
		},
		Score: scores,
	}
}

// SkinResult builds the skin diagnostic result
func SkinResult(_ entities.Quiz, profileType string, scores entities.ScoreMap) entities.QuizResult {
	return entities.QuizResult{
		ProfileType:     profileType,
		Title:           "Peau à tendance mixte",
		Description:     "Votre peau présente des zones différentes qui nécessitent une approche personnalisée.",
		Characteristics: []string{"Zone T grasse", "Joues normales à sèches", "Pores dilatés sur le nez"},
		Recommendations: []entities.ProductRecommendation{},
		RoutineSteps:    []entities.RoutineStep{},
		Tips:            []string{"Utilisez des produits adaptés à chaque zone", "Hydratez même les zones grasses"},
		Score:           scores,
	}
}

func cloneRecommendations(in []entities.ProductRecommendation) []entities.ProductRecommendation {
	out := make([]entities.ProductRecommendation, len(in))
	for i, r := range in {
		r.Reasons = append([]string{}, r.Reasons...)
		out[i] = r
	}
	return out
}
