package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/pharmacie-web/backend/internal/domain/providers"
	"github.com/rs/zerolog/log"
)

const quizSessionKind = "quiz"

// QuizView is the state of a quiz session with its derived values
type QuizView struct {
	ID              string             `json:"id"`
	State           entities.QuizState `json:"state"`
	CurrentQuestion *entities.Question `json:"current_question"`
	Progress        int                `json:"progress"`
	CanGoNext       bool               `json:"can_go_next"`
	CanGoPrevious   bool               `json:"can_go_previous"`
}

// QuizSessionService runs one QuizEngine per session
type QuizSessionService struct {
	catalog *CatalogService
	results *ResultRegistry
	bus     providers.EventBus
	metrics SessionMetrics
	opts    []QuizEngineOption
	store   *sessionStore[*QuizEngine]
}

// NewQuizSessionService creates a new quiz session service
func NewQuizSessionService(catalog *CatalogService, results *ResultRegistry, deps SessionDeps, opts ...QuizEngineOption) *QuizSessionService {
	if results == nil {
		results = DefaultResultRegistry()
	}
	s := &QuizSessionService{
		catalog: catalog,
		results: results,
		bus:     deps.Bus,
		metrics: deps.Metrics,
		opts:    opts,
	}
	s.store = newSessionStore(quizSessionKind, deps.TTL, deps.Cache,
		func(e *QuizEngine) any { return e.State() },
		func(data []byte) (*QuizEngine, error) {
			var state entities.QuizState
			if err := json.Unmarshal(data, &state); err != nil {
				return nil, err
			}
			return RestoreQuizEngine(state, s.results, s.opts...), nil
		},
	)
	if deps.Metrics != nil {
		s.store.onChange = func(ctx context.Context, delta int64) {
			deps.Metrics.AddActiveSessions(ctx, quizSessionKind, delta)
		}
	}
	return s
}

// StartJanitor evicts idle sessions every interval until ctx is done
func (s *QuizSessionService) StartJanitor(ctx context.Context, interval time.Duration) {
	s.store.startJanitor(ctx, interval)
}

// Start opens a session on the quiz with the given slug
func (s *QuizSessionService) Start(ctx context.Context, slug string) (*QuizView, error) {
	quiz, err := s.catalog.GetQuizBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	engine := NewQuizEngine(s.results, s.opts...)
	engine.Initialize(*quiz)
	s.store.put(ctx, id, engine)

	log.Debug().Str("session_id", id).Str("quiz_id", quiz.ID).Msg("Quiz session started")
	return s.view(id, engine), nil
}

// Get returns the current view of a session
func (s *QuizSessionService) Get(ctx context.Context, id string) (*QuizView, error) {
	engine, err := s.store.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(id, engine), nil
}

// SetAnswer records an answer value for a question
func (s *QuizSessionService) SetAnswer(ctx context.Context, id, questionID, value string) (*QuizView, error) {
	return s.mutate(ctx, id, func(e *QuizEngine) error {
		return e.SetAnswer(questionID, value)
	})
}

// Next moves forward; on the last question it completes the quiz
func (s *QuizSessionService) Next(ctx context.Context, id string) (*QuizView, error) {
	return s.mutate(ctx, id, (*QuizEngine).NextQuestion)
}

// Previous moves back one question
func (s *QuizSessionService) Previous(ctx context.Context, id string) (*QuizView, error) {
	return s.mutate(ctx, id, func(e *QuizEngine) error {
		e.PreviousQuestion()
		return nil
	})
}

// GoTo jumps to a question index
func (s *QuizSessionService) GoTo(ctx context.Context, id string, index int) (*QuizView, error) {
	return s.mutate(ctx, id, func(e *QuizEngine) error {
		return e.GoToQuestion(index)
	})
}

// Complete scores the quiz
func (s *QuizSessionService) Complete(ctx context.Context, id string) (*QuizView, error) {
	return s.mutate(ctx, id, func(e *QuizEngine) error {
		_, err := e.CompleteQuiz()
		return err
	})
}

// Reset restarts the session on the same quiz
func (s *QuizSessionService) Reset(ctx context.Context, id string) (*QuizView, error) {
	return s.mutate(ctx, id, func(e *QuizEngine) error {
		quiz := e.State().Quiz
		e.ResetQuiz()
		if quiz != nil {
			e.Initialize(*quiz)
		}
		return nil
	})
}

// Close discards a session
func (s *QuizSessionService) Close(ctx context.Context, id string) error {
	return s.store.remove(ctx, id)
}

func (s *QuizSessionService) mutate(ctx context.Context, id string, fn func(*QuizEngine) error) (*QuizView, error) {
	engine, err := s.store.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(engine); err != nil {
		return nil, err
	}
	s.store.save(ctx, id, engine)

	if state, ok := engine.claimCompletion(); ok {
		s.completed(ctx, id, state)
	}
	return s.view(id, engine), nil
}

func (s *QuizSessionService) completed(ctx context.Context, id string, state entities.QuizState) {
	if state.Quiz == nil || state.Result == nil {
		return
	}
	profile := state.Result.ProfileType

	if s.metrics != nil {
		s.metrics.RecordQuizCompletion(ctx, state.Quiz.ID, profile)
	}
	log.Info().Str("session_id", id).Str("quiz_id", state.Quiz.ID).Str("profile_type", profile).Msg("Quiz completed")

	if s.bus == nil {
		return
	}
	event := entities.NewDomainEvent(entities.EventQuizCompleted, id, map[string]interface{}{
		"quiz_id":      state.Quiz.ID,
		"profile_type": profile,
		"answers":      len(state.Answers),
	})
	if err := s.bus.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("session_id", id).Msg("Failed to publish quiz event")
	}
}

func (s *QuizSessionService) view(id string, e *QuizEngine) *QuizView {
	v := &QuizView{
		ID:            id,
		State:         e.State(),
		Progress:      e.Progress(),
		CanGoNext:     e.CanGoNext(),
		CanGoPrevious: e.CanGoPrevious(),
	}
	if q, ok := e.CurrentQuestion(); ok {
		v.CurrentQuestion = q
	}
	return v
}
