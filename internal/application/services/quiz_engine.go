package services

import (
	"math"
	"strconv"
	"sync"

	"github.com/pharmacie-web/backend/internal/domain/entities"
	apperrors "github.com/pharmacie-web/backend/pkg/errors"
)

var (
	// ErrNoQuizLoaded is returned by operations that need an initialized quiz
	ErrNoQuizLoaded = apperrors.NewConflictError("no quiz loaded")

	// ErrQuizCompleted is returned when answering or navigating a completed quiz
	ErrQuizCompleted = apperrors.NewConflictError("quiz is already completed")
)

// QuizEngineOption configures a QuizEngine
type QuizEngineOption func(*QuizEngine)

// WithStrictNavigation rejects jumps past a required question that has no answer
func WithStrictNavigation() QuizEngineOption {
	return func(e *QuizEngine) { e.strict = true }
}

// QuizEngine runs one user through one quiz: answers, navigation and
// result generation. It is safe for concurrent use.
type QuizEngine struct {
	mu      sync.RWMutex
	state   entities.QuizState
	results *ResultRegistry
	strict  bool

	// announced is set once the current completion has been claimed
	announced bool
}

// NewQuizEngine creates an engine with no quiz loaded
func NewQuizEngine(results *ResultRegistry, opts ...QuizEngineOption) *QuizEngine {
	return RestoreQuizEngine(entities.NewQuizState(), results, opts...)
}

// RestoreQuizEngine recreates an engine from a snapshot
func RestoreQuizEngine(state entities.QuizState, results *ResultRegistry, opts ...QuizEngineOption) *QuizEngine {
	if results == nil {
		results = DefaultResultRegistry()
	}
	e := &QuizEngine{state: cloneQuizState(state), results: results, announced: state.Completed}
	if e.state.Answers == nil {
		e.state.Answers = entities.UserAnswers{}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize loads quiz and discards any previous progress
func (e *QuizEngine) Initialize(quiz entities.Quiz) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = entities.NewQuizState()
	e.state.Quiz = &quiz
	e.announced = false
}

// SetAnswer records value for a question. Multiple choice questions toggle
// value in the selection; every other type overwrites the answer.
func (e *QuizEngine) SetAnswer(questionID, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkOpen(); err != nil {
		return err
	}
	q, _, ok := e.state.Quiz.Question(questionID)
	if !ok {
		return apperrors.NewValidationError("unknown question " + questionID)
	}
	if !q.HasValue(value) {
		return apperrors.NewValidationError("value " + strconv.Quote(value) + " is not an option of question " + questionID)
	}

	if q.Type != entities.QuestionTypeMultiple {
		e.state.Answers[questionID] = entities.SingleAnswer(value)
		return nil
	}

	toggled := e.state.Answers[questionID].Toggle(value)
	if toggled.IsEmpty() {
		delete(e.state.Answers, questionID)
		return nil
	}
	e.state.Answers[questionID] = toggled
	return nil
}

// NextQuestion moves forward, completing the quiz from the last question
func (e *QuizEngine) NextQuestion() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkOpen(); err != nil {
		return err
	}
	if e.state.CurrentQuestionIndex < len(e.state.Quiz.Questions)-1 {
		e.state.CurrentQuestionIndex++
		return nil
	}
	e.completeLocked()
	return nil
}

// PreviousQuestion moves back one question. It does nothing on the first
// question or once the quiz is completed.
func (e *QuizEngine) PreviousQuestion() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Quiz == nil || e.state.Completed || e.state.CurrentQuestionIndex == 0 {
		return
	}
	e.state.CurrentQuestionIndex--
}

// GoToQuestion jumps to index
func (e *QuizEngine) GoToQuestion(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkOpen(); err != nil {
		return err
	}
	if index < 0 || index >= len(e.state.Quiz.Questions) {
		return apperrors.NewValidationError("question index " + strconv.Itoa(index) + " is out of range")
	}
	if e.strict && index > e.state.CurrentQuestionIndex {
		for _, q := range e.state.Quiz.Questions[:index] {
			if q.Required && e.state.Answers[q.ID].IsEmpty() {
				return apperrors.NewValidationError("question " + q.ID + " must be answered first")
			}
		}
	}
	e.state.CurrentQuestionIndex = index
	return nil
}

// CompleteQuiz scores the answers and builds the result. Completing an
// already completed quiz returns the existing result.
func (e *QuizEngine) CompleteQuiz() (*entities.QuizResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Quiz == nil {
		return nil, ErrNoQuizLoaded
	}
	if !e.state.Completed {
		e.completeLocked()
	}
	result := cloneResult(*e.state.Result)
	return &result, nil
}

// ResetQuiz unloads the quiz
func (e *QuizEngine) ResetQuiz() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = entities.NewQuizState()
	e.announced = false
}

// State returns a copy of the current state
func (e *QuizEngine) State() entities.QuizState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return cloneQuizState(e.state)
}

// CurrentQuestion returns the question at the current index
func (e *QuizEngine) CurrentQuestion() (*entities.Question, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	q := e.currentLocked()
	if q == nil {
		return nil, false
	}
	out := *q
	return &out, true
}

// Progress returns the completion percentage of the current position
func (e *QuizEngine) Progress() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.state.Quiz == nil {
		return 0
	}
	n := len(e.state.Quiz.Questions)
	if n == 0 {
		return 100
	}
	return int(math.Round(float64(e.state.CurrentQuestionIndex+1) * 100 / float64(n)))
}

// CanGoNext reports whether the current question allows moving forward
func (e *QuizEngine) CanGoNext() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	q := e.currentLocked()
	if q == nil {
		return false
	}
	return !q.Required || !e.state.Answers[q.ID].IsEmpty()
}

// CanGoPrevious reports whether the index is past the first question
func (e *QuizEngine) CanGoPrevious() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.state.CurrentQuestionIndex > 0
}

// claimCompletion returns the completed state the first time it is called
// after the quiz completes. Later calls report false until the engine is
// initialized again.
func (e *QuizEngine) claimCompletion() (entities.QuizState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Completed || e.announced {
		return entities.QuizState{}, false
	}
	e.announced = true
	return cloneQuizState(e.state), true
}

func (e *QuizEngine) checkOpen() error {
	if e.state.Quiz == nil {
		return ErrNoQuizLoaded
	}
	if e.state.Completed {
		return ErrQuizCompleted
	}
	return nil
}

func (e *QuizEngine) currentLocked() *entities.Question {
	if e.state.Quiz == nil {
		return nil
	}
	i := e.state.CurrentQuestionIndex
	if i < 0 || i >= len(e.state.Quiz.Questions) {
		return nil
	}
	return &e.state.Quiz.Questions[i]
}

func (e *QuizEngine) completeLocked() {
	scores := CalculateScores(e.state.Quiz.Questions, e.state.Answers)
	result := e.results.Build(*e.state.Quiz, *scores)
	e.state.Completed = true
	e.state.Result = &result
}

func cloneQuizState(s entities.QuizState) entities.QuizState {
	out := s
	if s.Quiz != nil {
		quiz := *s.Quiz
		out.Quiz = &quiz
	}
	if s.Answers != nil {
		out.Answers = s.Answers.Clone()
	}
	if s.Result != nil {
		result := cloneResult(*s.Result)
		out.Result = &result
	}
	return out
}

func cloneResult(r entities.QuizResult) entities.QuizResult {
	out := r
	out.Characteristics = append([]string{}, r.Characteristics...)
	out.Recommendations = append([]entities.ProductRecommendation{}, r.Recommendations...)
	out.RoutineSteps = append([]entities.RoutineStep{}, r.RoutineSteps...)
	out.Tips = append([]string{}, r.Tips...)
	out.Score = r.Score.Clone()
	return out
}
