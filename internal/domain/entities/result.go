package entities

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// DefaultProfileType is used when no answer contributed any score
const DefaultProfileType = "equilibre"

// ScoreMap accumulates integer totals per axis and remembers the order in
// which axes were first seen. The zero value is ready to use.
type ScoreMap struct {
	order  []string
	totals map[string]int
}

// NewScoreMap returns an empty score map
func NewScoreMap() *ScoreMap {
	return &ScoreMap{totals: make(map[string]int)}
}

// Add adds weight to axis
func (s *ScoreMap) Add(axis string, weight int) {
	if s.totals == nil {
		s.totals = make(map[string]int)
	}
	if _, ok := s.totals[axis]; !ok {
		s.order = append(s.order, axis)
	}
	s.totals[axis] += weight
}

// Get returns the total of axis, 0 when the axis was never scored
func (s ScoreMap) Get(axis string) int {
	return s.totals[axis]
}

// Axes returns the axes in first-insertion order
func (s ScoreMap) Axes() []string {
	return append([]string{}, s.order...)
}

// Len returns the number of scored axes
func (s ScoreMap) Len() int {
	return len(s.order)
}

// Dominant returns the axis with the highest total. Ties go to the axis
// inserted first. ok is false when the map is empty.
func (s ScoreMap) Dominant() (axis string, ok bool) {
	best := 0
	for _, a := range s.order {
		if !ok || s.totals[a] > best {
			axis, best, ok = a, s.totals[a], true
		}
	}
	return axis, ok
}

// ProfileType returns the dominant axis or DefaultProfileType
func (s ScoreMap) ProfileType() string {
	if axis, ok := s.Dominant(); ok {
		return axis
	}
	return DefaultProfileType
}

// Clone returns an independent copy
func (s ScoreMap) Clone() ScoreMap {
	out := ScoreMap{order: append([]string{}, s.order...), totals: make(map[string]int, len(s.totals))}
	for k, v := range s.totals {
		out.totals[k] = v
	}
	return out
}

// MarshalJSON encodes the scores as an object in insertion order
func (s ScoreMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, axis := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(axis)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(s.totals[axis]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping key order
func (s *ScoreMap) UnmarshalJSON(data []byte) error {
	out := NewScoreMap()
	err := decodeOrderedObject(data, func(key string, dec *json.Decoder) error {
		var v int
		if err := dec.Decode(&v); err != nil {
			return err
		}
		out.Add(key, v)
		return nil
	})
	if err != nil {
		return err
	}
	*s = *out
	return nil
}

// RecommendationPriority ranks a product in a result
type RecommendationPriority string

const (
	PriorityEssential   RecommendationPriority = "essentiel"
	PriorityRecommended RecommendationPriority = "recommandé"
	PriorityBonus       RecommendationPriority = "bonus"
)

// RecommendationLevel maps a score to a recommendation priority
func RecommendationLevel(score int) RecommendationPriority {
	switch {
	case score >= 8:
		return PriorityEssential
	case score >= 5:
		return PriorityRecommended
	default:
		return PriorityBonus
	}
}

// RoutineTiming is when a routine step happens
type RoutineTiming string

const (
	TimingMorning RoutineTiming = "matin"
	TimingEvening RoutineTiming = "soir"
	TimingWeekly  RoutineTiming = "hebdomadaire"
)

// ProductRecommendation is a product suggested by a quiz result
type ProductRecommendation struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Brand       string                 `json:"brand"`
	Category    string                 `json:"category"`
	Price       string                 `json:"price"`
	Priority    RecommendationPriority `json:"priority"`
	Description string                 `json:"description"`
	Image       string                 `json:"image,omitempty"`
	Reasons     []string               `json:"reasons"`
}

// RoutineStep is one step of a recommended care routine
type RoutineStep struct {
	Step     int           `json:"step"`
	Timing   RoutineTiming `json:"timing"`
	Action   string        `json:"action"`
	Products []string      `json:"products"`
	Duration string        `json:"duration,omitempty"`
}

// QuizResult is the outcome of a completed quiz
type QuizResult struct {
	ProfileType     string                  `json:"profile_type"`
	Title           string                  `json:"title"`
	Description     string                  `json:"description"`
	Characteristics []string                `json:"characteristics"`
	Recommendations []ProductRecommendation `json:"recommendations"`
	RoutineSteps    []RoutineStep           `json:"routine_steps"`
	Tips            []string                `json:"tips"`
	Score           ScoreMap                `json:"score"`
}

// QuizState is the progress of one user through one quiz
type QuizState struct {
	Quiz                 *Quiz       `json:"quiz"`
	CurrentQuestionIndex int         `json:"current_question_index"`
	Answers              UserAnswers `json:"answers"`
	Completed            bool        `json:"completed"`
	Result               *QuizResult `json:"result"`
}

// NewQuizState returns the state with no quiz loaded
func NewQuizState() QuizState {
	return QuizState{Answers: UserAnswers{}}
}
