package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AnswerKind tells whether an answer holds one value or a list of values
type AnswerKind string

const (
	AnswerSingle   AnswerKind = "single"
	AnswerMultiple AnswerKind = "multiple"
)

// Answer is the user's answer to one question. Single-choice, scale and
// image questions take a Single answer; multiple-choice questions take a
// Multiple answer. On the wire it is a JSON string or a JSON array.
type Answer struct {
	kind   AnswerKind
	values []string
}

// SingleAnswer builds an answer holding exactly one value
func SingleAnswer(value string) Answer {
	return Answer{kind: AnswerSingle, values: []string{value}}
}

// MultipleAnswer builds a list answer
func MultipleAnswer(values ...string) Answer {
	return Answer{kind: AnswerMultiple, values: append([]string{}, values...)}
}

// Kind returns the answer shape
func (a Answer) Kind() AnswerKind { return a.kind }

// Value returns the value of a single answer, or "" for a list answer
func (a Answer) Value() string {
	if a.kind != AnswerSingle || len(a.values) == 0 {
		return ""
	}
	return a.values[0]
}

// Values returns a copy of the selected values whatever the shape
func (a Answer) Values() []string {
	return append([]string{}, a.values...)
}

// Contains reports whether value is selected
func (a Answer) Contains(value string) bool {
	for _, v := range a.values {
		if v == value {
			return true
		}
	}
	return false
}

// IsEmpty reports whether nothing is selected
func (a Answer) IsEmpty() bool {
	if len(a.values) == 0 {
		return true
	}
	return a.kind == AnswerSingle && a.values[0] == ""
}

// Toggle returns a list answer with value removed when present, appended otherwise
func (a Answer) Toggle(value string) Answer {
	out := make([]string, 0, len(a.values)+1)
	removed := false
	for _, v := range a.values {
		if v == value {
			removed = true
			continue
		}
		out = append(out, v)
	}
	if !removed {
		out = append(out, value)
	}
	return Answer{kind: AnswerMultiple, values: out}
}

// MarshalJSON encodes a single answer as a string and a list answer as an array
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.kind == AnswerSingle {
		return json.Marshal(a.Value())
	}
	return json.Marshal(a.Values())
}

// UnmarshalJSON accepts either a string or an array of strings
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var values []string
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("answer: %w", err)
		}
		*a = MultipleAnswer(values...)
		return nil
	}
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("answer: expected a string or a list of strings: %w", err)
	}
	*a = SingleAnswer(value)
	return nil
}

// UserAnswers maps question ids to answers
type UserAnswers map[string]Answer

// Clone returns an independent copy
func (u UserAnswers) Clone() UserAnswers {
	out := make(UserAnswers, len(u))
	for k, v := range u {
		out[k] = Answer{kind: v.kind, values: v.Values()}
	}
	return out
}
