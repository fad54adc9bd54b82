package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// QuestionType is how a question is answered
type QuestionType string

const (
	QuestionTypeSingle   QuestionType = "single"
	QuestionTypeMultiple QuestionType = "multiple"
	QuestionTypeScale    QuestionType = "scale"
	QuestionTypeImage    QuestionType = "image"
)

// Difficulty of a quiz
type Difficulty string

const (
	DifficultyEasy     Difficulty = "facile"
	DifficultyMedium   Difficulty = "moyen"
	DifficultyAdvanced Difficulty = "avancé"
)

// QuizCategory groups quizzes (hair, skin, supplements, wellbeing)
type QuizCategory struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Slug        string `json:"slug" yaml:"slug"`
	Description string `json:"description" yaml:"description"`
	Color       string `json:"color" yaml:"color"`
	Icon        string `json:"icon" yaml:"icon"`
}

// AxisWeight is the contribution of an option to one scoring axis
type AxisWeight struct {
	Axis   string
	Weight int
}

// Weights is the ordered scoring map of an option. It is encoded as a
// JSON/YAML object and decoding keeps the key order of the document.
type Weights []AxisWeight

// MarshalJSON encodes the weights as an object in declaration order
func (w Weights) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, aw := range w {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(aw.Axis)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(aw.Weight))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping key order
func (w *Weights) UnmarshalJSON(data []byte) error {
	out := Weights{}
	err := decodeOrderedObject(data, func(key string, dec *json.Decoder) error {
		var v int
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("weight for axis %q: %w", key, err)
		}
		out = append(out, AxisWeight{Axis: key, Weight: v})
		return nil
	})
	if err != nil {
		return err
	}
	*w = out
	return nil
}

// UnmarshalYAML decodes a mapping node keeping key order
func (w *Weights) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("points: expected a mapping, got %v at line %d", node.Tag, node.Line)
	}
	out := make(Weights, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var v int
		if err := node.Content[i+1].Decode(&v); err != nil {
			return fmt.Errorf("points.%s: %w", node.Content[i].Value, err)
		}
		out = append(out, AxisWeight{Axis: node.Content[i].Value, Weight: v})
	}
	*w = out
	return nil
}

// Option is one selectable answer of a question
type Option struct {
	ID     string  `json:"id" yaml:"id"`
	Label  string  `json:"label" yaml:"label"`
	Value  string  `json:"value" yaml:"value"`
	Image  string  `json:"image,omitempty" yaml:"image"`
	Points Weights `json:"points,omitempty" yaml:"points"`
}

// Question is one step of a quiz
type Question struct {
	ID          string       `json:"id" yaml:"id"`
	Prompt      string       `json:"question" yaml:"question"`
	Description string       `json:"description,omitempty" yaml:"description"`
	Type        QuestionType `json:"type" yaml:"type"`
	Required    bool         `json:"required" yaml:"required"`
	Options     []Option     `json:"options" yaml:"options"`
}

// HasValue reports whether value belongs to one of the question's options
func (q Question) HasValue(value string) bool {
	for _, o := range q.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Quiz is a beauty diagnostic with an ordered list of questions
type Quiz struct {
	ID          string       `json:"id" yaml:"id"`
	Slug        string       `json:"slug" yaml:"slug"`
	Title       string       `json:"title" yaml:"title"`
	Subtitle    string       `json:"subtitle" yaml:"subtitle"`
	Description string       `json:"description" yaml:"description"`
	Category    QuizCategory `json:"category" yaml:"-"`
	CategoryID  string       `json:"-" yaml:"category"`
	CoverImage  string       `json:"cover_image" yaml:"cover_image"`
	Icon        string       `json:"icon" yaml:"icon"`
	// EstimatedTime in minutes
	EstimatedTime   int        `json:"estimated_time" yaml:"estimated_time"`
	Difficulty      Difficulty `json:"difficulty" yaml:"difficulty"`
	Questions       []Question `json:"questions" yaml:"questions"`
	PopularityScore int        `json:"popularity_score" yaml:"popularity_score"`
	Featured        bool       `json:"featured" yaml:"featured"`
	Tags            []string   `json:"tags" yaml:"tags"`
}

// Question returns the question with the given id and its index
func (q *Quiz) Question(id string) (*Question, int, bool) {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return &q.Questions[i], i, true
		}
	}
	return nil, -1, false
}

func decodeOrderedObject(data []byte, fn func(key string, dec *json.Decoder) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected a JSON object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected an object key")
		}
		if err := fn(key, dec); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
