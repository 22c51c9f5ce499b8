package model

// QuestionKind defines how a question is answered
type QuestionKind string

const (
	QuestionMultipleChoice QuestionKind = "multiple_choice" // Pick one of Choices
	QuestionFreeText       QuestionKind = "free_text"       // Any non-empty text
	QuestionRating         QuestionKind = "rating"          // Integer 1..Scale
)

// DefaultRatingScale is used when a rating question does not set its own scale
const DefaultRatingScale = 5

// Question is a single step of a task or survey flow
type Question struct {
	ID      string       `json:"id" bson:"id" yaml:"id"`
	Kind    QuestionKind `json:"kind" bson:"kind" yaml:"kind"`
	Prompt  string       `json:"prompt" bson:"prompt" yaml:"prompt"`
	Choices []string     `json:"choices,omitempty" bson:"choices,omitempty" yaml:"choices,omitempty"` // multiple_choice only
	Scale   int          `json:"scale,omitempty" bson:"scale,omitempty" yaml:"scale,omitempty"`       // rating only
}

// RatingScale returns the upper bound of a rating question
func (q Question) RatingScale() int {
	if q.Scale > 0 {
		return q.Scale
	}
	return DefaultRatingScale
}

// IsAnswered reports whether v holds a real answer for q rather than the sentinel.
// Rating questions treat zero as unanswered, the other kinds treat the empty string.
func (q Question) IsAnswered(v AnswerValue) bool {
	if q.Kind == QuestionRating {
		return v.Rating != 0
	}
	return v.Text != ""
}

// HasChoice reports whether label is one of the question's choices
func (q Question) HasChoice(label string) bool {
	for _, c := range q.Choices {
		if c == label {
			return true
		}
	}
	return false
}
