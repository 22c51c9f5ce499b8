package model

import "time"

// AnswerValue holds a user's answer. Text is used by choice and free-text
// questions, Rating by rating questions.
type AnswerValue struct {
	Text   string `json:"text,omitempty" bson:"text,omitempty"`
	Rating int    `json:"rating,omitempty" bson:"rating,omitempty"`
}

// TextAnswer builds an answer for a choice or free-text question
func TextAnswer(s string) AnswerValue {
	return AnswerValue{Text: s}
}

// RatingAnswer builds an answer for a rating question
func RatingAnswer(n int) AnswerValue {
	return AnswerValue{Rating: n}
}

// Answers maps question ID to the recorded answer
type Answers map[string]AnswerValue

// Clone returns an independent copy
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// SubmissionStatus is the review state of a submission
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// Submission is the persisted result of a completed flow
type Submission struct {
	ID            string           `json:"id" bson:"_id"` // same as the flow ID
	UserID        string           `json:"userId" bson:"userId"`
	OpportunityID string           `json:"opportunityId" bson:"opportunityId"`
	Kind          OpportunityKind  `json:"kind" bson:"kind"`
	Answers       Answers          `json:"answers" bson:"answers"`
	Reward        float64          `json:"reward" bson:"reward"`
	Status        SubmissionStatus `json:"status" bson:"status"`
	SubmittedAt   time.Time        `json:"submittedAt" bson:"submittedAt"`
	ReviewedAt    *time.Time       `json:"reviewedAt,omitempty" bson:"reviewedAt,omitempty"`
}

// ReviewRequest is an operator decision on a pending submission
type ReviewRequest struct {
	Approve bool `json:"approve"`
}

// Receipt is returned to the flow once a submission has been accepted
type Receipt struct {
	SubmissionID string    `json:"submissionId"`
	FlowID       string    `json:"flowId"`
	Reward       float64   `json:"reward"`
	Status       string    `json:"status"`
	SubmittedAt  time.Time `json:"submittedAt"`
}
