package flow

import (
	"context"

	"earnflow/internal/model"
)

// Submitter receives the final answers of a flow. Any error is treated as
// retryable and any receipt as final.
type Submitter interface {
	Submit(ctx context.Context, flowID string, answers model.Answers) (*model.Receipt, error)
}

// SubmitFunc lets an ordinary function act as a Submitter
type SubmitFunc func(ctx context.Context, flowID string, answers model.Answers) (*model.Receipt, error)

func (f SubmitFunc) Submit(ctx context.Context, flowID string, answers model.Answers) (*model.Receipt, error) {
	return f(ctx, flowID, answers)
}
