package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"earnflow/internal/model"
)

type SubmissionRepo interface {
	// Create returns ErrDuplicate when a submission for the same flow, or for
	// the same user and opportunity, exists
	Create(ctx context.Context, s *model.Submission) error
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	GetByUser(ctx context.Context, userID string) ([]*model.Submission, error)
	GetByUserOpportunity(ctx context.Context, userID, opportunityID string) (*model.Submission, error)
	// GetByStatus returns submissions in a review state, oldest first
	GetByStatus(ctx context.Context, status model.SubmissionStatus, limit int) ([]*model.Submission, error)
	// UpdateStatus returns ErrNotFound when id is unknown
	UpdateStatus(ctx context.Context, id string, status model.SubmissionStatus) error
}

type submissionRepo struct {
	collection *mongo.Collection
}

func NewSubmissionRepo(db *mongo.Database) SubmissionRepo {
	return &submissionRepo{
		collection: db.Collection("submissions"),
	}
}

func (r *submissionRepo) Create(ctx context.Context, s *model.Submission) error {
	_, err := r.collection.InsertOne(ctx, s)
	return insertErr(err)
}

func (r *submissionRepo) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *submissionRepo) GetByUserOpportunity(ctx context.Context, userID, opportunityID string) (*model.Submission, error) {
	return r.findOne(ctx, bson.M{"userId": userID, "opportunityId": opportunityID})
}

func (r *submissionRepo) findOne(ctx context.Context, filter bson.M) (*model.Submission, error) {
	var s model.Submission
	err := r.collection.FindOne(ctx, filter).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *submissionRepo) GetByUser(ctx context.Context, userID string) ([]*model.Submission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}})
	return r.find(ctx, bson.M{"userId": userID}, opts)
}

func (r *submissionRepo) GetByStatus(ctx context.Context, status model.SubmissionStatus, limit int) ([]*model.Submission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: 1}}).SetLimit(int64(limit))
	return r.find(ctx, bson.M{"status": status}, opts)
}

func (r *submissionRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Submission, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var subs []*model.Submission
	if err = cursor.All(ctx, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *submissionRepo) UpdateStatus(ctx context.Context, id string, status model.SubmissionStatus) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": status, "reviewedAt": time.Now()},
	})
	return updateErr(res, err)
}
