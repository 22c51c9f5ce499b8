package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"earnflow/internal/model"
)

// OpportunityRepo handles MongoDB operations for the task and survey catalog
type OpportunityRepo interface {
	Upsert(ctx context.Context, o *model.Opportunity) error
	GetByID(ctx context.Context, id string) (*model.Opportunity, error)
	List(ctx context.Context, kind model.OpportunityKind) ([]*model.Opportunity, error)
	Count(ctx context.Context) (int64, error)
}

type opportunityRepo struct {
	collection *mongo.Collection
}

// NewOpportunityRepo creates a new catalog repository
func NewOpportunityRepo(db *mongo.Database) OpportunityRepo {
	return &opportunityRepo{
		collection: db.Collection("opportunities"),
	}
}

func (r *opportunityRepo) Upsert(ctx context.Context, o *model.Opportunity) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": o.ID}, o, options.Replace().SetUpsert(true))
	return err
}

func (r *opportunityRepo) GetByID(ctx context.Context, id string) (*model.Opportunity, error) {
	var o model.Opportunity
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns the catalog ordered by id, optionally limited to one kind
func (r *opportunityRepo) List(ctx context.Context, kind model.OpportunityKind) ([]*model.Opportunity, error) {
	filter := bson.M{}
	if kind != "" {
		filter["kind"] = kind
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []*model.Opportunity
	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *opportunityRepo) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
