package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"earnflow/internal/model"
)

// ProfileRepo handles MongoDB operations for user profiles
type ProfileRepo interface {
	Get(ctx context.Context, userID string) (*model.Profile, error)
	// Create returns ErrDuplicate when the user or the referral code exists
	Create(ctx context.Context, p *model.Profile) error
	// Replace returns ErrNotFound when the profile does not exist
	Replace(ctx context.Context, p *model.Profile) error
	GetByReferralCode(ctx context.Context, code string) (*model.Profile, error)
	// GetByReferrer returns the profiles referred by a user, newest first
	GetByReferrer(ctx context.Context, referrerID string) ([]*model.Profile, error)
	// SetReferrer records the referrer unless one is already set. It reports
	// whether the profile was changed.
	SetReferrer(ctx context.Context, userID, referrerID string, at time.Time) (bool, error)
}

type profileRepo struct {
	collection *mongo.Collection
}

func NewProfileRepo(db *mongo.Database) ProfileRepo {
	return &profileRepo{
		collection: db.Collection("profiles"),
	}
}

func (r *profileRepo) Get(ctx context.Context, userID string) (*model.Profile, error) {
	return r.findOne(ctx, bson.M{"_id": userID})
}

func (r *profileRepo) GetByReferralCode(ctx context.Context, code string) (*model.Profile, error) {
	return r.findOne(ctx, bson.M{"referralCode": code})
}

func (r *profileRepo) findOne(ctx context.Context, filter bson.M) (*model.Profile, error) {
	var p model.Profile
	err := r.collection.FindOne(ctx, filter).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepo) Create(ctx context.Context, p *model.Profile) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, p)
	return insertErr(err)
}

func (r *profileRepo) Replace(ctx context.Context, p *model.Profile) error {
	p.UpdatedAt = time.Now()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": p.UserID}, p)
	return updateErr(res, err)
}

func (r *profileRepo) GetByReferrer(ctx context.Context, referrerID string) ([]*model.Profile, error) {
	opts := options.Find().SetSort(bson.D{{Key: "referredAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"referredBy": referrerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var profiles []*model.Profile
	if err = cursor.All(ctx, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *profileRepo) SetReferrer(ctx context.Context, userID, referrerID string, at time.Time) (bool, error) {
	filter := bson.M{"_id": userID, "referredBy": bson.M{"$exists": false}}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"referredBy": referrerID, "referredAt": at, "updatedAt": at},
	})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
