package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// EnsureIndexes creates the secondary indexes used by the list queries.
// Failures are logged and do not stop startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database, log *zap.Logger) {
	createIndex(ctx, log, db.Collection("opportunities"), bson.D{
		{Key: "kind", Value: 1},
		{Key: "category", Value: 1},
	}, false)

	createIndex(ctx, log, db.Collection("submissions"), bson.D{
		{Key: "userId", Value: 1},
		{Key: "submittedAt", Value: -1},
	}, false)
	// one submission per user and opportunity
	createIndex(ctx, log, db.Collection("submissions"), bson.D{
		{Key: "userId", Value: 1},
		{Key: "opportunityId", Value: 1},
	}, true)
	createIndex(ctx, log, db.Collection("submissions"), bson.D{
		{Key: "status", Value: 1},
		{Key: "submittedAt", Value: 1},
	}, false)

	createIndex(ctx, log, db.Collection("transactions"), bson.D{
		{Key: "userId", Value: 1},
		{Key: "createdAt", Value: -1},
	}, false)

	createIndex(ctx, log, db.Collection("profiles"), bson.D{
		{Key: "referralCode", Value: 1},
	}, true)
	createIndex(ctx, log, db.Collection("profiles"), bson.D{
		{Key: "referredBy", Value: 1},
	}, false)

	log.Info("mongo indexes ensured")
}

func createIndex(ctx context.Context, log *zap.Logger, coll *mongo.Collection, keys bson.D, unique bool) {
	opts := options.Index().SetUnique(unique)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	if err != nil {
		log.Warn("failed to create index", zap.String("collection", coll.Name()), zap.Error(err))
	}
}
