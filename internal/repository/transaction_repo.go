package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"earnflow/internal/model"
)

// TransactionRepo is the wallet ledger
type TransactionRepo interface {
	// Create returns ErrDuplicate when the transaction id is already recorded
	Create(ctx context.Context, tx *model.Transaction) error
	// GetByUser returns a user's transactions, newest first
	GetByUser(ctx context.Context, userID string) ([]*model.Transaction, error)
	// UpdateStatus returns ErrNotFound when id is unknown
	UpdateStatus(ctx context.Context, id string, status model.TransactionStatus) error
}

type transactionRepo struct {
	collection *mongo.Collection
}

func NewTransactionRepo(db *mongo.Database) TransactionRepo {
	return &transactionRepo{
		collection: db.Collection("transactions"),
	}
}

func (r *transactionRepo) Create(ctx context.Context, tx *model.Transaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, tx)
	return insertErr(err)
}

func (r *transactionRepo) GetByUser(ctx context.Context, userID string) ([]*model.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var txs []*model.Transaction
	if err = cursor.All(ctx, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *transactionRepo) UpdateStatus(ctx context.Context, id string, status model.TransactionStatus) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	return updateErr(res, err)
}
