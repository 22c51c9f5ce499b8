package repository

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrDuplicate is returned when an insert hits a unique index
	ErrDuplicate = errors.New("document already exists")
	// ErrNotFound is returned by updates that match no document
	ErrNotFound = errors.New("document not found")
)

func insertErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func updateErr(res *mongo.UpdateResult, err error) error {
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
