package auth

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrSessionNotFound = errors.New("session not found")

// Repository stores sessions
type Repository struct {
	collection *mongo.Collection
}

// NewRepository initializes the repository and creates necessary indexes
func NewRepository(db *mongo.Database) *Repository {
	collection := db.Collection("sessions")

	_, _ = collection.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "uid", Value: 1}},
	})

	return &Repository{collection: collection}
}

// Create opens a new session for uid
func (r *Repository) Create(ctx context.Context, uid primitive.ObjectID) (*Session, error) {
	session := &Session{ID: primitive.NewObjectID(), UID: uid}
	if _, err := r.collection.InsertOne(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (r *Repository) FindByID(ctx context.Context, id primitive.ObjectID) (*Session, error) {
	var session Session
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (r *Repository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
