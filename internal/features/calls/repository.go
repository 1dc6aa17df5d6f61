package calls

import (
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Repository handles database interactions for the canonical calls collection
type Repository struct {
	collection *mongo.Collection
}

// NewRepository creates repository and ensures indexes
func NewRepository(db *mongo.Database) *Repository {
	collection := db.Collection("calls")

	_, _ = collection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "isOnSale", Value: 1}}},
	})

	return &Repository{
		collection: collection,
	}
}

func (r *Repository) Insert(ctx context.Context, call *Call) error {
	if call.ID.IsZero() {
		call.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, call)
	return err
}

func (r *Repository) FindByID(ctx context.Context, id primitive.ObjectID) (*Call, error) {
	var call Call
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&call)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCallNotFound
	}
	if err != nil {
		return nil, err
	}
	return &call, nil
}

// Replace overwrites the whole document, so fields left nil on call are removed
func (r *Repository) Replace(ctx context.Context, call *Call) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": call.ID}, call)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrCallNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrCallNotFound
	}
	return nil
}

func (r *Repository) FindByCategory(ctx context.Context, category Category) ([]Call, error) {
	return r.find(ctx, bson.M{"category": category})
}

// SearchByTitle does a case-insensitive substring match; query is taken literally
func (r *Repository) SearchByTitle(ctx context.Context, query string) ([]Call, error) {
	return r.find(ctx, bson.M{
		"title": primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"},
	})
}

func (r *Repository) find(ctx context.Context, filter bson.M) ([]Call, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	calls := []Call{}
	if err := cursor.All(ctx, &calls); err != nil {
		return nil, err
	}
	return calls, nil
}
