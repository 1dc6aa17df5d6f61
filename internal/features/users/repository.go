package users

import (
	"context"
	"errors"

	"github.com/xyz-asif/callboard/internal/features/calls"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// Repository handles database interactions for users and their embedded call snapshots
type Repository struct {
	collection *mongo.Collection
}

var _ calls.UserStore = (*Repository)(nil)

// NewRepository initializes the repository and creates necessary indexes
func NewRepository(db *mongo.Database) *Repository {
	collection := db.Collection("users")

	_, _ = collection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// snapshot propagation filters on the embedded id
			Keys: bson.D{{Key: "calls._id", Value: 1}},
		},
	})

	return &Repository{collection: collection}
}

// Create inserts a new user with empty snapshot arrays
func (r *Repository) Create(ctx context.Context, user *User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Calls == nil {
		user.Calls = []calls.Call{}
	}
	if user.Favourites == nil {
		user.Favourites = []calls.Call{}
	}

	_, err := r.collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrEmailTaken
	}
	return err
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *Repository) FindByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *Repository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*User, error) {
	var user User
	err := r.collection.FindOne(ctx, filter, opts...).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) update(ctx context.Context, filter, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *Repository) AppendCall(ctx context.Context, ownerID primitive.ObjectID, call calls.Call) error {
	return r.update(ctx, bson.M{"_id": ownerID}, bson.M{"$push": bson.M{"calls": call}})
}

// SetCallSnapshot rewrites the owner's matching calls element in place
func (r *Repository) SetCallSnapshot(ctx context.Context, ownerID primitive.ObjectID, call calls.Call) error {
	err := r.update(ctx,
		bson.M{"_id": ownerID, "calls._id": call.ID},
		calls.SnapshotUpdate(call),
	)
	if errors.Is(err, ErrUserNotFound) {
		return calls.ErrSnapshotNotFound
	}
	return err
}

func (r *Repository) RemoveCall(ctx context.Context, ownerID, callID primitive.ObjectID) error {
	return r.update(ctx, bson.M{"_id": ownerID}, bson.M{"$pull": bson.M{"calls": bson.M{"_id": callID}}})
}

func (r *Repository) Calls(ctx context.Context, userID primitive.ObjectID) ([]calls.Call, error) {
	user, err := r.findOne(ctx, bson.M{"_id": userID}, options.FindOne().SetProjection(bson.M{"calls": 1}))
	if err != nil {
		return nil, err
	}
	return user.Calls, nil
}

func (r *Repository) Favourites(ctx context.Context, userID primitive.ObjectID) ([]calls.Call, error) {
	user, err := r.findOne(ctx, bson.M{"_id": userID}, options.FindOne().SetProjection(bson.M{"favourites": 1}))
	if err != nil {
		return nil, err
	}
	return user.Favourites, nil
}

func (r *Repository) AddFavourite(ctx context.Context, userID primitive.ObjectID, call calls.Call) error {
	return r.update(ctx, bson.M{"_id": userID}, bson.M{"$push": bson.M{"favourites": call}})
}

// RemoveFavourite pulls the entry and returns the favourites as stored afterwards
func (r *Repository) RemoveFavourite(ctx context.Context, userID, callID primitive.ObjectID) ([]calls.Call, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"favourites": 1})

	var user User
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"favourites": bson.M{"_id": callID}}},
		opts,
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user.Favourites, nil
}

func (r *Repository) HasFavourite(ctx context.Context, userID, callID primitive.ObjectID) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": userID, "favourites._id": callID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
