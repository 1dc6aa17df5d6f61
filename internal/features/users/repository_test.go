package users

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xyz-asif/callboard/internal/database"
	"github.com/xyz-asif/callboard/internal/features/calls"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// newMongoRepository connects to MONGO_URI with a throwaway database that is
// dropped when the test ends.
func newMongoRepository(t *testing.T) *Repository {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}

	db, err := database.Connect(uri, "callboard_test_"+primitive.NewObjectID().Hex())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Database.Drop(ctx)
		_ = db.Disconnect(ctx)
	})

	return NewRepository(db.Database)
}

func newStoredUser(t *testing.T, repo *Repository, email string) *User {
	t.Helper()
	user := &User{Email: email, PasswordHash: "hash", RegistrationDate: "2024-1-2"}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func storedCall(ownerID primitive.ObjectID, title string, price float64) calls.Call {
	return calls.Call{
		ID:        primitive.NewObjectID(),
		Title:     title,
		Category:  calls.CategoryTransport,
		Price:     price,
		ImageURLs: []string{"https://img/1.png"},
		Phone:     "+380501234567",
		UserID:    ownerID,
	}
}

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := newMongoRepository(t)
	ctx := context.Background()

	user := newStoredUser(t, repo, "a@b.co")
	assert.False(t, user.ID.IsZero())

	byEmail, err := repo.FindByEmail(ctx, "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Empty(t, byEmail.Calls)
	assert.NotNil(t, byEmail.Calls)

	_, err = repo.FindByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = repo.Create(ctx, &User{Email: "a@b.co"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRepositoryCallSnapshots(t *testing.T) {
	repo := newMongoRepository(t)
	ctx := context.Background()
	owner := newStoredUser(t, repo, "owner@b.co")

	first := storedCall(owner.ID, "Bike", 4)
	second := storedCall(owner.ID, "Lamp", 10)
	require.NoError(t, repo.AppendCall(ctx, owner.ID, first))
	require.NoError(t, repo.AppendCall(ctx, owner.ID, second))

	old, discount := 4.0, 75.0
	edited := first
	edited.Title = "Red bike"
	edited.Price = 1
	edited.OldPrice = &old
	edited.IsOnSale = true
	edited.DiscountPercents = &discount
	require.NoError(t, repo.SetCallSnapshot(ctx, owner.ID, edited))

	owned, err := repo.Calls(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, "Red bike", owned[0].Title)
	assert.Equal(t, 1.0, owned[0].Price)
	require.NotNil(t, owned[0].OldPrice)
	assert.Equal(t, 4.0, *owned[0].OldPrice)
	require.NotNil(t, owned[0].DiscountPercents)
	assert.Equal(t, 75.0, *owned[0].DiscountPercents)
	assert.True(t, owned[0].IsOnSale)
	assert.Equal(t, second, owned[1])

	err = repo.SetCallSnapshot(ctx, owner.ID, storedCall(owner.ID, "Ghost", 1))
	assert.ErrorIs(t, err, calls.ErrSnapshotNotFound)

	require.NoError(t, repo.RemoveCall(ctx, owner.ID, first.ID))
	owned, err = repo.Calls(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, second.ID, owned[0].ID)

	err = repo.AppendCall(ctx, primitive.NewObjectID(), first)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.Calls(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepositoryFavourites(t *testing.T) {
	repo := newMongoRepository(t)
	ctx := context.Background()
	owner := newStoredUser(t, repo, "owner@b.co")
	fan := newStoredUser(t, repo, "fan@b.co")

	liked := storedCall(owner.ID, "Bike", 4)
	other := storedCall(owner.ID, "Lamp", 10)

	has, err := repo.HasFavourite(ctx, fan.ID, liked.ID)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, repo.AddFavourite(ctx, fan.ID, liked))
	require.NoError(t, repo.AddFavourite(ctx, fan.ID, other))

	has, err = repo.HasFavourite(ctx, fan.ID, liked.ID)
	require.NoError(t, err)
	assert.True(t, has)

	favourites, err := repo.Favourites(ctx, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, []calls.Call{liked, other}, favourites)

	remaining, err := repo.RemoveFavourite(ctx, fan.ID, liked.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, other.ID, remaining[0].ID)

	has, err = repo.HasFavourite(ctx, fan.ID, liked.ID)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = repo.RemoveFavourite(ctx, primitive.NewObjectID(), liked.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
