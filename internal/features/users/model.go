package users

import (
	"fmt"
	"time"

	"github.com/xyz-asif/callboard/internal/features/calls"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a registered user. Calls and Favourites hold full
// snapshots of calls, not references.
type User struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email            string             `bson:"email" json:"email"`
	PasswordHash     string             `bson:"passwordHash,omitempty" json:"-"`
	RegistrationDate string             `bson:"registrationDate" json:"registrationDate"`
	OriginURL        string             `bson:"originUrl,omitempty" json:"-"`
	Calls            []calls.Call       `bson:"calls" json:"calls"`
	Favourites       []calls.Call       `bson:"favourites" json:"favourites"`
}

// RegistrationDate formats t as YYYY-M-D without zero padding
func RegistrationDate(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d", t.Year(), int(t.Month()), t.Day())
}

// ProfileResponse is the owner's view from GET /user
type ProfileResponse struct {
	Email            string       `json:"email"`
	RegistrationDate string       `json:"registrationDate"`
	ID               string       `json:"id"`
	Calls            []calls.Call `json:"calls"`
	Favourites       []calls.Call `json:"favourites"`
}

// PublicProfileResponse is what anyone can see from GET /user/:userId
type PublicProfileResponse struct {
	Email            string `json:"email"`
	RegistrationDate string `json:"registrationDate"`
}

type UserURIRequest struct {
	UserID string `uri:"userId" binding:"required,objectid"`
}

func (u *User) Profile() ProfileResponse {
	p := ProfileResponse{
		Email:            u.Email,
		RegistrationDate: u.RegistrationDate,
		ID:               u.ID.Hex(),
		Calls:            u.Calls,
		Favourites:       u.Favourites,
	}
	if p.Calls == nil {
		p.Calls = []calls.Call{}
	}
	if p.Favourites == nil {
		p.Favourites = []calls.Call{}
	}
	return p
}

func (u *User) PublicProfile() PublicProfileResponse {
	return PublicProfileResponse{Email: u.Email, RegistrationDate: u.RegistrationDate}
}
