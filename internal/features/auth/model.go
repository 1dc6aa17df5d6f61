package auth

import (
	"github.com/xyz-asif/callboard/internal/features/users"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is one signed-in device. Tokens carry its id and die with it.
type Session struct {
	ID  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UID primitive.ObjectID `bson:"uid" json:"uid"`
}

// RegisterRequest represents the payload for POST /auth/register
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,min=3,max=254" example:"user@example.com"`
	Password string `json:"password" binding:"required,min=8,max=100" example:"qwerty123"`
}

// LoginRequest has the same shape as RegisterRequest
type LoginRequest struct {
	Email    string `json:"email" binding:"required,min=3,max=254" example:"user@example.com"`
	Password string `json:"password" binding:"required,min=8,max=100" example:"qwerty123"`
}

type RefreshRequest struct {
	Sid string `json:"sid" binding:"required,objectid" example:"507f1f77bcf86cd799439011"`
}

type RegisterResponse struct {
	Email            string `json:"email"`
	RegistrationDate string `json:"registrationDate"`
	ID               string `json:"id"`
}

type LoginResponse struct {
	AccessToken  string                `json:"accessToken"`
	RefreshToken string                `json:"refreshToken"`
	Sid          string                `json:"sid"`
	User         users.ProfileResponse `json:"user"`
}

type RefreshResponse struct {
	NewAccessToken  string `json:"newAccessToken"`
	NewRefreshToken string `json:"newRefreshToken"`
	NewSid          string `json:"newSid"`
}
