package users

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xyz-asif/callboard/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Finder is the lookup the profile handlers need
type Finder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*User, error)
}

type Handler struct {
	repo Finder
}

func NewHandler(repo Finder) *Handler {
	return &Handler{repo: repo}
}

// GetCurrentUser godoc
// @Summary Get the caller's profile
// @Description Returns the caller's email, registration date, calls and favourites
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.APIResponse{data=ProfileResponse}
// @Failure 400 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Router /user [get]
func (h *Handler) GetCurrentUser(c *gin.Context) {
	value, exists := c.Get("user")
	user, ok := value.(*User)
	if !exists || !ok {
		response.Unauthorized(c, "Unauthorized", "UNAUTHORIZED")
		return
	}

	response.Success(c, user.Profile())
}

// GetUserByID godoc
// @Summary Get a user's public profile
// @Tags user
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} response.APIResponse{data=PublicProfileResponse}
// @Failure 400 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /user/{userId} [get]
func (h *Handler) GetUserByID(c *gin.Context) {
	var uri UserURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return
	}
	id, _ := primitive.ObjectIDFromHex(uri.UserID)

	user, err := h.repo.FindByID(c.Request.Context(), id)
	if errors.Is(err, ErrUserNotFound) {
		response.NotFound(c, "User not found", "USER_NOT_FOUND")
		return
	}
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, user.PublicProfile())
}
