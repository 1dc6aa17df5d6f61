package calls

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xyz-asif/callboard/internal/pkg/response"
	"github.com/xyz-asif/callboard/internal/pkg/storage"
	"github.com/xyz-asif/callboard/internal/pkg/validator"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CallService is what the handlers need from *Service
type CallService interface {
	Create(ctx context.Context, ownerID primitive.ObjectID, req CreateCallRequest, images []storage.Image) (*Call, error)
	Edit(ctx context.Context, ownerID, callID primitive.ObjectID, req EditCallRequest, images []storage.Image) (*Call, error)
	Delete(ctx context.Context, ownerID, callID primitive.ObjectID) error
	AddFavourite(ctx context.Context, userID, callID primitive.ObjectID) ([]Call, error)
	RemoveFavourite(ctx context.Context, userID, callID primitive.ObjectID) ([]Call, error)
	Get(ctx context.Context, callID primitive.ObjectID) (*Call, error)
	OwnCalls(ctx context.Context, userID primitive.ObjectID) ([]Call, error)
	Favourites(ctx context.Context, userID primitive.ObjectID) ([]Call, error)
	Search(ctx context.Context, query string) ([]Call, error)
	ByCategory(ctx context.Context, category string) ([]Call, error)
}

var _ CallService = (*Service)(nil)

// Handler handles call-related HTTP requests
type Handler struct {
	service CallService
}

// NewHandler creates a new call handler
func NewHandler(service CallService) *Handler {
	return &Handler{service: service}
}

// CreateCall godoc
// @Summary Create a call
// @Description Creates a listing with 1 to 5 images sent as "file" parts
// @Tags calls
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param description formData string true "Description"
// @Param category formData string true "Category"
// @Param price formData number true "Price"
// @Param phone formData string true "Phone, +380000000000"
// @Param file formData file true "Images"
// @Success 201 {object} response.APIResponse{data=Call}
// @Failure 400 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Failure 415 {object} response.APIResponse
// @Router /calls [post]
func (h *Handler) CreateCall(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateCallRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if !onlyKnownFormFields(c, &req) {
		return
	}

	images, release, ok := formImages(c)
	if !ok {
		return
	}
	defer release()

	call, err := h.service.Create(c.Request.Context(), userID, req, images)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, call)
}

// EditCall godoc
// @Summary Edit a call
// @Description Changes any subset of fields. A new price moves the sale state; new images replace the old ones.
// @Tags calls
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param callId path string true "Call ID"
// @Param request body EditCallRequest false "Fields to change"
// @Success 200 {object} response.APIResponse{data=Call}
// @Failure 400 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Failure 415 {object} response.APIResponse
// @Router /calls/{callId} [patch]
func (h *Handler) EditCall(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	callID, ok := bindCallID(c)
	if !ok {
		return
	}

	var req EditCallRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&req); err != nil {
			response.BindError(c, err)
			return
		}
		if !onlyKnownFormFields(c, &req) {
			return
		}
	}
	if err := ValidateEditCallRequest(&req); err != nil {
		response.BadRequest(c, err.Error(), "VALIDATION_FAILED")
		return
	}

	var images []storage.Image
	if isMultipart(c) {
		var release func()
		images, release, ok = formImages(c)
		if !ok {
			return
		}
		defer release()
	}

	call, err := h.service.Edit(c.Request.Context(), userID, callID, req, images)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, call)
}

// DeleteCall godoc
// @Summary Delete a call
// @Tags calls
// @Security BearerAuth
// @Param callId path string true "Call ID"
// @Success 204
// @Failure 400 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /calls/{callId} [delete]
func (h *Handler) DeleteCall(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	callID, ok := bindCallID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, callID); err != nil {
		response.FromError(c, err)
		return
	}

	response.NoContent(c)
}

// AddFavourite godoc
// @Summary Add a call to favourites
// @Tags calls
// @Produce json
// @Security BearerAuth
// @Param callId path string true "Call ID"
// @Success 200 {object} response.APIResponse{data=NewFavouritesResponse}
// @Failure 403 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /calls/favourite/{callId} [post]
func (h *Handler) AddFavourite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	callID, ok := bindCallID(c)
	if !ok {
		return
	}

	favourites, err := h.service.AddFavourite(c.Request.Context(), userID, callID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, NewFavouritesResponse{NewFavourites: favourites})
}

// RemoveFavourite godoc
// @Summary Remove a call from favourites
// @Tags calls
// @Produce json
// @Security BearerAuth
// @Param callId path string true "Call ID"
// @Success 200 {object} response.APIResponse{data=NewFavouritesResponse}
// @Failure 403 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /calls/favourite/{callId} [delete]
func (h *Handler) RemoveFavourite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	callID, ok := bindCallID(c)
	if !ok {
		return
	}

	favourites, err := h.service.RemoveFavourite(c.Request.Context(), userID, callID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, NewFavouritesResponse{NewFavourites: favourites})
}

// GetOwnCalls godoc
// @Summary List the caller's calls
// @Tags calls
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.APIResponse{data=CallsResponse}
// @Router /calls/own [get]
func (h *Handler) GetOwnCalls(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	list, err := h.service.OwnCalls(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, CallsResponse{Calls: list})
}

// GetFavourites godoc
// @Summary List the caller's favourites
// @Tags calls
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.APIResponse{data=FavouritesResponse}
// @Router /calls/favourites [get]
func (h *Handler) GetFavourites(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	list, err := h.service.Favourites(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, FavouritesResponse{Favourites: list})
}

// SearchCalls godoc
// @Summary Search calls by title
// @Tags calls
// @Produce json
// @Param search query string true "Substring of the title"
// @Success 200 {object} response.APIResponse{data=[]Call}
// @Failure 400 {object} response.APIResponse
// @Router /calls/find [get]
func (h *Handler) SearchCalls(c *gin.Context) {
	var q SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	list, err := h.service.Search(c.Request.Context(), q.Search)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, list)
}

// GetCategory godoc
// @Summary List calls of one category
// @Tags calls
// @Produce json
// @Param category path string true "Category, or businessAndServices / recreationAndSport"
// @Success 200 {object} response.APIResponse{data=[]Call}
// @Failure 404 {object} response.APIResponse
// @Router /calls/specific/{category} [get]
func (h *Handler) GetCategory(c *gin.Context) {
	list, err := h.service.ByCategory(c.Request.Context(), c.Param("category"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, list)
}

// GetCall godoc
// @Summary Get a call
// @Tags calls
// @Produce json
// @Param callId path string true "Call ID"
// @Success 200 {object} response.APIResponse{data=Call}
// @Failure 400 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /calls/{callId} [get]
func (h *Handler) GetCall(c *gin.Context) {
	callID, ok := bindCallID(c)
	if !ok {
		return
	}

	call, err := h.service.Get(c.Request.Context(), callID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, call)
}

// currentUserID reads the id the authorize middleware stored on the context
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.GetString("userID"))
	if err != nil {
		response.Unauthorized(c, "Unauthorized", "UNAUTHORIZED")
		return primitive.NilObjectID, false
	}
	return id, true
}

func bindCallID(c *gin.Context) (primitive.ObjectID, bool) {
	var uri CallURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return primitive.NilObjectID, false
	}
	id, _ := primitive.ObjectIDFromHex(uri.CallID)
	return id, true
}

// onlyKnownFormFields rejects form or multipart values that req does not declare
func onlyKnownFormFields(c *gin.Context, req interface{}) bool {
	var values map[string][]string
	switch {
	case c.Request.MultipartForm != nil:
		values = c.Request.MultipartForm.Value
	case c.Request.PostForm != nil:
		values = c.Request.PostForm
	}

	if field, found := validator.UnknownFormField(values, req); found {
		response.BadRequest(c, fmt.Sprintf("'%s' is not allowed", field), "VALIDATION_FAILED")
		return false
	}
	return true
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// formImages opens the "file" parts of a multipart request
func formImages(c *gin.Context) ([]storage.Image, func(), bool) {
	if !isMultipart(c) {
		return nil, func() {}, true
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.BadRequest(c, "Invalid multipart form", "INVALID_FORM")
		return nil, nil, false
	}

	headers := form.File["file"]
	if len(headers) > MaxImages {
		response.Error(c, http.StatusBadRequest, "Only 5 and less images are allowed", "TOO_MANY_IMAGES")
		return nil, nil, false
	}

	images, release, err := storage.FromHeaders(headers)
	if err != nil {
		response.UnsupportedMediaType(c, err.Error(), "UNSUPPORTED_IMAGE")
		return nil, nil, false
	}
	return images, release, true
}
