package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xyz-asif/callboard/internal/features/users"
	"github.com/xyz-asif/callboard/internal/pkg/jwt"
	"github.com/xyz-asif/callboard/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the part of the users repository auth needs
type UserStore interface {
	Create(ctx context.Context, user *users.User) error
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*users.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, uid primitive.ObjectID) (*Session, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*Session, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

const googleSignInOnly = "You should register from front-end first (not postman). Google is only for sign-in"

type Handler struct {
	users    UserStore
	sessions SessionStore
	google   GoogleProvider
	tokens   *jwt.Config
	hashCost int
	log      *zap.Logger
}

func NewHandler(userStore UserStore, sessions SessionStore, google GoogleProvider, tokens *jwt.Config, hashCost int, log *zap.Logger) *Handler {
	if hashCost < bcrypt.MinCost || hashCost > bcrypt.MaxCost {
		hashCost = bcrypt.DefaultCost
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		users:    userStore,
		sessions: sessions,
		google:   google,
		tokens:   tokens,
		hashCost: hashCost,
		log:      log,
	}
}

// Register godoc
// @Summary Register a new user
// @Description Creates an account. The Origin header is remembered as the front-end Google sign-in redirects back to.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Credentials"
// @Success 201 {object} response.APIResponse{data=RegisterResponse}
// @Failure 400 {object} response.APIResponse
// @Failure 409 {object} response.APIResponse
// @Router /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	ctx := c.Request.Context()

	_, err := h.users.FindByEmail(ctx, req.Email)
	if err == nil {
		h.emailTaken(c, req.Email)
		return
	}
	if !errors.Is(err, users.ErrUserNotFound) {
		response.FromError(c, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.hashCost)
	if err != nil {
		response.FromError(c, err)
		return
	}

	user := &users.User{
		Email:            req.Email,
		PasswordHash:     string(hash),
		RegistrationDate: users.RegistrationDate(time.Now()),
		OriginURL:        c.GetHeader("Origin"),
	}
	if err := h.users.Create(ctx, user); err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			h.emailTaken(c, req.Email)
			return
		}
		response.FromError(c, err)
		return
	}

	response.Created(c, RegisterResponse{
		Email:            user.Email,
		RegistrationDate: user.RegistrationDate,
		ID:               user.ID.Hex(),
	})
}

func (h *Handler) emailTaken(c *gin.Context, email string) {
	response.Conflict(c, fmt.Sprintf("User with %s email already exists", email), "EMAIL_TAKEN")
}

// Login godoc
// @Summary Login user
// @Description Opens a new session and returns its token pair with the user's profile
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} response.APIResponse{data=LoginResponse}
// @Failure 400 {object} response.APIResponse
// @Failure 403 {object} response.APIResponse
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	ctx := c.Request.Context()

	user, err := h.users.FindByEmail(ctx, req.Email)
	if errors.Is(err, users.ErrUserNotFound) {
		response.Forbidden(c, fmt.Sprintf("User with %s email doesn't exist", req.Email), "USER_NOT_FOUND")
		return
	}
	if err != nil {
		response.FromError(c, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		response.Forbidden(c, "Password is wrong", "WRONG_PASSWORD")
		return
	}

	session, pair, err := h.openSession(ctx, user.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Sid:          session.ID.Hex(),
		User:         user.Profile(),
	})
}

// Refresh godoc
// @Summary Rotate a session
// @Description Exchanges a refresh token for a new session. An invalid refresh token destroys the session named by sid.
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RefreshRequest true "Current session id"
// @Success 200 {object} response.APIResponse{data=RefreshResponse}
// @Failure 400 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	raw, ok := bearerToken(c)
	if !ok {
		return
	}

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	ctx := c.Request.Context()
	sid, _ := primitive.ObjectIDFromHex(req.Sid)

	if _, err := h.sessions.FindByID(ctx, sid); err != nil {
		h.sessionError(c, err)
		return
	}

	claims, err := jwt.ValidateRefreshToken(raw, h.tokens)
	if err != nil {
		if err := h.sessions.Delete(ctx, sid); err != nil {
			h.log.Error("failed to drop session after bad refresh token", zap.String("sid", req.Sid), zap.Error(err))
		}
		response.Unauthorized(c, "Unauthorized", "UNAUTHORIZED")
		return
	}

	user, session, ok := h.resolve(c, claims)
	if !ok {
		return
	}

	if err := h.sessions.Delete(ctx, session.ID); err != nil {
		response.FromError(c, err)
		return
	}

	next, pair, err := h.openSession(ctx, user.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, RefreshResponse{
		NewAccessToken:  pair.AccessToken,
		NewRefreshToken: pair.RefreshToken,
		NewSid:          next.ID.Hex(),
	})
}

// Logout godoc
// @Summary Logout
// @Description Ends the current session
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} response.APIResponse
// @Router /auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	sid, err := primitive.ObjectIDFromHex(c.GetString("sessionID"))
	if err != nil {
		response.Unauthorized(c, "Unauthorized", "UNAUTHORIZED")
		return
	}

	if err := h.sessions.Delete(c.Request.Context(), sid); err != nil {
		response.FromError(c, err)
		return
	}

	response.NoContent(c)
}

// GoogleAuth godoc
// @Summary Start Google sign-in
// @Tags auth
// @Success 302
// @Router /auth/google [get]
func (h *Handler) GoogleAuth(c *gin.Context) {
	c.Redirect(http.StatusFound, h.google.AuthCodeURL())
}

// GoogleRedirect godoc
// @Summary Finish Google sign-in
// @Description Signs in an existing user and redirects to the front-end they registered from with the new tokens in the query string
// @Tags auth
// @Param code query string true "Authorization code"
// @Success 302
// @Failure 400 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Failure 403 {object} response.APIResponse
// @Router /auth/google-redirect [get]
func (h *Handler) GoogleRedirect(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		response.BadRequest(c, "No code provided", "CODE_REQUIRED")
		return
	}
	ctx := c.Request.Context()

	email, err := h.google.Email(ctx, code)
	if err != nil {
		h.log.Warn("google code exchange failed", zap.Error(err))
		response.Unauthorized(c, "Unauthorized", "GOOGLE_AUTH_FAILED")
		return
	}

	user, err := h.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, users.ErrUserNotFound) {
		response.FromError(c, err)
		return
	}
	if user == nil || user.OriginURL == "" {
		response.Forbidden(c, googleSignInOnly, "REGISTRATION_REQUIRED")
		return
	}

	target, err := url.Parse(user.OriginURL)
	if err != nil {
		response.FromError(c, err)
		return
	}

	session, pair, err := h.openSession(ctx, user.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	q := target.Query()
	q.Set("accessToken", pair.AccessToken)
	q.Set("refreshToken", pair.RefreshToken)
	q.Set("sid", session.ID.Hex())
	target.RawQuery = q.Encode()

	c.Redirect(http.StatusFound, target.String())
}

func (h *Handler) openSession(ctx context.Context, uid primitive.ObjectID) (*Session, *jwt.TokenPair, error) {
	session, err := h.sessions.Create(ctx, uid)
	if err != nil {
		return nil, nil, err
	}
	pair, err := jwt.GenerateTokenPair(uid.Hex(), session.ID.Hex(), h.tokens)
	if err != nil {
		return nil, nil, err
	}
	return session, pair, nil
}

// resolve loads the user and session a verified token points at, writing
// the error response itself when either is gone.
func (h *Handler) resolve(c *gin.Context, claims *jwt.Claims) (*users.User, *Session, bool) {
	ctx := c.Request.Context()

	uid, err := primitive.ObjectIDFromHex(claims.UID)
	if err != nil {
		response.NotFound(c, "Invalid user", "INVALID_USER")
		return nil, nil, false
	}
	user, err := h.users.FindByID(ctx, uid)
	if errors.Is(err, users.ErrUserNotFound) {
		response.NotFound(c, "Invalid user", "INVALID_USER")
		return nil, nil, false
	}
	if err != nil {
		response.FromError(c, err)
		return nil, nil, false
	}

	sid, err := primitive.ObjectIDFromHex(claims.SID)
	if err != nil {
		response.NotFound(c, "Invalid session", "INVALID_SESSION")
		return nil, nil, false
	}
	session, err := h.sessions.FindByID(ctx, sid)
	if err != nil {
		h.sessionError(c, err)
		return nil, nil, false
	}

	return user, session, true
}

func (h *Handler) sessionError(c *gin.Context, err error) {
	if errors.Is(err, ErrSessionNotFound) {
		response.NotFound(c, "Invalid session", "INVALID_SESSION")
		return
	}
	response.FromError(c, err)
}
