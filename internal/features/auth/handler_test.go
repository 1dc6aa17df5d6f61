package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xyz-asif/callboard/internal/features/users"
	"github.com/xyz-asif/callboard/internal/pkg/jwt"
	"github.com/xyz-asif/callboard/internal/pkg/ratelimit"
	"github.com/xyz-asif/callboard/internal/pkg/validator"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := validator.Setup(); err != nil {
		panic(err)
	}
}

type memUsers struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*users.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[primitive.ObjectID]*users.User{}}
}

func (m *memUsers) Create(_ context.Context, user *users.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == user.Email {
			return users.ErrEmailTaken
		}
	}
	user.ID = primitive.NewObjectID()
	m.byID[user.ID] = user
	return nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, users.ErrUserNotFound
}

func (m *memUsers) FindByID(_ context.Context, id primitive.ObjectID) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, users.ErrUserNotFound
}

type memSessions struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*Session
}

func (m *memSessions) Create(_ context.Context, uid primitive.ObjectID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Session{ID: primitive.NewObjectID(), UID: uid}
	m.byID[s.ID] = s
	return s, nil
}

func (m *memSessions) FindByID(_ context.Context, id primitive.ObjectID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return nil, ErrSessionNotFound
}

func (m *memSessions) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *memSessions) has(id string) bool {
	oid, _ := primitive.ObjectIDFromHex(id)
	_, err := m.FindByID(context.Background(), oid)
	return err == nil
}

type fakeGoogle struct {
	email string
	err   error
}

func (f *fakeGoogle) AuthCodeURL() string {
	return "https://accounts.google.com/o/oauth2/auth?prompt=consent"
}

func (f *fakeGoogle) Email(_ context.Context, code string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.email, nil
}

type fixture struct {
	users    *memUsers
	sessions *memSessions
	google   *fakeGoogle
	tokens   *jwt.Config
	handler  *Handler
	router   *gin.Engine
}

func setup(t *testing.T, limiter *ratelimit.RateLimiter) *fixture {
	t.Helper()
	f := &fixture{
		users:    newMemUsers(),
		sessions: &memSessions{byID: map[primitive.ObjectID]*Session{}},
		google:   &fakeGoogle{},
		tokens:   jwt.DefaultConfig("access-secret", "refresh-secret"),
	}
	f.handler = NewHandler(f.users, f.sessions, f.google, f.tokens, bcrypt.MinCost, nil)
	f.router = gin.New()
	RegisterRoutes(f.router.Group(""), f.handler, limiter)
	return f
}

func (f *fixture) do(method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) seedUser(t *testing.T, email, password, origin string) *users.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &users.User{Email: email, PasswordHash: string(hash), RegistrationDate: "2024-1-2", OriginURL: origin}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) login(t *testing.T, email, password string) LoginResponse {
	t.Helper()
	w := f.do(http.MethodPost, "/auth/login", gin.H{"email": email, "password": password}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var env struct {
		Data LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Data
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRegister(t *testing.T) {
	f := setup(t, nil)

	w := f.do(http.MethodPost, "/auth/register",
		gin.H{"email": "user@example.com", "password": "qwerty123"},
		map[string]string{"Origin": "https://front.example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "user@example.com", data["email"])
	assert.Equal(t, users.RegistrationDate(time.Now()), data["registrationDate"])
	assert.NotEmpty(t, data["id"])

	stored, err := f.users.FindByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://front.example.com", stored.OriginURL)
	assert.NotEqual(t, "qwerty123", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("qwerty123")))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := setup(t, nil)
	f.seedUser(t, "user@example.com", "qwerty123", "")

	w := f.do(http.MethodPost, "/auth/register", gin.H{"email": "user@example.com", "password": "qwerty123"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "User with user@example.com email already exists", decode(t, w)["message"])
}

func TestRegisterValidation(t *testing.T) {
	f := setup(t, nil)

	w := f.do(http.MethodPost, "/auth/register", gin.H{"email": "user@example.com", "password": "short"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "'password' must be at least 8", decode(t, w)["message"])

	w = f.do(http.MethodPost, "/auth/register", gin.H{"password": "qwerty123"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "'email' is required", decode(t, w)["message"])
}

func TestLogin(t *testing.T) {
	f := setup(t, nil)
	u := f.seedUser(t, "user@example.com", "qwerty123", "")

	res := f.login(t, "user@example.com", "qwerty123")
	assert.True(t, f.sessions.has(res.Sid))
	assert.Equal(t, u.ID.Hex(), res.User.ID)
	assert.Equal(t, "2024-1-2", res.User.RegistrationDate)
	assert.NotNil(t, res.User.Calls)
	assert.NotNil(t, res.User.Favourites)

	claims, err := jwt.ValidateAccessToken(res.AccessToken, f.tokens)
	require.NoError(t, err)
	assert.Equal(t, u.ID.Hex(), claims.UID)
	assert.Equal(t, res.Sid, claims.SID)
}

func TestLoginRejections(t *testing.T) {
	f := setup(t, nil)
	f.seedUser(t, "user@example.com", "qwerty123", "")

	w := f.do(http.MethodPost, "/auth/login", gin.H{"email": "ghost@example.com", "password": "qwerty123"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "User with ghost@example.com email doesn't exist", decode(t, w)["message"])

	w = f.do(http.MethodPost, "/auth/login", gin.H{"email": "user@example.com", "password": "wrongpass1"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Password is wrong", decode(t, w)["message"])
	assert.Empty(t, f.sessions.byID)
}

func TestAuthorize(t *testing.T) {
	f := setup(t, nil)
	u := f.seedUser(t, "user@example.com", "qwerty123", "")

	var seen []string
	f.router.GET("/protected", f.handler.Authorize(), func(c *gin.Context) {
		user := c.MustGet("user").(*users.User)
		seen = []string{user.Email, c.GetString("userID"), c.GetString("sessionID")}
		c.Status(http.StatusOK)
	})

	w := f.do(http.MethodGet, "/protected", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No token provided", decode(t, w)["message"])

	w = f.do(http.MethodGet, "/protected", nil, map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", decode(t, w)["message"])

	res := f.login(t, "user@example.com", "qwerty123")

	// refresh token is signed with the other secret
	w = f.do(http.MethodGet, "/protected", nil, map[string]string{"Authorization": "Bearer " + res.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/protected", nil, map[string]string{"Authorization": "Bearer " + res.AccessToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"user@example.com", u.ID.Hex(), res.Sid}, seen)

	// the prefix is optional
	w = f.do(http.MethodGet, "/protected", nil, map[string]string{"Authorization": res.AccessToken})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorizeMissingUserOrSession(t *testing.T) {
	f := setup(t, nil)
	f.router.GET("/protected", f.handler.Authorize(), func(c *gin.Context) { c.Status(http.StatusOK) })

	ghost, err := jwt.GenerateTokenPair(primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex(), f.tokens)
	require.NoError(t, err)
	w := f.do(http.MethodGet, "/protected", nil, map[string]string{"Authorization": "Bearer " + ghost.AccessToken})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Invalid user", decode(t, w)["message"])

	u := f.seedUser(t, "user@example.com", "qwerty123", "")
	orphan, err := jwt.GenerateTokenPair(u.ID.Hex(), primitive.NewObjectID().Hex(), f.tokens)
	require.NoError(t, err)
	w = f.do(http.MethodGet, "/protected", nil, map[string]string{"Authorization": "Bearer " + orphan.AccessToken})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Invalid session", decode(t, w)["message"])
}

func TestLogout(t *testing.T) {
	f := setup(t, nil)
	f.seedUser(t, "user@example.com", "qwerty123", "")
	res := f.login(t, "user@example.com", "qwerty123")
	auth := map[string]string{"Authorization": "Bearer " + res.AccessToken}

	w := f.do(http.MethodPost, "/auth/logout", nil, auth)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, f.sessions.has(res.Sid))

	w = f.do(http.MethodPost, "/auth/logout", nil, auth)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefreshRotatesSession(t *testing.T) {
	f := setup(t, nil)
	f.seedUser(t, "user@example.com", "qwerty123", "")
	res := f.login(t, "user@example.com", "qwerty123")

	w := f.do(http.MethodPost, "/auth/refresh", gin.H{"sid": res.Sid},
		map[string]string{"Authorization": "Bearer " + res.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decode(t, w)["data"].(map[string]any)
	newSid := data["newSid"].(string)
	assert.NotEqual(t, res.Sid, newSid)
	assert.False(t, f.sessions.has(res.Sid))
	assert.True(t, f.sessions.has(newSid))

	claims, err := jwt.ValidateRefreshToken(data["newRefreshToken"].(string), f.tokens)
	require.NoError(t, err)
	assert.Equal(t, newSid, claims.SID)
	_, err = jwt.ValidateAccessToken(data["newAccessToken"].(string), f.tokens)
	assert.NoError(t, err)
}

func TestRefreshRejections(t *testing.T) {
	f := setup(t, nil)
	f.seedUser(t, "user@example.com", "qwerty123", "")
	res := f.login(t, "user@example.com", "qwerty123")
	bearer := map[string]string{"Authorization": "Bearer " + res.RefreshToken}

	w := f.do(http.MethodPost, "/auth/refresh", gin.H{"sid": res.Sid}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No token provided", decode(t, w)["message"])

	w = f.do(http.MethodPost, "/auth/refresh", gin.H{"sid": "123"}, bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid 'sid'. Must be a MongoDB ObjectId", decode(t, w)["message"])

	w = f.do(http.MethodPost, "/auth/refresh", gin.H{"sid": primitive.NewObjectID().Hex()}, bearer)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Invalid session", decode(t, w)["message"])
	assert.True(t, f.sessions.has(res.Sid))
}

func TestRefreshWithBadTokenDestroysSession(t *testing.T) {
	f := setup(t, nil)
	f.seedUser(t, "user@example.com", "qwerty123", "")
	res := f.login(t, "user@example.com", "qwerty123")

	w := f.do(http.MethodPost, "/auth/refresh", gin.H{"sid": res.Sid},
		map[string]string{"Authorization": "Bearer " + res.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, f.sessions.has(res.Sid))
}

func TestGoogleAuthRedirects(t *testing.T) {
	f := setup(t, nil)

	w := f.do(http.MethodGet, "/auth/google", nil, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, f.google.AuthCodeURL(), w.Header().Get("Location"))
}

func TestGoogleRedirect(t *testing.T) {
	f := setup(t, nil)
	u := f.seedUser(t, "user@example.com", "qwerty123", "https://front.example.com/app")
	f.google.email = "user@example.com"

	w := f.do(http.MethodGet, "/auth/google-redirect?code=abc", nil, nil)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "front.example.com", loc.Host)
	assert.Equal(t, "/app", loc.Path)

	q := loc.Query()
	assert.True(t, f.sessions.has(q.Get("sid")))
	claims, err := jwt.ValidateAccessToken(q.Get("accessToken"), f.tokens)
	require.NoError(t, err)
	assert.Equal(t, u.ID.Hex(), claims.UID)
	assert.NotEmpty(t, q.Get("refreshToken"))
}

func TestGoogleRedirectRequiresFrontendRegistration(t *testing.T) {
	f := setup(t, nil)
	f.seedUser(t, "postman@example.com", "qwerty123", "")

	for _, email := range []string{"stranger@example.com", "postman@example.com"} {
		f.google.email = email
		w := f.do(http.MethodGet, "/auth/google-redirect?code=abc", nil, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, email)
		assert.Equal(t, googleSignInOnly, decode(t, w)["message"])
	}
	assert.Empty(t, f.sessions.byID)
}

func TestGoogleRedirectFailures(t *testing.T) {
	f := setup(t, nil)

	w := f.do(http.MethodGet, "/auth/google-redirect", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.google.err = errors.New("invalid_grant")
	w = f.do(http.MethodGet, "/auth/google-redirect?code=abc", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCredentialEndpointsAreRateLimited(t *testing.T) {
	f := setup(t, ratelimit.New(2, time.Minute))
	body := gin.H{"email": "ghost@example.com", "password": "qwerty123"}

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/auth/login", body, nil).Code)
	assert.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/auth/register", body, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodPost, "/auth/login", body, nil).Code)
}

func TestNewHandlerFallsBackToDefaultCost(t *testing.T) {
	h := NewHandler(nil, nil, nil, nil, 99, nil)
	assert.Equal(t, bcrypt.DefaultCost, h.hashCost)
}
