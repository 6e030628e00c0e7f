package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"clipstream/internal/domain"
	"clipstream/internal/service"
)

type fakeUserService struct {
	register func(service.RegisterInput) (*domain.User, error)
}

func (f *fakeUserService) Register(ctx context.Context, input service.RegisterInput) (*domain.User, error) {
	return f.register(input)
}

type fakeSessionService struct {
	login          func(email, username, password string) (*service.TokenPair, *domain.User, error)
	logout         func(userID int64) error
	refresh        func(token string) (*service.TokenPair, error)
	changePassword func(userID int64, current, next string) error
	getByID        func(userID int64) (*domain.User, error)
}

func (f *fakeSessionService) Login(ctx context.Context, email, username, password string) (*service.TokenPair, *domain.User, error) {
	return f.login(email, username, password)
}

func (f *fakeSessionService) Logout(ctx context.Context, userID int64) error {
	return f.logout(userID)
}

func (f *fakeSessionService) Refresh(ctx context.Context, token string) (*service.TokenPair, error) {
	return f.refresh(token)
}

func (f *fakeSessionService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	return f.changePassword(userID, current, next)
}

func (f *fakeSessionService) GetByID(ctx context.Context, userID int64) (*domain.User, error) {
	return f.getByID(userID)
}

type fakeVerifier struct {
	userID int64
	err    error
}

func (f *fakeVerifier) VerifyAccess(token string) (int64, error) {
	return f.userID, f.err
}

func sanitizedAlice() *domain.User {
	return &domain.User{
		ID:        1,
		Username:  "alice",
		Email:     "alice@x.com",
		FullName:  "Alice Example",
		AvatarURL: "https://cdn.example.com/a.png",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func newTestRouter(t *testing.T, users service.UserService, sessions service.SessionService, verifier AccessVerifier) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	handler := NewHandler(users, sessions, verifier, CookieConfig{
		Secure:     true,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 240 * time.Hour,
	}, t.TempDir(), logger)

	router := gin.New()
	handler.RegisterRoutes(router)
	return router
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginSetsCookiesAndEnvelope(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessionService{
		login: func(email, username, password string) (*service.TokenPair, *domain.User, error) {
			require.Equal(t, "alice", username)
			require.Equal(t, "secret1", password)
			return &service.TokenPair{AccessToken: "at-1", RefreshToken: "rt-1"}, sanitizedAlice(), nil
		},
	}
	router := newTestRouter(t, &fakeUserService{}, sessions, &fakeVerifier{})

	body := `{"username":"alice","password":"secret1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/users/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Equal(t, http.StatusOK, env.Status)

	cookies := rec.Result().Cookies()
	access := findCookie(cookies, "accessToken")
	refresh := findCookie(cookies, "refreshToken")
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	require.Equal(t, "at-1", access.Value)
	require.Equal(t, "rt-1", refresh.Value)
	require.True(t, access.HttpOnly)
	require.True(t, access.Secure)
	require.True(t, refresh.HttpOnly)
	require.True(t, refresh.Secure)

	// Body carries the same tokens as the cookies plus the sanitized user.
	require.Contains(t, rec.Body.String(), `"accessToken":"at-1"`)
	require.Contains(t, rec.Body.String(), `"refreshToken":"rt-1"`)
	require.NotContains(t, rec.Body.String(), "password")
}

func TestLoginInvalidCredentials(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessionService{
		login: func(email, username, password string) (*service.TokenPair, *domain.User, error) {
			return nil, nil, service.ErrInvalidCredentials
		},
	}
	router := newTestRouter(t, &fakeUserService{}, sessions, &fakeVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/api/users/login", strings.NewReader(`{"username":"alice","password":"wrong1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid credentials", decodeEnvelope(t, rec).Message)
}

func TestLogoutWithoutAuth(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeUserService{}, &fakeSessionService{}, &fakeVerifier{err: errors.New("no token")})

	req := httptest.NewRequest(http.MethodPost, "/api/users/logout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "unauthenticated", decodeEnvelope(t, rec).Message)
}

func TestLogoutClearsCookies(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessionService{
		logout: func(userID int64) error {
			require.Equal(t, int64(1), userID)
			return nil
		},
	}
	router := newTestRouter(t, &fakeUserService{}, sessions, &fakeVerifier{userID: 1})

	req := httptest.NewRequest(http.MethodPost, "/api/users/logout", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: "at-1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	for _, name := range []string{"accessToken", "refreshToken"} {
		cookie := findCookie(rec.Result().Cookies(), name)
		require.NotNil(t, cookie)
		require.Empty(t, cookie.Value)
		require.Negative(t, cookie.MaxAge)
	}
}

func TestRefreshFromCookie(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessionService{
		refresh: func(token string) (*service.TokenPair, error) {
			require.Equal(t, "rt-1", token)
			return &service.TokenPair{AccessToken: "at-2", RefreshToken: "rt-2"}, nil
		},
	}
	router := newTestRouter(t, &fakeUserService{}, sessions, &fakeVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/api/users/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "rt-1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	rotated := findCookie(rec.Result().Cookies(), "refreshToken")
	require.NotNil(t, rotated)
	require.Equal(t, "rt-2", rotated.Value)
}

func TestRefreshFromBody(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessionService{
		refresh: func(token string) (*service.TokenPair, error) {
			require.Equal(t, "rt-1", token)
			return &service.TokenPair{AccessToken: "at-2", RefreshToken: "rt-2"}, nil
		},
	}
	router := newTestRouter(t, &fakeUserService{}, sessions, &fakeVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/api/users/refresh", strings.NewReader(`{"refreshToken":"rt-1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

// All refresh-flow rejections surface as one indistinct 401 message.
func TestRefreshReusedToken(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessionService{
		refresh: func(token string) (*service.TokenPair, error) {
			return nil, service.ErrTokenReused
		},
	}
	router := newTestRouter(t, &fakeUserService{}, sessions, &fakeVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/api/users/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "stale"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid refresh token", decodeEnvelope(t, rec).Message)
}

func TestRegisterMultipart(t *testing.T) {
	t.Parallel()

	users := &fakeUserService{
		register: func(input service.RegisterInput) (*domain.User, error) {
			require.Equal(t, "Alice Example", input.FullName)
			require.Equal(t, "alice", input.Username)
			require.NotEmpty(t, input.AvatarPath)
			require.Empty(t, input.CoverPath)
			return sanitizedAlice(), nil
		},
	}
	router := newTestRouter(t, users, &fakeSessionService{}, &fakeVerifier{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("fullName", "Alice Example"))
	require.NoError(t, mw.WriteField("username", "alice"))
	require.NoError(t, mw.WriteField("email", "alice@x.com"))
	require.NoError(t, mw.WriteField("password", "secret1"))
	fw, err := mw.CreateFormFile("avatar", "avatar.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/users/register", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Equal(t, http.StatusCreated, env.Status)
	require.NotContains(t, rec.Body.String(), "password")
	require.NotContains(t, rec.Body.String(), "refresh_token")
}

func TestRegisterConflict(t *testing.T) {
	t.Parallel()

	users := &fakeUserService{
		register: func(input service.RegisterInput) (*domain.User, error) {
			return nil, service.ErrUserExists
		},
	}
	router := newTestRouter(t, users, &fakeSessionService{}, &fakeVerifier{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("username", "alice"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/users/register", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCurrentUserViaBearer(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessionService{
		getByID: func(userID int64) (*domain.User, error) {
			require.Equal(t, int64(1), userID)
			return sanitizedAlice(), nil
		},
	}
	router := newTestRouter(t, &fakeUserService{}, sessions, &fakeVerifier{userID: 1})

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer at-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"username":"alice"`)
	require.NotContains(t, rec.Body.String(), "password")
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessionService{
		changePassword: func(userID int64, current, next string) error {
			require.Equal(t, int64(1), userID)
			require.Equal(t, "secret1", current)
			require.Equal(t, "secret2", next)
			return nil
		},
	}
	router := newTestRouter(t, &fakeUserService{}, sessions, &fakeVerifier{userID: 1})

	body := `{"oldPassword":"secret1","newPassword":"secret2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/users/change-password", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: "at-1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
