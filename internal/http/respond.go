package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clipstream/internal/auth"
	"clipstream/internal/domain"
	"clipstream/internal/service"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// envelope is the uniform response shape for success and failure alike.
type envelope struct {
	Status  int    `json:"status"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, envelope{Status: status, Data: data, Message: message})
}

// respondError is the single boundary mapping domain errors onto HTTP
// statuses. Refresh-flow failures all read "invalid refresh token" so the
// body never reveals which check rejected the token.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		respond(c, http.StatusBadRequest, gin.H{}, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		respond(c, http.StatusUnauthorized, gin.H{}, "invalid credentials")
	case errors.Is(err, service.ErrUnauthenticated):
		respond(c, http.StatusUnauthorized, gin.H{}, "unauthenticated")
	case errors.Is(err, service.ErrTokenReused),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		respond(c, http.StatusUnauthorized, gin.H{}, "invalid refresh token")
	case errors.Is(err, service.ErrNotFound):
		respond(c, http.StatusNotFound, gin.H{}, "user not found")
	case errors.Is(err, service.ErrUserExists):
		respond(c, http.StatusConflict, gin.H{}, "user with this email or username already exists")
	default:
		respond(c, http.StatusInternalServerError, gin.H{}, "internal server error")
	}
}

func (h *Handler) setSessionCookies(c *gin.Context, pair *service.TokenPair) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessTokenCookie, pair.AccessToken, int(h.cookies.AccessTTL.Seconds()), "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(refreshTokenCookie, pair.RefreshToken, int(h.cookies.RefreshTTL.Seconds()), "/", h.cookies.Domain, h.cookies.Secure, true)
}

func (h *Handler) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessTokenCookie, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(refreshTokenCookie, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
}

type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
	CoverURL  string `json:"cover_url,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		AvatarURL: user.AvatarURL,
		CoverURL:  user.CoverURL,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}
