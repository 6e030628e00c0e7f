package http

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"clipstream/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	sessions service.SessionService
	verifier AccessVerifier
	cookies  CookieConfig
	tempDir  string
	logger   *logrus.Logger
}

// CookieConfig controls the transport cookies set on login and refresh.
type CookieConfig struct {
	Secure     bool
	Domain     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func NewHandler(users service.UserService, sessions service.SessionService, verifier AccessVerifier, cookies CookieConfig, tempDir string, logger *logrus.Logger) *Handler {
	return &Handler{
		users:    users,
		sessions: sessions,
		verifier: verifier,
		cookies:  cookies,
		tempDir:  tempDir,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		users := api.Group("/users")
		{
			users.POST("/register", h.register)
			users.POST("/login", h.login)
			users.POST("/refresh", h.refresh)

			authed := users.Group("")
			authed.Use(h.requireAuth())
			{
				authed.POST("/logout", h.logout)
				authed.POST("/change-password", h.changePassword)
				authed.GET("/me", h.currentUser)
			}
		}
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

func (h *Handler) register(c *gin.Context) {
	input := service.RegisterInput{
		FullName: c.PostForm("fullName"),
		Username: c.PostForm("username"),
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
	}

	avatarPath, err := h.stageUpload(c, "avatar")
	if err != nil {
		respondError(c, err)
		return
	}
	defer h.removeStaged(avatarPath)

	coverPath, err := h.stageUpload(c, "coverImage")
	if err != nil {
		respondError(c, err)
		return
	}
	defer h.removeStaged(coverPath)

	input.AvatarPath = avatarPath
	input.CoverPath = coverPath

	user, err := h.users.Register(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, gin.H{"user": userToResponse(user)}, "user registered")
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrInvalidInput)
		return
	}

	pair, user, err := h.sessions.Login(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookies(c, pair)
	respond(c, http.StatusOK, gin.H{
		"user":         userToResponse(user),
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	}, "logged in")
}

func (h *Handler) logout(c *gin.Context) {
	userID := authenticatedUserID(c)
	if err := h.sessions.Logout(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	h.clearSessionCookies(c)
	respond(c, http.StatusOK, gin.H{}, "logged out")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) refresh(c *gin.Context) {
	incoming, err := c.Cookie(refreshTokenCookie)
	if err != nil || incoming == "" {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			incoming = req.RefreshToken
		}
	}

	pair, err := h.sessions.Refresh(c.Request.Context(), incoming)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookies(c, pair)
	respond(c, http.StatusOK, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	}, "session refreshed")
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrInvalidInput)
		return
	}

	userID := authenticatedUserID(c)
	if err := h.sessions.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{}, "password changed")
}

func (h *Handler) currentUser(c *gin.Context) {
	user, err := h.sessions.GetByID(c.Request.Context(), authenticatedUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"user": userToResponse(user)}, "ok")
}

// stageUpload saves a multipart file into the temp dir and returns its path.
// A missing optional file yields an empty path; the required avatar check
// happens in the service layer.
func (h *Handler) stageUpload(c *gin.Context, field string) (string, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return "", nil
	}

	path := filepath.Join(h.tempDir, uuid.NewString()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, path); err != nil {
		return "", err
	}
	return path, nil
}

func (h *Handler) removeStaged(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			h.logger.Warnf("remove staged upload %s: %v", path, err)
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
