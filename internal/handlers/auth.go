package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"team-chat-service/internal/auth"
	"team-chat-service/internal/models"
	"team-chat-service/internal/repositories"
	"team-chat-service/internal/telemetry"
)

// AuthHandler manages registration, login and the current-user endpoint.
type AuthHandler struct {
	userRepo repositories.UserRepository
	tokens   *auth.TokenManager
	audit    *telemetry.AuditEmitter
}

func NewAuthHandler(userRepo repositories.UserRepository, tokens *auth.TokenManager, audit *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{userRepo: userRepo, tokens: tokens, audit: audit}
}

// Register creates an account and returns a signed token.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,min=3,max=32"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hash password"})
		return
	}

	user, err := h.userRepo.CreateUser(c.Request.Context(), req.Username, req.Email, hash)
	if err != nil {
		if errors.Is(err, repositories.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "username or email already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	userID := int64(user.ID)
	h.audit.Emit(c.Request.Context(), "INFO", "user registered", requestIDFromContext(c), &userID)

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": publicUser(user)})
}

// Login verifies credentials and returns a signed token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userRepo.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load user"})
		return
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	userID := int64(user.ID)
	h.audit.Emit(c.Request.Context(), "INFO", "user logged in", requestIDFromContext(c), &userID)

	c.JSON(http.StatusOK, gin.H{"token": token, "user": publicUser(user)})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetInt("userID")

	user, err := h.userRepo.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": publicUser(user)})
}

// SearchUsers finds users by username fragment, excluding the caller.
func (h *AuthHandler) SearchUsers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query"})
		return
	}

	users, err := h.userRepo.SearchUsers(c.Request.Context(), query, c.GetInt("userID"), 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

func publicUser(u models.User) models.PublicUser {
	return models.PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		IsOnline: u.IsOnline,
	}
}
