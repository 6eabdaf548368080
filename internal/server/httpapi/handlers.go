// Package httpapi exposes the identity provider over a JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/elegance/identity-provider/internal/logging"
	"github.com/elegance/identity-provider/internal/server/models"
	"github.com/elegance/identity-provider/internal/server/session"
	"github.com/elegance/identity-provider/internal/shared"
)

// IdentityService is the slice of the application the HTTP layer needs.
type IdentityService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, sess *session.Session, user *models.User) error
	Logout(ctx context.Context, sess *session.Session) error
	CurrentUser(ctx context.Context, sess *session.Session) (*models.User, error)
}

type Handler struct {
	identity IdentityService
	log      logging.Logger
}

func NewHandler(identity IdentityService, log logging.Logger) *Handler {
	return &Handler{identity: identity, log: log}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userView is the public projection of a user. The password hash never
// leaves the server.
type userView struct {
	UUID      string `json:"uuid"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func viewOf(u *models.User) userView {
	return userView{
		UUID:      u.UUID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	user, err := h.identity.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewOf(user))
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.identity.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		h.renderError(c, err)
		return
	}
	if err := h.identity.Login(ctx, currentSession(c), user); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(user))
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.identity.Logout(c.Request.Context(), currentSession(c)); err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.identity.CurrentUser(c.Request.Context(), currentSession(c))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(user))
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// renderError maps application errors onto HTTP statuses. Validation
// problems come back field by field; credential failures stay uniform.
func (h *Handler) renderError(c *gin.Context, err error) {
	var verr shared.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": verr})
	case errors.Is(err, shared.ErrEmailAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
	case errors.Is(err, shared.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	default:
		h.log.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
