package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fieldserve/authgate/credstore"
	"github.com/fieldserve/authgate/services"
)

// cookieMaxAge matches the refresh token's nominal lifetime; the cookie
// only carries an opaque session id, never a credential.
const cookieMaxAge = 30 * 24 * 60 * 60

type AuthHandler struct {
	Auth      *services.AuthService
	Refresher *services.Refresher
	Sessions  *credstore.Sessions
}

func NewAuthHandler(auth *services.AuthService, refresher *services.Refresher, sessions *credstore.Sessions) *AuthHandler {
	return &AuthHandler{Auth: auth, Refresher: refresher, Sessions: sessions}
}

type loginForm struct {
	CompanyName string `json:"company_name" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

// Login submits credentials upstream once and starts a session. The
// upstream error message is surfaced verbatim on failure.
func (h *AuthHandler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "Error", "message": err.Error()})
		return
	}

	id, err := c.Cookie(SessionCookie)
	if err != nil || id == "" {
		id = uuid.New().String()
	}
	creds := h.Sessions.Bind(id)

	sess, err := h.Auth.Login(c.Request.Context(), creds, form.CompanyName, form.Email, form.Password)
	if err != nil {
		var envErr *services.EnvelopeError
		if errors.As(err, &envErr) {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "Error", "message": envErr.Message})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"status": "Error", "message": err.Error()})
		return
	}

	c.SetCookie(SessionCookie, id, cookieMaxAge, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"status": "Success", "data": sess})
}

// Logout clears the credential record and expires the session cookie.
// Safe to call on an already-dead session.
func (h *AuthHandler) Logout(c *gin.Context) {
	if id, err := c.Cookie(SessionCookie); err == nil && id != "" {
		creds := h.Sessions.Bind(id)
		if err := h.Auth.Logout(c.Request.Context(), creds); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "Error", "message": err.Error()})
			return
		}
	}
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"status": "Success"})
}

// Refresh exchanges the refresh token for a new access token. The token
// itself stays server-side; the browser only learns whether its session
// survived.
func (h *AuthHandler) Refresh(c *gin.Context) {
	id, err := c.Cookie(SessionCookie)
	if err != nil || id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "Error", "message": "no session"})
		return
	}
	creds := h.Sessions.Bind(id)

	if _, err := h.Refresher.Refresh(c.Request.Context(), creds); err != nil {
		switch {
		case errors.Is(err, services.ErrNoRefreshToken),
			errors.Is(err, services.ErrRefreshRejected),
			errors.Is(err, services.ErrSessionEnded):
			c.JSON(http.StatusUnauthorized, gin.H{"status": "Error", "message": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"status": "Error", "message": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Success"})
}

// Me reports the current session's identity fields.
func (h *AuthHandler) Me(c *gin.Context) {
	id := c.GetString(ContextSessionID)
	creds := h.Sessions.Bind(id)
	ctx := c.Request.Context()

	role, _ := creds.Role(ctx)
	userID, _ := creds.UserID(ctx)
	companyID, _ := creds.CompanyID(ctx)
	name, _ := creds.DisplayName(ctx)
	perms, _ := creds.Permissions(ctx)

	c.JSON(http.StatusOK, gin.H{"status": "Success", "data": gin.H{
		"role":         role,
		"user_id":      userID,
		"company_id":   companyID,
		"display_name": name,
		"permissions":  perms,
	}})
}
