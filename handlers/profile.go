package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/authgate/credstore"
)

type ProfileHandler struct {
	Sessions *credstore.Sessions
}

func NewProfileHandler(sessions *credstore.Sessions) *ProfileHandler {
	return &ProfileHandler{Sessions: sessions}
}

type updateNameForm struct {
	Name string `json:"name" binding:"required"`
}

// UpdateName changes the display name, the only credential field a
// profile edit may touch.
func (h *ProfileHandler) UpdateName(c *gin.Context) {
	var form updateNameForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "Error", "message": err.Error()})
		return
	}
	creds := h.Sessions.Bind(c.GetString(ContextSessionID))
	if err := creds.SetDisplayName(c.Request.Context(), form.Name); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "Error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Success", "data": gin.H{"name": form.Name}})
}
