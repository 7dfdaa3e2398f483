package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"classroll/internal/auth"
	"classroll/internal/school"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	usr, err := h.school.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, school.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		writeError(c, err)
		return
	}

	tok, err := auth.Issue(usr.Identity(), h.tokens.Issuer, h.tokens.SigningKey, h.tokens.TTL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":     tok.AccessToken,
		"expiresAt": tok.ExpiresAt.Unix(),
		"user":      usr,
	})
}

// Me returns the caller's user record.
func (h *Handler) Me(c *gin.Context) {
	id, _ := auth.FromContext(c)
	usr, err := h.school.GetUser(c.Request.Context(), id.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": usr})
}
