package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/baseplate/console/internal/api/middleware"
	"github.com/baseplate/console/internal/core/auth"
)

type AuthHandler struct {
	authService *auth.Service
}

func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "email and password are required")
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, err.Error())
			return
		}
		log.Printf("handlers: login failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Something went wrong")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me echoes the identity carried by the bearer token.
func (h *AuthHandler) Me(c *gin.Context) {
	adminID, ok := middleware.GetAdminID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	respondData(c, http.StatusOK, gin.H{
		"_id":          adminID.String(),
		"email":        middleware.GetEmail(c),
		"isSuperAdmin": middleware.IsSuperAdmin(c),
	})
}
