package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dvmarques/sessionauth/internal/common"
)

type signUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=user admin"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	s.logger.Info(c.Request.Context(), "Signup request", "email", req.Email)

	// The requested role is deliberately not honored: signup always
	// creates plain users. Admins are provisioned with the createadmin
	// tool.
	pair, err := s.auth.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	pair, err := s.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) logout(c *gin.Context) {
	userID := c.GetString(ctxUserID)

	if err := s.auth.Logout(c.Request.Context(), userID); err != nil {
		s.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (s *Server) refresh(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	refreshToken := c.GetString(ctxRefreshToken)

	pair, err := s.auth.Refresh(c.Request.Context(), userID, refreshToken)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) me(c *gin.Context) {
	role, _ := c.Get(ctxRole)

	c.JSON(http.StatusOK, gin.H{"user": gin.H{
		"id":    c.GetString(ctxUserID),
		"email": c.GetString(ctxEmail),
		"role":  role,
	}})
}

func (s *Server) adminMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "admin only"})
}

// writeServiceError translates core sentinels to the HTTP status table.
// Responses carry a short message, never internal detail.
func (s *Server) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrorConflict):
		c.JSON(http.StatusConflict, gin.H{"message": "email already registered"})
	case errors.Is(err, common.ErrorUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
	case errors.Is(err, common.ErrorForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": "access denied"})
	default:
		s.logger.Error(c.Request.Context(), err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}
