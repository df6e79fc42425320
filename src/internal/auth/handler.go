package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/clients"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/config"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	Login(c *gin.Context)
	Register(c *gin.Context)
	RefreshToken(c *gin.Context)
	GetProfile(c *gin.Context)
	UpdateProfile(c *gin.Context)
	ChangePassword(c *gin.Context)
}

type handler struct {
	config    *config.Configuration
	service   Service
	publisher *clients.ActivityPublisher
}

func NewHandler(cfg *config.Configuration, service Service, publisher *clients.ActivityPublisher) Handler {
	return &handler{
		config:    cfg,
		service:   service,
		publisher: publisher,
	}
}

func (h *handler) Login(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Email and password are required", err.Error())
		return
	}

	response, err := h.service.Login(ctx, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.publisher.PublishActivity(response.User.ID.Hex(), models.ServiceAuthLogin, models.ActionLogin)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"data":    response,
	})
}

func (h *handler) Register(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid registration data", err.Error())
		return
	}

	user, err := h.service.Register(ctx, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully",
		"data":    gin.H{"user": user},
	})
}

func (h *handler) RefreshToken(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		h.sendErrorResponse(c, http.StatusUnauthorized, "Authorization token is required", "missing bearer token")
		return
	}

	token, err := h.service.Refresh(ctx, strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"token": token},
	})
}

func (h *handler) GetProfile(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	user, err := h.service.Profile(ctx, c.GetString("user_id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"user": user},
	})
}

func (h *handler) UpdateProfile(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	user, err := h.service.UpdateProfile(ctx, c.GetString("user_id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Profile updated successfully",
		"data":    gin.H{"user": user},
	})
}

func (h *handler) ChangePassword(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Current and new passwords are required", err.Error())
		return
	}

	if err := h.service.ChangePassword(ctx, c.GetString("user_id"), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Password changed successfully",
	})
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

func (h *handler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidCredentials), errors.Is(err, models.ErrInvalidToken):
		h.sendErrorResponse(c, http.StatusUnauthorized, err.Error(), err.Error())
	case errors.Is(err, models.ErrAccountLocked):
		h.sendErrorResponse(c, http.StatusLocked, err.Error(), err.Error())
	case errors.Is(err, models.ErrAccountInactive):
		h.sendErrorResponse(c, http.StatusForbidden, err.Error(), err.Error())
	case errors.Is(err, models.ErrEmailTaken):
		h.sendErrorResponse(c, http.StatusConflict, err.Error(), err.Error())
	case errors.Is(err, models.ErrUserNotFound):
		h.sendErrorResponse(c, http.StatusNotFound, err.Error(), err.Error())
	case errors.Is(err, models.ErrInvalidParams):
		h.sendErrorResponse(c, http.StatusBadRequest, err.Error(), err.Error())
	default:
		logrus.WithError(err).Error("Auth request failed")
		h.sendErrorResponse(c, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}

func (h *handler) sendErrorResponse(c *gin.Context, statusCode int, error, message string) {
	c.JSON(statusCode, gin.H{
		"error":   error,
		"success": false,
		"message": message,
	})
}
