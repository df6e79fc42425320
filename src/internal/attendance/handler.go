package attendance

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/clients"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/config"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	ScanQRCode(c *gin.Context)
	RecordManualAttendance(c *gin.Context)
	GetAttendance(c *gin.Context)
	GetSessionAttendance(c *gin.Context)
	UpdateAttendance(c *gin.Context)
	DeleteAttendance(c *gin.Context)
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

func (h *handler) ScanQRCode(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Token and session ID are required", err.Error())
		return
	}

	detail, err := h.service.Scan(ctx, &req, c.GetString("user_id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.publisher.PublishActivityWithDetails(c.GetString("user_id"), detail.Record.MemberID.Hex(),
		detail.Record.SessionID.Hex(), models.ServiceAttendanceScan, models.ActionAttendanceRecorded, nil)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Attendance recorded successfully",
		"data":    gin.H{"attendance": detail},
	})
}

func (h *handler) RecordManualAttendance(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req ManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Member ID and session ID are required", err.Error())
		return
	}

	detail, err := h.service.RecordManual(ctx, &req, c.GetString("user_id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.publisher.PublishActivityWithDetails(c.GetString("user_id"), detail.Record.MemberID.Hex(),
		detail.Record.SessionID.Hex(), models.ServiceAttendanceEntry, models.ActionAttendanceManual, nil)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Attendance recorded successfully",
		"data":    gin.H{"attendance": detail},
	})
}

func (h *handler) GetAttendance(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var filter ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return
	}

	response, err := h.service.List(ctx, &filter)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    response,
	})
}

func (h *handler) GetSessionAttendance(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	sess, details, stats, err := h.service.SessionAttendance(ctx, c.Param("sessionId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"session":    sess,
			"attendance": details,
			"statistics": stats,
		},
	})
}

func (h *handler) UpdateAttendance(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	record, err := h.service.Update(ctx, c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Attendance updated successfully",
		"data":    gin.H{"attendance": record},
	})
}

func (h *handler) DeleteAttendance(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.service.Delete(ctx, c.Param("id")); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Attendance record deleted successfully",
	})
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

func (h *handler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrSessionNotFound),
		errors.Is(err, models.ErrMemberNotFound),
		errors.Is(err, models.ErrAttendanceNotFound):
		h.sendErrorResponse(c, http.StatusNotFound, err.Error(), err.Error())
	case errors.Is(err, models.ErrAttendanceDuplicate):
		h.sendErrorResponse(c, http.StatusConflict, err.Error(), "Attendance already recorded for this session")
	case errors.Is(err, models.ErrQRTokenNotFound),
		errors.Is(err, models.ErrQRTokenExpired),
		errors.Is(err, models.ErrQRTokenUsed),
		errors.Is(err, models.ErrMemberInactive),
		errors.Is(err, models.ErrSessionInactive),
		errors.Is(err, models.ErrSessionClosed),
		errors.Is(err, models.ErrInvalidParams):
		h.sendErrorResponse(c, http.StatusBadRequest, err.Error(), err.Error())
	default:
		logrus.WithError(err).Error("Attendance request failed")
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
