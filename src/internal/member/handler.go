package member

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/config"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	CreateMember(c *gin.Context)
	GetMembers(c *gin.Context)
	GetMemberByID(c *gin.Context)
	UpdateMember(c *gin.Context)
	DeleteMember(c *gin.Context)
}

type handler struct {
	config           *config.Configuration
	service          Service
	attendanceSource AttendanceSource
}

func NewHandler(cfg *config.Configuration, service Service, attendanceSource AttendanceSource) Handler {
	return &handler{
		config:           cfg,
		service:          service,
		attendanceSource: attendanceSource,
	}
}

func (h *handler) CreateMember(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	userID := c.GetString("user_id")

	member, err := h.service.Create(ctx, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Member created successfully",
		"data":    gin.H{"member": member},
	})
}

func (h *handler) GetMembers(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var filter ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return
	}

	logrus.WithFields(logrus.Fields{
		"page":   filter.Page,
		"limit":  filter.Limit,
		"status": filter.Status,
		"search": filter.Search,
	}).Info("GetMembers request received")

	response, err := h.service.List(ctx, &filter)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"members": response.Members,
			"pagination": gin.H{
				"currentPage":     response.Page,
				"totalPages":      response.TotalPages,
				"totalMembers":    response.TotalMembers,
				"hasNextPage":     response.Page < response.TotalPages,
				"hasPreviousPage": response.Page > 1,
			},
		},
	})
}

func (h *handler) GetMemberByID(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	member, err := h.service.GetByID(ctx, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	recent, err := h.attendanceSource.RecentForMember(ctx, member.ID, 10)
	if err != nil {
		logrus.WithError(err).WithField("member_id", member.ID.Hex()).Warn("Failed to load recent attendance")
		recent = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"member":           member,
			"recentAttendance": recent,
		},
	})
}

func (h *handler) UpdateMember(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	member, err := h.service.Update(ctx, c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Member updated successfully",
		"data":    gin.H{"member": member},
	})
}

func (h *handler) DeleteMember(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.service.Deactivate(ctx, c.Param("id")); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Member deactivated successfully",
	})
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

func (h *handler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrMemberNotFound), errors.Is(err, models.ErrCellNotFound):
		h.sendErrorResponse(c, http.StatusNotFound, err.Error(), err.Error())
	case errors.Is(err, models.ErrEmailTaken):
		h.sendErrorResponse(c, http.StatusConflict, err.Error(), err.Error())
	case errors.Is(err, models.ErrInvalidParams):
		h.sendErrorResponse(c, http.StatusBadRequest, err.Error(), err.Error())
	default:
		logrus.WithError(err).Error("Member request failed")
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
