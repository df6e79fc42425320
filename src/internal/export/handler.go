package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/config"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	ExportAttendance(c *gin.Context)
	ExportMembers(c *gin.Context)
	ExportSessions(c *gin.Context)
	ExportReport(c *gin.Context)
}

type handler struct {
	config  *config.Configuration
	service Service
}

func NewHandler(cfg *config.Configuration, service Service) Handler {
	return &handler{
		config:  cfg,
		service: service,
	}
}

func (h *handler) ExportAttendance(c *gin.Context) {
	h.export(c, h.service.ExportAttendance)
}

func (h *handler) ExportMembers(c *gin.Context) {
	h.export(c, h.service.ExportMembers)
}

func (h *handler) ExportSessions(c *gin.Context) {
	h.export(c, h.service.ExportSessions)
}

func (h *handler) ExportReport(c *gin.Context) {
	h.export(c, h.service.ExportReport)
}

func (h *handler) export(c *gin.Context, run func(context.Context, *Request) (*File, error)) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req Request
	if err := c.ShouldBindQuery(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return
	}

	file, err := run(ctx, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

func (h *handler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidParams):
		h.sendErrorResponse(c, http.StatusBadRequest, "unsupported export format", err.Error())
	default:
		logrus.WithError(err).Error("Export request failed")
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
