package dashboard

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

// SummaryCache keeps the expensive summary aggregation out of Mongo on
// repeated reads. The cache package provides the implementation.
type SummaryCache interface {
	GetDashboardSummary(ctx context.Context) (*Summary, error)
	SaveDashboardSummary(ctx context.Context, summary *Summary) error
}

type Handler interface {
	GetSummary(c *gin.Context)
	GetAnalytics(c *gin.Context)
	GetMemberDashboard(c *gin.Context)
}

type handler struct {
	config       *config.Configuration
	service      Service
	cacheService SummaryCache
}

func NewHandler(cfg *config.Configuration, service Service, cacheService SummaryCache) Handler {
	return &handler{
		config:       cfg,
		service:      service,
		cacheService: cacheService,
	}
}

func (h *handler) GetSummary(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if cached, err := h.cacheService.GetDashboardSummary(ctx); err == nil && cached != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    gin.H{"summary": cached, "cached": true},
		})
		return
	}

	summary, err := h.service.Summary(ctx)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.cacheService.SaveDashboardSummary(ctx, summary)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"summary": summary, "cached": false},
	})
}

func (h *handler) GetAnalytics(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req AnalyticsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return
	}

	analytics, err := h.service.Analytics(ctx, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"analytics": analytics},
	})
}

func (h *handler) GetMemberDashboard(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	view, err := h.service.MemberDashboard(ctx, c.Param("memberId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
	})
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

func (h *handler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrMemberNotFound):
		h.sendErrorResponse(c, http.StatusNotFound, err.Error(), err.Error())
	case errors.Is(err, models.ErrInvalidParams):
		h.sendErrorResponse(c, http.StatusBadRequest, err.Error(), err.Error())
	default:
		logrus.WithError(err).Error("Dashboard request failed")
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
