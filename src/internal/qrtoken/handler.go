package qrtoken

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/clients"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/config"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	GenerateQRCode(c *gin.Context)
	GenerateBatchQRCodes(c *gin.Context)
	GetActiveQRCodes(c *gin.Context)
	ValidateQRCode(c *gin.Context)
	RevokeQRCode(c *gin.Context)
	GetQRCodeStats(c *gin.Context)
}

// StatsCache keeps the unwindowed statistics out of Mongo on repeated
// reads. The cache package provides the implementation.
type StatsCache interface {
	GetQRStats(ctx context.Context) (*Stats, error)
	SaveQRStats(ctx context.Context, stats *Stats) error
}

type handler struct {
	config       *config.Configuration
	service      Service
	cacheService StatsCache
	publisher    *clients.ActivityPublisher
}

func NewHandler(cfg *config.Configuration, service Service, cacheService StatsCache, publisher *clients.ActivityPublisher) Handler {
	return &handler{
		config:       cfg,
		service:      service,
		cacheService: cacheService,
		publisher:    publisher,
	}
}

func (h *handler) GenerateQRCode(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	memberID := c.Param("memberId")
	ttlHours, _ := strconv.Atoi(c.Query("ttlHours"))

	issued, err := h.service.Issue(ctx, memberID, ttlHours, c.GetString("user_id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.publisher.PublishActivityWithDetails(c.GetString("user_id"), memberID, "",
		models.ServiceQRTokenIssuer, models.ActionQRTokenIssued, nil)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "QR code generated successfully",
		"data":    gin.H{"qrCode": issued},
	})
}

func (h *handler) GenerateBatchQRCodes(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req BatchIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Member IDs array is required", err.Error())
		return
	}

	result, err := h.service.BatchIssue(ctx, &req, c.GetString("user_id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Generated " + strconv.Itoa(result.TotalGenerated) + " QR codes successfully",
		"data": gin.H{
			"qrCodes": result.QRCodes,
			"summary": gin.H{
				"totalRequested": result.TotalRequested,
				"totalGenerated": result.TotalGenerated,
				"expiresAt":      result.ExpiresAt,
			},
		},
	})
}

func (h *handler) GetActiveQRCodes(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	member, tokens, err := h.service.ActiveForMember(ctx, c.Param("memberId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"member": gin.H{
				"id":           member.ID.Hex(),
				"membershipId": member.MembershipID,
				"firstName":    member.FirstName,
				"lastName":     member.LastName,
			},
			"activeQRCodes": tokens,
		},
	})
}

func (h *handler) ValidateQRCode(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "QR code token is required", err.Error())
		return
	}

	token, member, err := h.service.Validate(ctx, req.Token)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "QR code is valid",
		"data": gin.H{
			"qrToken": gin.H{
				"id":        token.ID.Hex(),
				"token":     token.Token,
				"expiresAt": token.ExpiresAt,
			},
			"member": gin.H{
				"id":               member.ID.Hex(),
				"membershipId":     member.MembershipID,
				"firstName":        member.FirstName,
				"lastName":         member.LastName,
				"email":            member.Email,
				"phone":            member.Phone,
				"membershipStatus": member.MembershipStatus,
			},
		},
	})
}

func (h *handler) RevokeQRCode(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	tokenID := c.Param("tokenId")

	if err := h.service.Revoke(ctx, tokenID, c.GetString("user_id")); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.publisher.PublishActivity(c.GetString("user_id"), models.ServiceQRTokenIssuer, models.ActionQRTokenRevoked)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "QR code revoked successfully",
	})
}

func (h *handler) GetQRCodeStats(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	window := &StatsWindow{}
	if raw := c.Query("startDate"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			window.StartDate = &parsed
		}
	}
	if raw := c.Query("endDate"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			window.EndDate = &parsed
		}
	}

	// Only the unwindowed stats are worth caching
	if window.StartDate == nil && window.EndDate == nil {
		if cached, err := h.cacheService.GetQRStats(ctx); err == nil && cached != nil {
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"data":    gin.H{"statistics": cached},
			})
			return
		}
	}

	stats, err := h.service.Stats(ctx, window)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if window.StartDate == nil && window.EndDate == nil {
		h.cacheService.SaveQRStats(ctx, stats)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"statistics": stats,
			"period": gin.H{
				"startDate": window.StartDate,
				"endDate":   window.EndDate,
			},
		},
	})
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

func (h *handler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrMemberNotFound):
		h.sendErrorResponse(c, http.StatusNotFound, err.Error(), err.Error())
	case errors.Is(err, models.ErrQRTokenNotFound),
		errors.Is(err, models.ErrQRTokenExpired),
		errors.Is(err, models.ErrQRTokenUsed),
		errors.Is(err, models.ErrMemberInactive),
		errors.Is(err, models.ErrInvalidParams):
		h.sendErrorResponse(c, http.StatusBadRequest, err.Error(), err.Error())
	default:
		logrus.WithError(err).Error("QR code request failed")
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
