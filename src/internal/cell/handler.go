package cell

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
	CreateCell(c *gin.Context)
	GetCells(c *gin.Context)
	GetCellByID(c *gin.Context)
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

func (h *handler) CreateCell(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Cell name is required", err.Error())
		return
	}

	cell, err := h.service.Create(ctx, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Cell group created successfully",
		"data":    gin.H{"cell": cell},
	})
}

func (h *handler) GetCells(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	cells, err := h.service.List(ctx)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"cells": cells},
	})
}

func (h *handler) GetCellByID(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	cell, err := h.service.GetByID(ctx, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"cell": cell},
	})
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

func (h *handler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrCellNotFound):
		h.sendErrorResponse(c, http.StatusNotFound, err.Error(), err.Error())
	case errors.Is(err, models.ErrInvalidParams):
		h.sendErrorResponse(c, http.StatusBadRequest, err.Error(), err.Error())
	default:
		logrus.WithError(err).Error("Cell request failed")
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
