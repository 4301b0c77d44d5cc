package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yshioka/equipmatch/internal/domain/models"
	"github.com/yshioka/equipmatch/internal/service/applications"
)

// ApplicationHandler exposes the purchase/transfer/disposal workflows.
type ApplicationHandler struct {
	svc    *applications.Service
	logger *zap.Logger
}

// NewApplicationHandler constructs the HTTP handler adapter.
func NewApplicationHandler(svc *applications.Service, logger *zap.Logger) *ApplicationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationHandler{svc: svc, logger: logger}
}

// Create stores a new draft application.
func (h *ApplicationHandler) Create(c *gin.Context) {
	var req applications.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	app, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

// Submit moves a draft into review.
func (h *ApplicationHandler) Submit(c *gin.Context) {
	app, err := h.svc.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

type decisionRequest struct {
	DecidedBy string `json:"decidedBy" binding:"required"`
}

// Approve accepts a submitted application.
func (h *ApplicationHandler) Approve(c *gin.Context) {
	h.decide(c, h.svc.Approve)
}

// Reject declines a submitted application.
func (h *ApplicationHandler) Reject(c *gin.Context) {
	h.decide(c, h.svc.Reject)
}

func (h *ApplicationHandler) decide(c *gin.Context, op func(ctx context.Context, id, decidedBy string) (models.Application, error)) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	app, err := op(c.Request.Context(), c.Param("id"), req.DecidedBy)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// List returns applications, optionally narrowed to one status.
func (h *ApplicationHandler) List(c *gin.Context) {
	status := models.ApplicationStatus(c.Query("status"))
	apps, err := h.svc.List(c.Request.Context(), status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps, "count": len(apps)})
}

func (h *ApplicationHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, applications.ErrApplicationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, applications.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("application operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
