package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yshioka/equipmatch/internal/domain/models"
	"github.com/yshioka/equipmatch/internal/service/assets"
	"github.com/yshioka/equipmatch/internal/service/matching"
)

// AssetHandler exposes asset search, column bookmarks and the picker flow.
type AssetHandler struct {
	svc         *assets.Service
	matchingSvc *matching.Service
	logger      *zap.Logger
}

// NewAssetHandler constructs the HTTP handler adapter.
func NewAssetHandler(svc *assets.Service, matchingSvc *matching.Service, logger *zap.Logger) *AssetHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetHandler{svc: svc, matchingSvc: matchingSvc, logger: logger}
}

// Search lists asset-master rows passing the query predicates.
func (h *AssetHandler) Search(c *gin.Context) {
	var q assets.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	result, err := h.svc.Search(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("asset search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"assets": result, "count": len(result)})
}

type bookmarkRequest struct {
	Name           string   `json:"name" binding:"required"`
	VisibleColumns []string `json:"visibleColumns" binding:"required"`
}

// SaveBookmark stores a column-visibility preset.
func (h *AssetHandler) SaveBookmark(c *gin.Context) {
	var req bookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	bookmark, err := h.svc.SaveBookmark(c.Request.Context(), req.Name, req.VisibleColumns)
	if err != nil {
		h.logger.Error("failed saving bookmark", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, bookmark)
}

// Bookmarks lists the saved presets.
func (h *AssetHandler) Bookmarks(c *gin.Context) {
	bookmarks, err := h.svc.Bookmarks(c.Request.Context())
	if err != nil {
		h.logger.Error("failed listing bookmarks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": bookmarks})
}

// DeleteBookmark removes a preset.
func (h *AssetHandler) DeleteBookmark(c *gin.Context) {
	if err := h.svc.DeleteBookmark(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, assets.ErrBookmarkNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed deleting bookmark", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusNoContent)
}

type assetSelectionRequest struct {
	SessionID string                  `json:"sessionId" binding:"required"`
	Assets    []models.Asset          `json:"assets" binding:"required"`
	Scope     models.AssetSelectScope `json:"scope"`
}

// Select posts picked assets from a picker window back to its opener.
func (h *AssetHandler) Select(c *gin.Context) {
	var req assetSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.matchingSvc.PostAssetSelection(req.SessionID, req.Assets, req.Scope); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}
