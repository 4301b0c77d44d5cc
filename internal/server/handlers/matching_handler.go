package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yshioka/equipmatch/internal/domain/models"
	"github.com/yshioka/equipmatch/internal/hub"
	"github.com/yshioka/equipmatch/internal/service/matching"
)

// MatchingHandler exposes the window session and match engine operations.
type MatchingHandler struct {
	svc    *matching.Service
	logger *zap.Logger
}

// NewMatchingHandler constructs the HTTP handler adapter.
func NewMatchingHandler(svc *matching.Service, logger *zap.Logger) *MatchingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchingHandler{svc: svc, logger: logger}
}

type openSessionRequest struct {
	Kind     hub.WindowKind `json:"kind" binding:"required"`
	OpenerID string         `json:"openerId"`
}

// OpenSession opens a window session. The main window opens standalone;
// ledger, ME-ledger and picker windows name their opener.
func (h *MatchingHandler) OpenSession(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var (
		view matching.SessionView
		err  error
	)
	if req.Kind == hub.WindowMain {
		view, err = h.svc.OpenMain(c.Request.Context())
	} else {
		if req.OpenerID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "openerId is required for child windows"})
			return
		}
		view, err = h.svc.OpenChild(c.Request.Context(), req.OpenerID, req.Kind)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// Session returns the current session snapshot.
func (h *MatchingHandler) Session(c *gin.Context) {
	view, err := h.svc.Session(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// CloseSession closes a window session.
func (h *MatchingHandler) CloseSession(c *gin.Context) {
	if err := h.svc.Close(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Heartbeat keeps a session alive for the liveness sweep.
func (h *MatchingHandler) Heartbeat(c *gin.Context) {
	if err := h.svc.Heartbeat(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateFilters merges a partial filter update and broadcasts the result.
func (h *MatchingHandler) UpdateFilters(c *gin.Context) {
	var patch models.FilterPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	filters, err := h.svc.ApplyFilters(c.Param("id"), patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"filters": filters})
}

type matchFilterRequest struct {
	MatchFilter models.MatchFilterField `json:"matchFilter" binding:"required"`
}

// UpdateMatchFilter switches the cross-reference field.
func (h *MatchingHandler) UpdateMatchFilter(c *gin.Context) {
	var req matchFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.svc.SetMatchFilter(c.Param("id"), req.MatchFilter); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type selectionRequest struct {
	SelectedIDs []string `json:"selectedIds"`
}

// UpdateSelection replaces the session's row selection.
func (h *MatchingHandler) UpdateSelection(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.svc.SetSelection(c.Param("id"), req.SelectedIDs); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Records renders the session's visible rows.
func (h *MatchingHandler) Records(c *gin.Context) {
	view := matching.View(c.DefaultQuery("view", string(matching.ViewUnmatched)))
	records, err := h.svc.Records(c.Param("id"), view)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

type confirmRequest struct {
	Status   models.MatchingStatus `json:"status"`
	Override bool                  `json:"override"`
}

// Confirm executes the confirm-match transition on the main window.
func (h *MatchingHandler) Confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := h.svc.ConfirmMatch(c.Request.Context(), c.Param("id"), req.Status, req.Override)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// MarkUnconfirmed flags the selected ledger rows 未確認.
func (h *MatchingHandler) MarkUnconfirmed(c *gin.Context) {
	items, err := h.svc.MarkUnconfirmed(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type revertRequest struct {
	LedgerIDs []string `json:"ledgerIds" binding:"required"`
}

// Revert asks the ledger window to restore records to unmatched.
func (h *MatchingHandler) Revert(c *gin.Context) {
	var req revertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.svc.RequestRevert(c.Request.Context(), c.Param("id"), req.LedgerIDs); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// Downstream lists the unconfirmed records handed up to this session.
func (h *MatchingHandler) Downstream(c *gin.Context) {
	items, err := h.svc.Downstream(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *MatchingHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, matching.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, matching.ErrNoSelection),
		errors.Is(err, matching.ErrUnknownStatus),
		errors.Is(err, matching.ErrUnknownField),
		errors.Is(err, matching.ErrUnknownView),
		errors.Is(err, matching.ErrWrongWindow):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, matching.ErrCountMismatch):
		// The screens surface this as a confirm() dialog; the API equivalent
		// is a conflict the client may retry with override set.
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "overridable": true})
	default:
		h.logger.Error("matching operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
