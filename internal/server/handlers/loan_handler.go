package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yshioka/equipmatch/internal/service/loans"
)

// LoanHandler exposes equipment lending and return.
type LoanHandler struct {
	svc    *loans.Service
	logger *zap.Logger
}

// NewLoanHandler constructs the HTTP handler adapter.
func NewLoanHandler(svc *loans.Service, logger *zap.Logger) *LoanHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoanHandler{svc: svc, logger: logger}
}

// Lend checks an asset out.
func (h *LoanHandler) Lend(c *gin.Context) {
	var req loans.LendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	loan, err := h.svc.Lend(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

type returnRequest struct {
	ReturnedBy string `json:"returnedBy" binding:"required"`
}

// Return checks an asset back in.
func (h *LoanHandler) Return(c *gin.Context) {
	var req returnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	loan, err := h.svc.Return(c.Request.Context(), c.Param("id"), req.ReturnedBy)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

// List returns loans; ?active=true narrows to the ones still out.
func (h *LoanHandler) List(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active", "false"))
	result, err := h.svc.List(c.Request.Context(), activeOnly)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loans": result, "count": len(result)})
}

func (h *LoanHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, loans.ErrLoanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, loans.ErrAssetOnLoan), errors.Is(err, loans.ErrAlreadyReturned):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("loan operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
