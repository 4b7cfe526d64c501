// internal/handlers/transaction/handler.go
package transaction

import (
	"strconv"

	"licentra-service/internal/domain/transaction"
	"licentra-service/internal/middleware"
	xerrors "licentra-service/internal/pkg/errors"
	"licentra-service/internal/pkg/response"
	"licentra-service/internal/service/settlement"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	settlement *settlement.SettlementService
}

func NewHandler(s *settlement.SettlementService) *Handler {
	return &Handler{settlement: s}
}

// Create handles POST /transactions.
func (h *Handler) Create(c *gin.Context) {
	var req transaction.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, xerrors.Wrap(xerrors.ErrInvalidInput, err.Error()))
		return
	}

	t, err := h.settlement.Create(c.Request.Context(), middleware.GetUserID(c), middleware.IsAdmin(c), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, "transaction created", t)
}

// Get handles GET /transactions/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.FromError(c, xerrors.ErrInvalidInput)
		return
	}

	t, err := h.settlement.Get(c.Request.Context(), middleware.GetUserID(c), middleware.IsAdmin(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "transaction retrieved", t)
}

// List handles GET /transactions.
func (h *Handler) List(c *gin.Context) {
	var filters transaction.TransactionListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.FromError(c, xerrors.Wrap(xerrors.ErrInvalidInput, err.Error()))
		return
	}

	list, err := h.settlement.List(c.Request.Context(), middleware.GetUserID(c), middleware.IsAdmin(c), &filters)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "transactions retrieved", list)
}

// Update handles PATCH /admin/transactions/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.FromError(c, xerrors.ErrInvalidInput)
		return
	}

	var req transaction.UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, xerrors.Wrap(xerrors.ErrInvalidInput, err.Error()))
		return
	}

	t, err := h.settlement.UpdatePending(c.Request.Context(), id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "transaction updated", t)
}

// Confirm handles POST /admin/transactions/:id/confirm.
func (h *Handler) Confirm(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.FromError(c, xerrors.ErrInvalidInput)
		return
	}

	var req transaction.ConfirmTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, xerrors.Wrap(xerrors.ErrInvalidInput, err.Error()))
		return
	}

	t, err := h.settlement.Confirm(c.Request.Context(), id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "transaction confirmed", t)
}

// Cancel handles POST /admin/transactions/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.FromError(c, xerrors.ErrInvalidInput)
		return
	}

	t, err := h.settlement.Cancel(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "transaction canceled", t)
}

// Stats handles GET /admin/transactions/stats.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.settlement.Stats(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "transaction stats retrieved", stats)
}
