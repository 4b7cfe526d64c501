// internal/handlers/subscription/handler.go
package subscription

import (
	"strconv"

	"licentra-service/internal/domain/subscription"
	"licentra-service/internal/middleware"
	xerrors "licentra-service/internal/pkg/errors"
	"licentra-service/internal/pkg/response"
	subsvc "licentra-service/internal/service/subscription"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	lifecycle *subsvc.LifecycleService
}

func NewHandler(lifecycle *subsvc.LifecycleService) *Handler {
	return &Handler{lifecycle: lifecycle}
}

// Get handles GET /subscriptions/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.FromError(c, xerrors.ErrInvalidInput)
		return
	}

	sub, err := h.lifecycle.Get(c.Request.Context(), middleware.GetUserID(c), id, middleware.IsAdmin(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "subscription retrieved", sub)
}

// List handles GET /subscriptions. Non-admins only see their own.
func (h *Handler) List(c *gin.Context) {
	var filters subscription.SubscriptionListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.FromError(c, xerrors.Wrap(xerrors.ErrInvalidInput, err.Error()))
		return
	}
	if !middleware.IsAdmin(c) {
		filters.UserID = middleware.GetUserID(c)
	}

	list, err := h.lifecycle.List(c.Request.Context(), &filters)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "subscriptions retrieved", list)
}

// Current handles GET /subscriptions/current: the caller's effective
// entitlement, restoring the fallback if needed.
func (h *Handler) Current(c *gin.Context) {
	sub, err := h.lifecycle.AssignFreeIfNeeded(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "current subscription retrieved", sub)
}

// Activate handles POST /admin/users/:user_id/subscriptions/activate.
func (h *Handler) Activate(c *gin.Context) {
	var req subscription.ActivateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, xerrors.Wrap(xerrors.ErrInvalidInput, err.Error()))
		return
	}

	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		response.FromError(c, xerrors.ErrInvalidInput)
		return
	}

	sub, err := h.lifecycle.Activate(c.Request.Context(), userID, req.SubscriptionID, req.ExpiryOverride)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "subscription activated", sub)
}

// Deactivate handles POST /admin/subscriptions/:id/deactivate.
func (h *Handler) Deactivate(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.FromError(c, xerrors.ErrInvalidInput)
		return
	}

	sub, err := h.lifecycle.Deactivate(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "subscription deactivated", sub)
}

// Delete handles DELETE /admin/subscriptions/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.FromError(c, xerrors.ErrInvalidInput)
		return
	}

	if err := h.lifecycle.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "subscription deleted", nil)
}

// Sweep handles POST /admin/subscriptions/sweep: an on-demand expiry sweep.
func (h *Handler) Sweep(c *gin.Context) {
	swept, err := h.lifecycle.SweepExpired(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "expired subscriptions swept", gin.H{"swept": swept})
}
