// internal/handlers/promotion/handler.go
package promotion

import (
	"licentra-service/internal/domain/promotion"
	xerrors "licentra-service/internal/pkg/errors"
	"licentra-service/internal/pkg/response"
	promosvc "licentra-service/internal/service/promotion"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	promotions *promosvc.PromotionService
}

func NewHandler(promotions *promosvc.PromotionService) *Handler {
	return &Handler{promotions: promotions}
}

// Create handles POST /admin/promotions.
func (h *Handler) Create(c *gin.Context) {
	var req promotion.CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, xerrors.Wrap(xerrors.ErrInvalidInput, err.Error()))
		return
	}

	p, err := h.promotions.Create(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, "promotion created", p)
}

// List handles GET /admin/promotions.
func (h *Handler) List(c *gin.Context) {
	activeOnly := c.Query("active_only") == "true"

	promotions, err := h.promotions.List(c.Request.Context(), activeOnly)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "promotions retrieved", promotions)
}

// Validate handles GET /promotions/validate?code=X&license_key=Y.
func (h *Handler) Validate(c *gin.Context) {
	var req promotion.ValidatePromotionRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.FromError(c, xerrors.Wrap(xerrors.ErrInvalidInput, err.Error()))
		return
	}

	p, err := h.promotions.ValidateCode(c.Request.Context(), req.Code, req.LicenseKey)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "promotion code valid", p)
}

// Deactivate handles POST /admin/promotions/:code/deactivate.
func (h *Handler) Deactivate(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		response.FromError(c, xerrors.ErrInvalidInput)
		return
	}

	if err := h.promotions.Deactivate(c.Request.Context(), code); err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "promotion deactivated", nil)
}
