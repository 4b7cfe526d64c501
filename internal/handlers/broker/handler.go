// internal/handlers/broker/handler.go
package broker

import (
	"strconv"
	"strings"

	"licentra-service/internal/middleware"
	xerrors "licentra-service/internal/pkg/errors"
	"licentra-service/internal/pkg/response"
	brokersvc "licentra-service/internal/service/broker"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	brokers *brokersvc.BrokerService
}

func NewHandler(brokers *brokersvc.BrokerService) *Handler {
	return &Handler{brokers: brokers}
}

// Enroll handles POST /brokers/enroll for the caller, or
// POST /admin/brokers/:user_id/enroll for an admin.
func (h *Handler) Enroll(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if raw := c.Param("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.FromError(c, xerrors.ErrInvalidInput)
			return
		}
		userID = id
	}

	b, err := h.brokers.Enroll(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, "broker enrolled", b)
}

// Me handles GET /brokers/me.
func (h *Handler) Me(c *gin.Context) {
	b, err := h.brokers.GetByUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "broker retrieved", b)
}

// Validate handles GET /brokers/validate?code=XXXX.
func (h *Handler) Validate(c *gin.Context) {
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		response.FromError(c, xerrors.ErrInvalidInput)
		return
	}

	valid, err := h.brokers.ValidateCode(c.Request.Context(), code)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "broker code checked", gin.H{"code": strings.ToUpper(code), "valid": valid})
}

// Deactivate handles POST /admin/brokers/:user_id/deactivate.
func (h *Handler) Deactivate(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		response.FromError(c, xerrors.ErrInvalidInput)
		return
	}

	if err := h.brokers.Deactivate(c.Request.Context(), userID); err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "broker deactivated", nil)
}
