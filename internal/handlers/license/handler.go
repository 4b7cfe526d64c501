// internal/handlers/license/handler.go
package license

import (
	"strconv"
	"strings"

	"licentra-service/internal/domain/license"
	xerrors "licentra-service/internal/pkg/errors"
	"licentra-service/internal/pkg/response"
	licensesvc "licentra-service/internal/service/license"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	licenses *licensesvc.LicenseService
}

func NewHandler(licenses *licensesvc.LicenseService) *Handler {
	return &Handler{licenses: licenses}
}

// List handles GET /licenses.
func (h *Handler) List(c *gin.Context) {
	activeOnly := c.Query("active_only") == "true"

	licenses, err := h.licenses.List(c.Request.Context(), activeOnly)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "licenses retrieved", licenses)
}

// GetByKey handles GET /licenses/:key.
func (h *Handler) GetByKey(c *gin.Context) {
	key := strings.ToUpper(c.Param("key"))

	l, err := h.licenses.GetByKey(c.Request.Context(), key)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "license retrieved", l)
}

// Create handles POST /admin/licenses.
func (h *Handler) Create(c *gin.Context) {
	var req license.CreateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, xerrors.Wrap(xerrors.ErrInvalidInput, err.Error()))
		return
	}

	l, err := h.licenses.Create(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, "license created", l)
}

// Update handles PATCH /admin/licenses/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.FromError(c, xerrors.ErrInvalidInput)
		return
	}

	var req license.UpdateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, xerrors.Wrap(xerrors.ErrInvalidInput, err.Error()))
		return
	}

	l, err := h.licenses.Update(c.Request.Context(), id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "license updated", l)
}

// Deactivate handles POST /admin/licenses/:id/deactivate.
func (h *Handler) Deactivate(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.FromError(c, xerrors.ErrInvalidInput)
		return
	}

	if err := h.licenses.Deactivate(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "license deactivated", nil)
}

// Activate handles POST /admin/licenses/:id/activate.
func (h *Handler) Activate(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.FromError(c, xerrors.ErrInvalidInput)
		return
	}

	if err := h.licenses.Activate(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "license activated", nil)
}
