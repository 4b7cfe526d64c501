// internal/pkg/response/response.go
package response

import (
	"net/http"

	xerrors "licentra-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Response is the uniform API envelope.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func JSON(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{
		Success: status >= 200 && status < 300,
		Message: message,
		Data:    data,
	})
}

func Created(c *gin.Context, message string, data interface{}) {
	JSON(c, http.StatusCreated, message, data)
}

func OK(c *gin.Context, message string, data interface{}) {
	JSON(c, http.StatusOK, message, data)
}

func Error(c *gin.Context, status int, err error) {
	c.JSON(status, Response{
		Success: false,
		Error:   err.Error(),
	})
}

// FromError maps service errors to HTTP status codes.
func FromError(c *gin.Context, err error) {
	switch {
	case xerrors.IsConsistency(err):
		Error(c, http.StatusInternalServerError, err)
	case xerrors.Is(err, xerrors.ErrNotFound):
		Error(c, http.StatusNotFound, err)
	case xerrors.Is(err, xerrors.ErrUnauthorized):
		Error(c, http.StatusUnauthorized, err)
	case xerrors.Is(err, xerrors.ErrForbidden):
		Error(c, http.StatusForbidden, err)
	case xerrors.Is(err, xerrors.ErrNotPending), xerrors.Is(err, xerrors.ErrConflict):
		Error(c, http.StatusConflict, err)
	case xerrors.IsValidation(err), xerrors.Is(err, xerrors.ErrInvalidInput):
		Error(c, http.StatusBadRequest, err)
	default:
		Error(c, http.StatusInternalServerError, err)
	}
}
