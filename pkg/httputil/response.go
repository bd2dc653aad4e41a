package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/quantalab/lims-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

var kindNames = map[apperrors.Kind]string{
	apperrors.KindValidation:             "validation",
	apperrors.KindIdentityResolution:     "identity_resolution",
	apperrors.KindInvalidTransition:      "invalid_transition",
	apperrors.KindConflict:               "conflict",
	apperrors.KindConcurrentModification: "concurrent_modification",
	apperrors.KindNotFound:               "not_found",
	apperrors.KindUnauthorized:           "unauthorized",
	apperrors.KindForbidden:              "forbidden",
	apperrors.KindInternal:               "internal",
}

var kindStatus = map[apperrors.Kind]int{
	apperrors.KindValidation:             http.StatusBadRequest,
	apperrors.KindIdentityResolution:     http.StatusBadRequest,
	apperrors.KindInvalidTransition:      http.StatusConflict,
	apperrors.KindConflict:               http.StatusConflict,
	apperrors.KindConcurrentModification: http.StatusConflict,
	apperrors.KindNotFound:               http.StatusNotFound,
	apperrors.KindUnauthorized:           http.StatusUnauthorized,
	apperrors.KindForbidden:              http.StatusForbidden,
	apperrors.KindInternal:               http.StatusInternalServerError,
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError maps a typed error to its HTTP status. Untyped errors
// surface as 500 without leaking internals.
func RespondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(kindStatus[appErr.Kind], Response{
			Success: false,
			Error: &Error{
				Kind:    kindNames[appErr.Kind],
				Message: appErr.Message,
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, Response{
		Success: false,
		Error: &Error{
			Kind:    "internal",
			Message: "internal server error",
		},
	})
}

// RespondWithValidationError reports a request binding failure.
func RespondWithValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error: &Error{
			Kind:    "validation",
			Message: err.Error(),
		},
	})
}
