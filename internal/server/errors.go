package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/docsheet/internal/auth"
	"github.com/joseph-ayodele/docsheet/internal/common"
)

// statusFor maps the application error taxonomy onto HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, auth.ErrNoToken):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrFlowCancelled):
		return http.StatusConflict
	case errors.Is(err, common.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": message}. Application errors expose their
// message and code; anything else is reported verbatim.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}

	var appErr *common.AppError
	if errors.As(err, &appErr) {
		body["code"] = appErr.Code
		body["error"] = appErr.Message
		if appErr.Cause != nil && status != http.StatusInternalServerError {
			body["detail"] = appErr.Cause.Error()
		}
	}
	if status == http.StatusUnauthorized {
		body["reauth"] = true
	}
	c.AbortWithStatusJSON(status, body)
}

func respondMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
