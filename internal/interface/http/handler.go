package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/annadaan/annadaan-backend/pkg/apperrors"
	"github.com/annadaan/annadaan-backend/pkg/response"
)

// writeError maps application error codes onto HTTP statuses and keeps
// the error payload shape uniform across handlers.
func writeError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		response.Fail(c, http.StatusInternalServerError, "internal error", nil)
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Code {
	case apperrors.CodeValidation:
		status = http.StatusBadRequest
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodeForbidden:
		status = http.StatusForbidden
	case apperrors.CodeUnauthorized:
		status = http.StatusUnauthorized
	case apperrors.CodeInvalidState, apperrors.CodePreconditionFailed, apperrors.CodeConflict:
		status = http.StatusConflict
	}

	var details any
	if len(appErr.Fields) > 0 {
		details = appErr.Fields
	}
	response.Fail(c, status, appErr.Message, details)
}
