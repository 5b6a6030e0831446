package middleware

import (
	"github.com/GoPolymarket/polydesk/internal/pkg/apperrors"
	"github.com/GoPolymarket/polydesk/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ErrorHandler renders errors attached by handlers as the desk's JSON
// error shape: code, message and, where the taxonomy has one, a
// suggestion the UI can surface verbatim. The last attached error
// wins.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := apperrors.Wrap(c.Errors.Last().Err)

		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"code", appErr.Type,
			"status", appErr.HTTPStatus,
		}

		switch {
		case appErr.HTTPStatus >= 500:
			logger.LogError(c.Request.Context(), appErr, "Request failed", fields...)
		case appErr.Type == apperrors.ErrSessionBusy:
			// Expected while a settlement is confirming; not a warning.
			logger.Info(appErr.Message, fields...)
		default:
			logger.Warn(appErr.Message, fields...)
		}

		c.JSON(appErr.HTTPStatus, appErr)
	}
}
