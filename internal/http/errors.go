package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/target/engage-api/internal/errors"
)

// statusFor maps an application error code to an HTTP status.
func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeConflict, apperrors.ErrCodeForeignKey:
		return http.StatusConflict
	case apperrors.ErrCodeValidation, apperrors.ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders err returned by a service. Application errors
// keep their code and message; anything else is logged and reported as an
// opaque internal error.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Code != apperrors.ErrCodeInternal {
		WriteError(w, ErrorParams{
			Code:    statusFor(appErr.Code),
			ErrCode: string(appErr.Code),
			Err:     errors.New(appErr.Message),
			Field:   appErr.Field,
		})
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		WriteError(w, ErrorParams{
			Code:    http.StatusGatewayTimeout,
			ErrCode: string(apperrors.ErrCodeTimeout),
			Err:     errors.New("request timed out"),
		})
		return
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger.ErrorContext(r.Context(), "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	WriteError(w, ErrorParams{
		Code:    http.StatusInternalServerError,
		ErrCode: string(apperrors.ErrCodeInternal),
		Err:     errors.New("internal server error"),
	})
}
