// Package response writes the uniform JSON envelopes returned by every endpoint.
package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vidtube/backend/internal/apierr"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/repositories"
)

// Envelope wraps a successful payload.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorEnvelope wraps a failure.
type ErrorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

const genericFailure = "Something went wrong"

// Success writes a success envelope. A nil data payload is serialized as an empty object.
func Success(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	if data == nil {
		data = struct{}{}
	}
	write(ctx, w, status, Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// Error maps err onto an error envelope. Errors outside the api taxonomy are reported as a
// generic 500 so internals never reach the client.
func Error(ctx context.Context, w http.ResponseWriter, err error) {
	status, message, details := classify(err)

	logger := logging.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request returned client error", "status", status, "message", message)
	}

	if details == nil {
		details = []string{}
	}
	write(ctx, w, status, ErrorEnvelope{
		StatusCode: status,
		Message:    message,
		Success:    false,
		Errors:     details,
	})
}

func classify(err error) (int, string, []string) {
	if apiErr, ok := apierr.As(err); ok {
		if apiErr.Kind == apierr.KindInternal {
			return http.StatusInternalServerError, nonEmpty(apiErr.Message), nil
		}
		return apiErr.Status(), apiErr.Message, apiErr.Details
	}

	switch {
	case errors.Is(err, repositories.ErrInvalidID):
		return http.StatusBadRequest, err.Error(), nil
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound, "Resource not found", nil
	case errors.Is(err, repositories.ErrConflict):
		return http.StatusConflict, "Resource already exists", nil
	default:
		return http.StatusInternalServerError, genericFailure, nil
	}
}

func nonEmpty(message string) string {
	if message == "" {
		return genericFailure
	}
	return message
}

func write(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
	}
}
