package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vidtube/backend/internal/apierr"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/events"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/passwords"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/response"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return passwords.Fits(fl.Field().String())
	})
	return v
}

// validateRequest checks struct tags. Missing fields collapse into one "All fields are required"
// message with per-field details.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierr.Validation("invalid request")
	}

	details := make([]string, 0, len(fieldErrs))
	missing := false
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			missing = true
			details = append(details, fe.Field()+" is required")
		case "email":
			details = append(details, fe.Field()+" must be a valid email address")
		case "password":
			details = append(details, fmt.Sprintf("%s must be at most %d bytes", fe.Field(), passwords.MaxBytes))
		case "max":
			details = append(details, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			details = append(details, fe.Field()+" is invalid")
		}
	}

	message := details[0]
	if missing {
		message = "All fields are required"
	}
	return apierr.Validation(message, details...)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apierr.Validation("invalid request body")
	}
	return nil
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apierr.Validation("invalid request body")
	}
	return nil
}

func respond(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	response.Success(ctx, w, status, data, message)
}

func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	response.Error(ctx, w, err)
}

func currentUser(r *http.Request) (models.User, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return models.User{}, apierr.Auth("Unauthorized request")
	}
	return user, nil
}

func pathID(r *http.Request, name string) (primitive.ObjectID, error) {
	return repositories.ParseID(r.PathValue(name), name)
}

// notFound maps ErrNotFound to a 404 carrying message and passes every other error through.
func notFound(err error, message string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apierr.NotFound(message)
	}
	return err
}

func publish(ctx context.Context, publisher EventPublisher, event events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logging.FromContext(ctx).Warn("publish event failed", "type", event.Type, "error", err)
	}
}
