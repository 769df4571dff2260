package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	creditdomain "github.com/smallbiznis/outreach/internal/credit/domain"
	notificationdomain "github.com/smallbiznis/outreach/internal/notification/domain"
	outreachdomain "github.com/smallbiznis/outreach/internal/outreach/domain"
	signupdomain "github.com/smallbiznis/outreach/internal/signup/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// fieldErrors maps domain validation failures to the request field they concern.
var fieldErrors = []struct {
	err   error
	field string
	code  string
}{
	{outreachdomain.ErrEmptyBatch, "ids", "required"},
	{outreachdomain.ErrInvalidID, "id", "invalid_id"},
	{outreachdomain.ErrInvalidTemplate, "htmlTemplate", "invalid_template"},
	{outreachdomain.ErrOverrideNotAllowed, "subject", "not_allowed"},
	{signupdomain.ErrInvalidStage, "stage", "invalid_stage"},
	{creditdomain.ErrInvalidEmail, "email", "required"},
	{notificationdomain.ErrMissingRecord, "record", "required"},
	{ErrInvalidRequest, "request", "invalid_request"},
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	for _, fe := range fieldErrors {
		if errors.Is(err, fe.err) {
			return http.StatusBadRequest, errorPayload{
				Type:    "validation_error",
				Message: fe.err.Error(),
				Errors: []ValidationError{
					{Field: fe.field, Code: fe.code, Message: err.Error()},
				},
			}
		}
	}

	switch {
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "Signup not found",
		}
	case errors.Is(err, notificationdomain.ErrDelivery):
		return http.StatusInternalServerError, errorPayload{
			Type:    "delivery_failed",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, outreachdomain.ErrNotFound),
		errors.Is(err, creditdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func classifyErrorForLog(err error) string {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return "internal"
	}
	return payload.Type
}
