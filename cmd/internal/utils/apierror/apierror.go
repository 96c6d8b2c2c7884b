package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"slotbook/cmd/internal/service"

	"github.com/go-playground/validator/v10"
)

type ErrorResponse interface {
	error
	Code() int
}

type SimpleError struct {
	Status  int               `json:"status"`
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *SimpleError) Error() string {
	return e.Message
}

func (e *SimpleError) Code() int {
	return e.Status
}

func NewSimple(status int, message string) *SimpleError {
	return &SimpleError{Status: status, Kind: kindForStatus(status), Message: message}
}

var (
	InternalServerError   = &SimpleError{Status: http.StatusInternalServerError, Kind: string(service.KindInternal), Message: "Internal server error"}
	MalformedBodyError    = &SimpleError{Status: http.StatusBadRequest, Kind: "validation", Message: "Malformed request body"}
	InvalidAuthTokenError = &SimpleError{Status: http.StatusUnauthorized, Kind: "unauthorized", Message: "Invalid or missing auth token"}
	ForbiddenError        = &SimpleError{Status: http.StatusForbidden, Kind: "forbidden", Message: "Not allowed for this role"}
	NotFoundError         = &SimpleError{Status: http.StatusNotFound, Kind: string(service.KindNotFound), Message: "Resource not found"}
)

func NewMissingParamError(param string) *SimpleError {
	return &SimpleError{
		Status:  http.StatusBadRequest,
		Kind:    "validation",
		Message: fmt.Sprintf("Missing parameter %q", param),
		Fields:  map[string]string{param: "required"},
	}
}

func NewInvalidParamTypeError(param, expected string) *SimpleError {
	return &SimpleError{
		Status:  http.StatusBadRequest,
		Kind:    "validation",
		Message: fmt.Sprintf("Parameter %q must be %s", param, expected),
		Fields:  map[string]string{param: expected},
	}
}

// FromValidationError lists every failed field with the tag that rejected it.
func FromValidationError(err error) *SimpleError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return MalformedBodyError
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return &SimpleError{
		Status:  http.StatusBadRequest,
		Kind:    "validation",
		Message: "Request validation failed",
		Fields:  fields,
	}
}

var statusByKind = map[service.ErrorKind]int{
	service.KindTenantNotFound:     http.StatusNotFound,
	service.KindTenantSuspended:    http.StatusForbidden,
	service.KindPolicyViolation:    http.StatusUnprocessableEntity,
	service.KindSlotConflict:       http.StatusConflict,
	service.KindLimitExceeded:      http.StatusTooManyRequests,
	service.KindNotFound:           http.StatusNotFound,
	service.KindTransactionTimeout: http.StatusGatewayTimeout,
}

// FromError maps a booking engine error onto its response. Internal errors
// never leak their message.
func FromError(err error) ErrorResponse {
	kind := service.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		return InternalServerError
	}
	return &SimpleError{Status: status, Kind: string(kind), Message: err.Error()}
}

func kindForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return string(service.KindNotFound)
	}
	return string(service.KindInternal)
}
