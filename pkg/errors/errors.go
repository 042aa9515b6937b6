package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation = NewError("VALIDATION_ERROR", "validation failed", http.StatusBadRequest)
	ErrInternal   = NewError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
	ErrTimeout    = NewError("TIMEOUT", "operation timed out", http.StatusGatewayTimeout)

	ErrUnauthorized = NewError("UNAUTHORIZED", "missing or invalid credentials", http.StatusUnauthorized)

	// ErrConfigurationFault means the request schema and the processor registry disagree.
	// It is the only failure allowed to abort a whole envelope.
	ErrConfigurationFault = NewError("CONFIGURATION_FAULT", "processor configuration fault", http.StatusInternalServerError)
)

// Error is a service level failure with a stable code. Protocol errors returned to partner
// systems are ixsi.ErrorRecord values instead.
type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]interface{}
	Cause   error
	fatal   *bool
}

func NewError(code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
		Details: make(map[string]interface{}),
	}
}

func (e *Error) Error() string {
	msg := e.Message
	if detailMsg, ok := e.Details["message"].(string); ok && detailMsg != "" {
		msg = detailMsg
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so errors.Is works against the sentinels
// after WithCause or WithDetail made a copy.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// IsFatal reports whether retrying can not change the outcome. Validation failures and
// configuration faults are fatal unless marked otherwise.
func (e *Error) IsFatal() bool {
	if e.fatal != nil {
		return *e.fatal
	}
	return e.Code == ErrValidation.Code || e.Code == ErrConfigurationFault.Code
}

func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Cause = cause
	return &err
}

// WithDetail returns a copy of e with key set. The receiver's details are not modified,
// so sentinel errors stay safe to share between goroutines.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := *e
	err.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		err.Details[k] = v
	}
	err.Details[key] = value
	return &err
}

func (e *Error) AsFatal() *Error {
	err := *e
	fatal := true
	err.fatal = &fatal
	return &err
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsConfigurationFault(err error) bool {
	return errors.Is(err, ErrConfigurationFault)
}

// Cause returns the innermost error wrapped by an *Error, or err itself.
func Cause(err error) error {
	var appErr *Error
	for errors.As(err, &appErr) && appErr.Cause != nil {
		err = appErr.Cause
	}
	return err
}

func ToHTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// ErrorResponse is the JSON body of a failed HTTP call.
type ErrorResponse struct {
	Error     string                 `json:"error"`
	ErrorCode string                 `json:"error_code"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// ToErrorResponse renders err as an ErrorResponse. Errors of other types are reported as
// internal errors without their text.
func ToErrorResponse(err error) ErrorResponse {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = ErrInternal
	}

	response := ErrorResponse{
		Error:     appErr.Message,
		ErrorCode: appErr.Code,
	}
	if len(appErr.Details) > 0 {
		response.Details = appErr.Details
	}

	return response
}
