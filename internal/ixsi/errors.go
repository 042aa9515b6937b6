package ixsi

import "fmt"

// ErrorCode classifies a protocol-level error carried inside a response.
type ErrorCode string

const (
	CodeSystemUnknown  ErrorCode = "system-unknown"
	CodeInvalidRequest ErrorCode = "invalid-request"
	CodeNotImplemented ErrorCode = "not-implemented"
	CodeBackendFailure ErrorCode = "backend-failure"
	CodeUserInvalid    ErrorCode = "user-invalid"
)

// ErrorRecord is the error element of a response. It implements error so processors and
// collaborators can return it directly; the dispatcher then places it verbatim into the
// response instead of turning it into a backend failure.
type ErrorRecord struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
}

func (e *ErrorRecord) Error() string {
	if e.Detail != "" && e.Detail != e.Message {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func SystemUnknown() *ErrorRecord {
	return &ErrorRecord{Code: CodeSystemUnknown, Message: "The requesting system is unknown"}
}

func InvalidRequest(message, detail string) *ErrorRecord {
	return &ErrorRecord{Code: CodeInvalidRequest, Message: message, Detail: detail}
}

func NotImplemented(message string) *ErrorRecord {
	return &ErrorRecord{Code: CodeNotImplemented, Message: message}
}

func BackendFailure(message string) *ErrorRecord {
	return &ErrorRecord{Code: CodeBackendFailure, Message: message}
}

func UserInvalid(message string) *ErrorRecord {
	return &ErrorRecord{Code: CodeUserInvalid, Message: message}
}
