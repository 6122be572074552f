package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound          ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized      ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden         ErrorType = "FORBIDDEN"
	ErrorTypeInvalidTransition ErrorType = "INVALID_STATUS_TRANSITION"
	ErrorTypeConflict          ErrorType = "CONFLICT"
	ErrorTypeEncoding          ErrorType = "ENCODING_ERROR"
	ErrorTypeInternal          ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount       ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidDescription  ErrorCode = "INVALID_DESCRIPTION"
	ErrCodeInvalidCategory     ErrorCode = "INVALID_CATEGORY"
	ErrCodeInvalidDate         ErrorCode = "INVALID_DATE"
	ErrCodeCommentRequired     ErrorCode = "COMMENT_REQUIRED"
	ErrCodeEmptyApplicationIDs ErrorCode = "EMPTY_APPLICATION_IDS"
	ErrCodeInvalidBankAccount  ErrorCode = "INVALID_BANK_ACCOUNT"

	ErrCodeApplicationNotFound ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeBatchNotFound       ErrorCode = "BATCH_NOT_FOUND"
	ErrCodeUserNotFound        ErrorCode = "USER_NOT_FOUND"
	ErrCodeNotOwner            ErrorCode = "NOT_APPLICATION_OWNER"
	ErrCodeAdminRequired       ErrorCode = "ADMIN_REQUIRED"
	ErrCodeInvalidTransition   ErrorCode = "INVALID_STATUS_TRANSITION"
	ErrCodeCannotModify        ErrorCode = "CANNOT_MODIFY_APPLICATION"

	ErrCodeNotAllApproved     ErrorCode = "NOT_ALL_APPROVED"
	ErrCodeAlreadyPaid        ErrorCode = "ALREADY_PAID"
	ErrCodeConcurrentUpdate   ErrorCode = "CONCURRENT_UPDATE"
	ErrCodeFieldOverflow      ErrorCode = "FIELD_OVERFLOW"
	ErrCodeInvalidCharacter   ErrorCode = "INVALID_CHARACTER"
	ErrCodeMissingBankAccount ErrorCode = "MISSING_BANK_ACCOUNT"
	ErrCodeExportBusy         ErrorCode = "EXPORT_QUEUE_FULL"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
)

// AppError is the typed outcome every service returns on failure. Type is the
// machine readable tag the transport layer maps onto a status code.
type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Retryable  bool        `json:"retryable,omitempty"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on Type and Code so shared sentinels compare equal to copies
// that carry a different cause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInvalidTransitionError(from, to string) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidTransition,
		Code:       ErrCodeInvalidTransition,
		Message:    fmt.Sprintf("cannot change status from %s to %s", from, to),
		StatusCode: http.StatusBadRequest,
		Details:    map[string]string{"from": from, "to": to},
	}
}

// NewConflictError reports a precondition conflict on the requested resources.
// The request is answered with 400 because retrying it unchanged cannot succeed.
func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewRetryableConflictError reports a transaction that lost a race with a
// concurrent writer. Nothing was committed; the caller may retry.
func NewRetryableConflictError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       ErrCodeConcurrentUpdate,
		Message:    message,
		StatusCode: http.StatusConflict,
		Retryable:  true,
		Cause:      cause,
	}
}

func NewEncodingError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeEncoding,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Details:    map[string]string{"field": field},
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrUserInactive       = NewForbiddenError("User account is inactive", ErrCodeUserInactive)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
	ErrAdminRequired      = NewForbiddenError("administrator role required", ErrCodeAdminRequired)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasType reports whether err is an AppError tagged with t.
func HasType(err error, t ErrorType) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Type == t
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      ErrorType   `json:"type"`
		Code      ErrorCode   `json:"code"`
		Message   string      `json:"message"`
		Details   interface{} `json:"details,omitempty"`
		Retryable bool        `json:"retryable,omitempty"`
	}{
		Type:      e.Type,
		Code:      e.Code,
		Message:   e.Message,
		Details:   e.Details,
		Retryable: e.Retryable,
	})
}
