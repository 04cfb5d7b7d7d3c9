// Package services holds the analysis workflows between the HTTP handlers
// and the analytics, storage and queue packages.
package services

import "errors"

// Error codes returned in ServiceError.Code
const (
	CodeInvalidInput   = "INVALID_INPUT"
	CodeInvalidMethod  = "INVALID_METHOD"
	CodeForecastFailed = "FORECAST_FAILED"
	CodeReportNotFound = "REPORT_NOT_FOUND"
	CodeStorageFailed  = "STORAGE_FAILED"
	CodeNotSupported   = "NOT_SUPPORTED"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// ErrorCode returns the code of a ServiceError anywhere in err's chain, or ""
func ErrorCode(err error) string {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return ""
}
