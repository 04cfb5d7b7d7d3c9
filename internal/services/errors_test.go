package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestServiceError_Error(t *testing.T) {
	err := &ServiceError{
		Code:    CodeInvalidInput,
		Message: "period must be positive",
	}

	if err.Error() != "period must be positive" {
		t.Errorf("Expected 'period must be positive', got '%s'", err.Error())
	}
}

func TestNewServiceError(t *testing.T) {
	err := NewServiceError(CodeReportNotFound, "report not found")

	if err.Code != CodeReportNotFound {
		t.Errorf("Expected code '%s', got '%s'", CodeReportNotFound, err.Code)
	}
	if err.Details != nil {
		t.Errorf("Expected nil details, got %v", err.Details)
	}
}

func TestNewServiceErrorWithDetails(t *testing.T) {
	details := map[string]interface{}{"available_methods": []string{"exponential", "holt_winters"}}
	err := NewServiceErrorWithDetails(CodeInvalidMethod, "unknown forecaster: arima", details)

	if err.Code != CodeInvalidMethod {
		t.Errorf("Expected code '%s', got '%s'", CodeInvalidMethod, err.Code)
	}
	if err.Details == nil {
		t.Fatal("Expected non-nil details")
	}
}

func TestServiceError_JSON(t *testing.T) {
	err := NewServiceErrorWithDetails(CodeInvalidInput, "bad", map[string]interface{}{"index": 3})

	data, marshalErr := json.Marshal(err)
	if marshalErr != nil {
		t.Fatalf("Marshal failed: %v", marshalErr)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["code"] != CodeInvalidInput || decoded["message"] != "bad" {
		t.Errorf("Unexpected JSON: %s", data)
	}

	data, _ = json.Marshal(NewServiceError("X", "y"))
	if string(data) != `{"code":"X","message":"y"}` {
		t.Errorf("details should be omitted when empty, got %s", data)
	}
}

func TestErrorCode(t *testing.T) {
	wrapped := fmt.Errorf("analyze: %w", NewServiceError(CodeStorageFailed, "disk full"))

	if code := ErrorCode(wrapped); code != CodeStorageFailed {
		t.Errorf("Expected %s, got %q", CodeStorageFailed, code)
	}
	if code := ErrorCode(errors.New("plain")); code != "" {
		t.Errorf("Expected empty code, got %q", code)
	}
	if code := ErrorCode(nil); code != "" {
		t.Errorf("Expected empty code for nil, got %q", code)
	}
}
