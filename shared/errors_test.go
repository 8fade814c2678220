package shared

import (
	"errors"
	"testing"
)

func TestIsRetryableErrorPatterns(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "timeout", err: errors.New("request timeout exceeded"), want: true},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), want: true},
		{name: "dns failure", err: errors.New("lookup host: dns failure"), want: true},
		{name: "business rejection", err: errors.New("invalid CRN number"), want: false},
		{name: "already applied", err: errors.New("application already exists"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableError(tt.err); got != tt.want {
				t.Errorf("IsRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsRetryableErrorHonorsServiceErrorFlag(t *testing.T) {
	// The explicit flag wins over message-pattern matching.
	err := NewServiceError(ErrorCategorySubmission, "REJECTED", "connection refused by policy", "Submit", false, nil)
	if IsRetryableError(err) {
		t.Error("a non-retryable ServiceError must not be retried, whatever its message says")
	}
}

func TestWrapErrorPreservesServiceError(t *testing.T) {
	original := NewServiceError(ErrorCategoryNetwork, "FETCH_FAILED", "boom", "Fetch", true, nil)

	wrapped := WrapError(original, ErrorCategorySubmission, "OTHER", "Apply", false)
	if wrapped.Code != "FETCH_FAILED" || wrapped.Category != ErrorCategoryNetwork {
		t.Errorf("wrapped = %+v, want the original classification kept", wrapped)
	}
	if wrapped.Operation != "Apply" {
		t.Errorf("operation = %q, want it updated to the outer call", wrapped.Operation)
	}
}

func TestWrapErrorNil(t *testing.T) {
	if WrapError(nil, ErrorCategoryNetwork, "X", "Op", true) != nil {
		t.Error("wrapping nil must stay nil")
	}
}

func TestServiceErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := NewServiceError(ErrorCategoryDatabase, "INSERT_FAILED", "insert failed", "Insert", false, cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause through Unwrap")
	}
}
