package apperrors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStoreErrorIs(t *testing.T) {
	tests := []struct {
		err    error
		target error
		want   bool
	}{
		{NotFound("get_user", "user"), ErrNotFound, true},
		{NotFound("get_user", "user"), ErrConflict, false},
		{Conflict("create_user", "user", errors.New("UNIQUE constraint failed: users.email")), ErrConflict, true},
		{Internal("create_user", "user", errors.New("boom")), ErrInternal, true},
		{Internal("create_user", "user", errors.New("boom")), ErrNotFound, false},
	}
	for _, tt := range tests {
		if got := errors.Is(tt.err, tt.target); got != tt.want {
			t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.want)
		}
	}
}

func TestStoreErrorUnwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := Internal("create_team", "team", fmt.Errorf("insert: %w", inner))
	if !errors.Is(err, inner) {
		t.Error("expected wrapped cause to be matchable")
	}
}

func TestStoreErrorMessage(t *testing.T) {
	err := NotFound("get_team", "team")
	if got := err.Error(); !strings.Contains(got, "get_team") || !strings.Contains(got, "team") {
		t.Errorf("message %q should name the op and entity", got)
	}
}

func TestValidationError(t *testing.T) {
	var v ValidationError
	if v.HasErrors() {
		t.Error("empty validation error should report no failures")
	}
	v.Add("email", "invalid email address").Add("name", "must be at least 3 characters")
	if !v.HasErrors() {
		t.Error("expected failures after Add")
	}
	if !errors.Is(&v, ErrInvalidInput) {
		t.Error("validation error should match ErrInvalidInput")
	}
	msg := v.Error()
	if !strings.Contains(msg, "email") || !strings.Contains(msg, "name") {
		t.Errorf("message %q should list both fields", msg)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)")) {
		t.Error("expected sqlite unique violation to match")
	}
	if IsUniqueViolation(errors.New("FOREIGN KEY constraint failed")) {
		t.Error("FK violation should not match")
	}
	if IsUniqueViolation(nil) {
		t.Error("nil should not match")
	}
}
