package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorCode(t *testing.T) {
	if got := ErrorCode(nil); got != "" {
		t.Errorf("nil error: code = %q, want empty", got)
	}
	if got := ErrorCode(Errorf(EQUOTA, "capped")); got != EQUOTA {
		t.Errorf("app error: code = %q, want %q", got, EQUOTA)
	}
	if got := ErrorCode(errors.New("boom")); got != EINTERNAL {
		t.Errorf("plain error: code = %q, want %q", got, EINTERNAL)
	}
	// Wrapped application errors keep their code.
	wrapped := fmt.Errorf("saving loop: %w", Errorf(ECONFLICT, "taken"))
	if got := ErrorCode(wrapped); got != ECONFLICT {
		t.Errorf("wrapped error: code = %q, want %q", got, ECONFLICT)
	}
}

func TestErrorMessage(t *testing.T) {
	if got := ErrorMessage(Errorf(EINVALID, "The title is required.")); got != "The title is required." {
		t.Errorf("message = %q, want the original", got)
	}
	// Internal details never reach the client.
	if got := ErrorMessage(errors.New("pq: connection refused")); got != "Internal error." {
		t.Errorf("plain error message = %q, want generic", got)
	}
	if got := ErrorMessage(Errorf(EINTERNAL, "lock wait timeout")); got != "Internal error." {
		t.Errorf("internal error message = %q, want generic", got)
	}
}

func TestErrorStatusCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ECONFLICT, http.StatusConflict},
		{EINVALID, http.StatusBadRequest},
		{ENOTFOUND, http.StatusNotFound},
		{EUNAUTHENTICATED, http.StatusUnauthorized},
		{EUNAUTHORIZED, http.StatusForbidden},
		{EQUOTA, http.StatusTooManyRequests},
		{EINTERNAL, http.StatusInternalServerError},
		{"made_up", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := ErrorStatusCode(tt.code); got != tt.want {
			t.Errorf("status for %s = %d, want %d", tt.code, got, tt.want)
		}
	}
}
