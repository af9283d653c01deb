package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// Application error codes. Every error produced by the services carries one
// of these codes, and ReturnError maps them onto HTTP status codes in a
// single place.
const (
	// ECONFLICT is returned when a write collides with existing state,
	// e.g. liking an already liked loop or taking a used username.
	ECONFLICT = "conflict"
	// EINTERNAL is returned for storage or transport faults. It's the only
	// code whose message is hidden from the client.
	EINTERNAL = "internal"
	// EINVALID is returned for malformed or invalid request payloads.
	EINVALID = "invalid"
	// ENOTFOUND is returned when the requested resource does not exist.
	ENOTFOUND = "not_found"
	// EUNAUTHENTICATED is returned when an action requires a logged in
	// user and the request carries none.
	EUNAUTHENTICATED = "unauthenticated"
	// EUNAUTHORIZED is returned when the user is known but is neither the
	// owner of the resource nor an admin.
	EUNAUTHORIZED = "unauthorized"
	// EQUOTA is returned when a daily action cap has been reached.
	EQUOTA = "quota_exceeded"
)

// Error is an application error. Code classifies the error for clients and
// for the HTTP layer, Message is human-readable and safe to show to users
// (except for EINTERNAL, where a generic message is substituted).
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("loopLife error: code=%s message=%s", e.Code, e.Message)
}

// Errorf constructs an *Error with the given code and formatted message.
func Errorf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode unwraps the application code of any error.
// Plain errors count as EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps the user-facing message of any error. Plain errors
// get a generic message, their details are for the logs only.
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) && e.Code != EINTERNAL {
		return e.Message
	}
	return "Internal error."
}

// codeToStatus maps application error codes onto HTTP status codes.
var codeToStatus = map[string]int{
	ECONFLICT:        http.StatusConflict,
	EINTERNAL:        http.StatusInternalServerError,
	EINVALID:         http.StatusBadRequest,
	ENOTFOUND:        http.StatusNotFound,
	EUNAUTHENTICATED: http.StatusUnauthorized,
	EUNAUTHORIZED:    http.StatusForbidden,
	EQUOTA:           http.StatusTooManyRequests,
}

// ErrorStatusCode returns the HTTP status code for an application error code.
func ErrorStatusCode(code string) int {
	if status, ok := codeToStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ReturnError writes an error response as json. Internal errors are logged
// and their details replaced with a generic message.
func ReturnError(w http.ResponseWriter, r *http.Request, err error) {
	code, message := ErrorCode(err), ErrorMessage(err)
	if code == EINTERNAL {
		LogError(r, err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ErrorStatusCode(code))
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// LogError logs an error together with the request it occurred on.
func LogError(r *http.Request, err error) {
	log.WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).WithError(err).Error("request failed")
}
