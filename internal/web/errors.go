package web

import (
	"fmt"
	"net/http"
)

// AppError represents a structured API error with a machine-readable code.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// FailErr writes a structured error response from an AppError.
// Optional detail is appended to the message (e.g. err.Error()).
func FailErr(w http.ResponseWriter, r *http.Request, e *AppError, detail ...string) {
	msg := e.Message
	if len(detail) > 0 && detail[0] != "" {
		msg = msg + ": " + detail[0]
	}
	Fail(w, r, e.Code, msg, e.HTTPStatus)
}

// ---------------------------------------------------------------------------
// System / generic
// ---------------------------------------------------------------------------

var (
	ErrNotFound      = &AppError{"NOT_FOUND", "resource not found", 404, nil}
	ErrInvalidParam  = &AppError{"INVALID_PARAM", "invalid request parameter", 400, nil}
	ErrInvalidBody   = &AppError{"INVALID_BODY", "invalid request body", 400, nil}
	ErrInternalError = &AppError{"INTERNAL_ERROR", "internal server error", 500, nil}
)

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

var (
	ErrInstanceRequired = &AppError{"INSTANCE_REQUIRED", "instance URL required (parameter or configured default)", 400, nil}
	ErrRunsQueryFail    = &AppError{"RUNS_QUERY_FAILED", "check run history query failed", 500, nil}
)
