package ecode

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
)

const (
	OK                         = 0
	RequestErr                 = -400
	InvalidArgument            = -401
	NotFound                   = -404
	Conflict                   = -409
	ContentTypeUnknown         = -415
	GenerationFailed           = -422
	UnlinkOfImmutableTempAsset = -423
	Canceled                   = -499
	ServerErr                  = -500
	Timeout                    = -504
)

var (
	mu    sync.RWMutex
	texts = map[int]string{
		OK:                         "ok",
		RequestErr:                 "Invalid request",
		InvalidArgument:            "Invalid argument",
		NotFound:                   "Resource not found",
		Conflict:                   "Resource conflict",
		ContentTypeUnknown:         "Content type could not be determined",
		GenerationFailed:           "Asset generation failed",
		UnlinkOfImmutableTempAsset: "Temporary assets cannot be unlinked",
		Canceled:                   "Operation canceled",
		ServerErr:                  "Internal server error",
		Timeout:                    "Deadline exceeded",
	}
	statuses = map[int]int{
		OK:                         http.StatusOK,
		RequestErr:                 http.StatusBadRequest,
		InvalidArgument:            http.StatusBadRequest,
		NotFound:                   http.StatusNotFound,
		Conflict:                   http.StatusConflict,
		ContentTypeUnknown:         http.StatusUnsupportedMediaType,
		GenerationFailed:           http.StatusUnprocessableEntity,
		UnlinkOfImmutableTempAsset: http.StatusMethodNotAllowed,
		Canceled:                   http.StatusConflict,
		ServerErr:                  http.StatusInternalServerError,
		Timeout:                    http.StatusGatewayTimeout,
	}
)

// Register adds or replaces the text of a code.
func Register(code int, text string) {
	mu.Lock()
	defer mu.Unlock()
	texts[code] = text
}

// Text returns the human-readable text of a code.
func Text(code int) string {
	mu.RLock()
	defer mu.RUnlock()
	if t, ok := texts[code]; ok {
		return t
	}
	return texts[ServerErr]
}

// ToHTTPStatus maps a code to an HTTP status.
func ToHTTPStatus(code int) int {
	if s, ok := statuses[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error is an error carrying a code.
type Error struct {
	Code    int
	Message string
	Err     error
}

// New creates an error with the given code and message.
func New(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates an error with a formatted message.
func Errorf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code to err.
func Wrap(code int, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = Text(e.Code)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match when target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Code extracts the code carried by err; nil yields OK and foreign errors ServerErr.
func Code(err error) int {
	if err == nil {
		return OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ServerErr
}

// Is reports whether err carries code.
func Is(err error, code int) bool {
	return errors.Is(err, &Error{Code: code})
}
