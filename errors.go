package imageapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrNotFound unknown image kind error
	ErrNotFound = NewError("the provided image type does not exist", http.StatusNotFound)
	// ErrInvalid syntactic invalid image URL error
	ErrInvalid = NewError("invalid image url", http.StatusBadRequest)
	// ErrMethodNotAllowed method not allowed error
	ErrMethodNotAllowed = NewError("method not allowed", http.StatusMethodNotAllowed)
	// ErrOriginRejected request origin not in the allow-list
	ErrOriginRejected = NewError("origin not allowed", http.StatusForbidden)
	// ErrSourceNotAllowed image host not in the CDN allow-list
	ErrSourceNotAllowed = NewError("image source not allowed", http.StatusBadRequest)
	// ErrUnreachable upstream network failure error
	ErrUnreachable = NewError("upstream unreachable", http.StatusBadGateway)
	// ErrPayloadTooLarge maximum fetch size exceeded error
	ErrPayloadTooLarge = NewError("maximum size exceeded", http.StatusRequestEntityTooLarge)
	// ErrUnsupportedFormat unsupported image format error
	ErrUnsupportedFormat = NewError("unsupported format", http.StatusUnsupportedMediaType)
	// ErrCorruptData undecodable image data error
	ErrCorruptData = NewError("corrupt image data", http.StatusBadRequest)
	// ErrResolutionExceeded maximum pixel count exceeded error
	ErrResolutionExceeded = NewError("maximum resolution exceeded", http.StatusRequestEntityTooLarge)
	// ErrEncode image encode failure, indicates an upstream invariant violation
	ErrEncode = NewError("encode failure", http.StatusInternalServerError)
	// ErrTimeout timeout error
	ErrTimeout = NewError("timeout", http.StatusRequestTimeout)
	// ErrInternal internal error
	ErrInternal = NewError("internal error", http.StatusInternalServerError)
)

const errPrefix = "imageapi:"

var errMsgRegexp = regexp.MustCompile(fmt.Sprintf("^%s ([0-9]+) (.*)$", errPrefix))

// Error imageapi error convention, message with HTTP status code
type Error struct {
	Message string `json:"message,omitempty"`
	Code    int    `json:"status,omitempty"`
}

type timeoutErr interface {
	Timeout() bool
}

// Error implements error
func (e Error) Error() string {
	return fmt.Sprintf("%s %d %s", errPrefix, e.Code, e.Message)
}

// Timeout indicates if error is timeout
func (e Error) Timeout() bool {
	return e.Code == http.StatusRequestTimeout || e.Code == http.StatusGatewayTimeout
}

// NewError creates Error from message and status code
func NewError(msg string, code int) Error {
	return Error{Message: msg, Code: code}
}

// NewUpstreamStatusError creates Error from a non-2xx upstream CDN status.
// The upstream status is retained in the message while the response
// surfaces as bad gateway.
func NewUpstreamStatusError(code int) Error {
	return NewError(fmt.Sprintf("upstream status %d", code), http.StatusBadGateway)
}

// WrapError wraps Go error into imageapi Error
func WrapError(err error) Error {
	if err == nil {
		return ErrInternal
	}
	var e Error
	if errors.As(err, &e) {
		return e
	}
	if t, ok := err.(timeoutErr); ok && t.Timeout() {
		return ErrTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	if msg := err.Error(); errMsgRegexp.MatchString(msg) {
		if match := errMsgRegexp.FindStringSubmatch(msg); len(match) == 3 {
			code, _ := strconv.Atoi(match[1])
			return NewError(match[2], code)
		}
	}
	msg := strings.Replace(err.Error(), "\n", "", -1)
	return NewError(msg, http.StatusInternalServerError)
}
