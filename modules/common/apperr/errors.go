package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failure so callers can branch without parsing messages.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation - missing image or empty required field, caught before any request.
	KindValidation
	// KindRemote - the generative API failed or returned no usable image.
	KindRemote
	// KindDecode - uploaded bytes could not be read or decoded.
	KindDecode
	// KindBusy - a request is already in flight for the workflow.
	KindBusy
	// KindNotFound - unknown session or mode.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRemote:
		return "remote"
	case KindDecode:
		return "decode"
	case KindBusy:
		return "busy"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error carries a Kind and a human readable detail.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(detail string) *Error {
	return &Error{Kind: KindValidation, Detail: detail}
}

func Decode(detail string, err error) *Error {
	return &Error{Kind: KindDecode, Detail: detail, Err: err}
}

func Busy(detail string) *Error {
	return &Error{Kind: KindBusy, Detail: detail}
}

func NotFound(detail string) *Error {
	return &Error{Kind: KindNotFound, Detail: detail}
}

func Remote(detail string, err error) *Error {
	return &Error{Kind: KindRemote, Detail: detail, Err: err}
}

// RemoteFailure wraps a failed generative call as "Failed to <action>: <cause>".
// A cause without a message gets a generic detail instead.
func RemoteFailure(action string, err error) *Error {
	msg := ""
	if err != nil {
		msg = strings.TrimSpace(err.Error())
	}
	if msg == "" {
		return Remote(fmt.Sprintf("An unknown error occurred while trying to %s.", action), err)
	}
	return Remote(fmt.Sprintf("Failed to %s: %s", action, msg), err)
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// From converts any error into an *Error, keeping an existing one intact.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindUnknown, Detail: err.Error(), Err: err}
}

// HTTPStatus maps a Kind to the response status used by the API.
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation, KindDecode:
		return http.StatusBadRequest
	case KindBusy:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindRemote:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
