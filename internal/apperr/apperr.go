package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies failures the way the HTTP layer above this backend
// maps them: not-found, bad input, upstream provider fault, server fault.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindUpstream
	KindInconsistent
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindUpstream:
		return "upstream"
	case KindInconsistent:
		return "inconsistent"
	default:
		return "unknown"
	}
}

// Status is the HTTP-equivalent status for the excluded web layer.
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return 404
	case KindValidation:
		return 400
	case KindUpstream, KindInconsistent:
		return 500
	default:
		return 500
	}
}

type Error struct {
	Kind Kind
	Code string
	// Detail is the localized, user-facing message.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Code, e.Kind, e.Err)
	}
	if e.Detail != "" {
		return e.Detail
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(code, detail string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Detail: detail}
}

func Validation(code, detail string) *Error {
	return &Error{Kind: KindValidation, Code: code, Detail: detail}
}

func Upstream(code, detail string, err error) *Error {
	return &Error{Kind: KindUpstream, Code: code, Detail: detail, Err: err}
}

func Inconsistent(code, detail string) *Error {
	return &Error{Kind: KindInconsistent, Code: code, Detail: detail}
}

// KindOf reports the Kind of err, or KindUnknown for plain errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

func IsKind(err error, k Kind) bool { return KindOf(err) == k }
