package platform

import (
	"errors"
	"fmt"
)

// Kind classifies a platform failure.
type Kind string

const (
	KindUnavailable     Kind = "unavailable"
	KindAgeRestricted   Kind = "age_restricted"
	KindPremierePending Kind = "premiere_pending"
	KindTransport       Kind = "transport"
	KindUnknown         Kind = "unknown"
)

// Error is returned by platform adapters for every failure they can classify.
type Error struct {
	Kind       Kind
	VideoID    string
	StatusCode int // HTTP status when the failure is a non-200 reply
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.VideoID != "" {
		return fmt.Sprintf("%s: video %s: %s", e.Kind, e.VideoID, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a platform error, or "" when err is not one.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err is a platform error of kind k.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

// StatusCodeOf returns the HTTP status carried by a platform error, or 0.
func StatusCodeOf(err error) int {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.StatusCode
	}
	return 0
}
