package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
)

// ErrorClass buckets failures for retry decisions
type ErrorClass string

const (
	ClassNetwork     ErrorClass = "network"
	ClassTimeout     ErrorClass = "timeout"
	ClassRateLimited ErrorClass = "rate_limited"
	ClassTransient   ErrorClass = "transient"
	ClassPermanent   ErrorClass = "permanent"
	ClassUnknown     ErrorClass = "unknown"
)

// Retryable reports whether the class is worth another attempt.
// Everything except permanent is retried.
func (c ErrorClass) Retryable() bool {
	return c != ClassPermanent
}

// Classifier maps a failure to an ErrorClass.
type Classifier func(error) ErrorClass

// ClassifiedError carries the class alongside the underlying failure so
// callers past the executor boundary never have to re-classify.
type ClassifiedError struct {
	Class ErrorClass
	Err   error
}

func (e *ClassifiedError) Error() string {
	return string(e.Class) + ": " + e.Err.Error()
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// WithClass wraps err with an explicit class, overriding heuristics.
func WithClass(class ErrorClass, err error) error {
	return &ClassifiedError{Class: class, Err: err}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return WithClass(ClassPermanent, err)
}

// ClassOf extracts the class from err, classifying with the default
// heuristics when no explicit class is attached.
func ClassOf(err error) ErrorClass {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	return Classify(err)
}

// Classify applies keyword and type heuristics to bucket an error.
// HTTP status hints in the message are honored so classification works for
// wrapped client errors without a shared error type.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ClassTimeout
		}
		return ClassNetwork
	}

	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return ClassTimeout
	case containsAny(msg, "connection", "network", "dns", "socket", "broken pipe", "connection refused"):
		return ClassNetwork
	case containsAny(msg, "rate limit", "too many requests", "429"):
		return ClassRateLimited
	case containsAny(msg, "401", "403", "404", "unauthorized", "forbidden", "not found", "invalid request"):
		return ClassPermanent
	case containsAny(msg, "500", "502", "503", "504", "server error", "unavailable"):
		return ClassTransient
	}

	return ClassUnknown
}

func containsAny(s string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
