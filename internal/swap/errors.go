package swap

import (
	"errors"
	"fmt"
)

// Kind classifies a swap failure.
type Kind string

const (
	KindConfiguration       Kind = "ConfigurationError"
	KindInvalidRequest      Kind = "InvalidRequest"
	KindInvalidTradeMode    Kind = "InvalidTradeMode"
	KindInvalidAmount       Kind = "InvalidAmount"
	KindInsufficientBalance Kind = "InsufficientBalance"
	KindBalanceUnavailable  Kind = "BalanceUnavailable"
	KindQuoteUnavailable    Kind = "QuoteUnavailable"
	KindSubmissionFailed    Kind = "SubmissionFailed"
	KindTransport           Kind = "TransportError"
)

// Reason refines QuoteUnavailable and SubmissionFailed.
type Reason string

const (
	ReasonBadStatus         Reason = "badStatus"
	ReasonEmptyRoute        Reason = "emptyRoute"
	ReasonMalformedResponse Reason = "malformedResponse"
	ReasonTimeout           Reason = "timeout"
)

// Error is the typed failure every stage of a swap flow reports.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Fatal reports whether the failure is a process-level misconfiguration.
func (e *Error) Fatal() bool { return e.Kind == KindConfiguration }

// NewError builds an Error without a reason.
func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// QuoteError reports a failed route lookup.
func QuoteError(reason Reason, message string, err error) *Error {
	return &Error{Kind: KindQuoteUnavailable, Reason: reason, Message: message, Err: err}
}

// SubmitError reports a failed swap submission.
func SubmitError(reason Reason, message string, err error) *Error {
	return &Error{Kind: KindSubmissionFailed, Reason: reason, Message: message, Err: err}
}

// KindOf extracts the Kind of err; unclassified errors are transport errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindTransport
}

// IsFatal reports whether err is a configuration failure.
func IsFatal(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Fatal()
}
