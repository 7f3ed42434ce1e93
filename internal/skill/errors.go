package skill

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthorization is returned when the event's application id does not
	// match the configured one.
	ErrAuthorization = errors.New("invalid application id")

	// ErrUnsupportedIntent is returned for intent names with no registered handler.
	ErrUnsupportedIntent = errors.New("unsupported intent")

	// ErrUnsupportedRequest is returned for request types other than launch,
	// intent and session-ended.
	ErrUnsupportedRequest = errors.New("unsupported request type")

	ErrMissingSession = errors.New("event has no session")

	ErrInvalidPhoneNumber = errors.New("invalid phone number")

	// ErrMissingReprompt is returned when an Ask envelope is built without a reprompt.
	ErrMissingReprompt = errors.New("ask response requires a reprompt")

	ErrNoTarget      = errors.New("no day, time or duration given")
	ErrInvalidTarget = errors.New("unrecognized day, time or duration")
	ErrTargetInPast  = errors.New("target time has already passed")
)

// StoreError wraps a failed lookup or write against the phone or reminder store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NotificationError wraps a failed send on the notification channel.
type NotificationError struct {
	Destination string
	Err         error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Destination, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
