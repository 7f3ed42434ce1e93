package skill

import (
	"context"
	"time"
)

// Reminder is the record persisted once per successful reminder request.
type Reminder struct {
	RequestID string
	UserID    string
	Text      string
	ExpiresAt time.Time
}

// PhoneStore persists one phone number per user.
type PhoneStore interface {
	GetPhoneNumber(ctx context.Context, userID string) (number string, found bool, err error)
	PutPhoneNumber(ctx context.Context, userID, number string) error
}

// ReminderStore persists reminder records. Expiry and deletion are the store's concern.
type ReminderStore interface {
	PutReminder(ctx context.Context, r Reminder) error
}

// Notifier delivers a text message to a destination such as a phone number or chat id.
type Notifier interface {
	Send(ctx context.Context, destination, message string) error
}
