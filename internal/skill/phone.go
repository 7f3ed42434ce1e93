package skill

import (
	"context"

	"go.uber.org/zap"
)

// minPhoneNumberLen is a placeholder check, not E.164 validation.
const minPhoneNumberLen = 7

// ValidPhoneNumber reports whether candidate is non-empty and longer than six characters.
func ValidPhoneNumber(candidate string) bool {
	return len(candidate) >= minPhoneNumberLen
}

// PhoneManager finds the number a user's reminders are sent to.
type PhoneManager struct {
	store  PhoneStore
	logger *zap.Logger
}

func NewPhoneManager(store PhoneStore, logger *zap.Logger) *PhoneManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PhoneManager{store: store, logger: logger.Named("phone")}
}

// EnsureNumber returns the user's phone number. A valid number already in the
// session is used without touching the store; a number found in the store is
// cached into the session. found is false when the user has to be asked.
func (m *PhoneManager) EnsureNumber(ctx context.Context, sess *Session) (number string, found bool, err error) {
	if sess.Attributes == nil {
		sess.Attributes = &Attributes{}
	}
	if n := sess.Attributes.PhoneNumber; ValidPhoneNumber(n) {
		return n, true, nil
	}

	n, ok, err := m.store.GetPhoneNumber(ctx, sess.User.UserID)
	if err != nil {
		m.logger.Error("phone lookup failed", zap.String("userId", sess.User.UserID), zap.Error(err))
		return "", false, &StoreError{Op: "get phone number", Err: err}
	}
	if !ok || !ValidPhoneNumber(n) {
		return "", false, nil
	}
	sess.Attributes.PhoneNumber = n
	return n, true, nil
}

// ValidateAndStore persists candidate as the user's phone number. Invalid
// candidates are rejected before the store is called.
func (m *PhoneManager) ValidateAndStore(ctx context.Context, userID, candidate string) error {
	if !ValidPhoneNumber(candidate) {
		return ErrInvalidPhoneNumber
	}
	if err := m.store.PutPhoneNumber(ctx, userID, candidate); err != nil {
		m.logger.Error("phone update failed", zap.String("userId", userID), zap.Error(err))
		return &StoreError{Op: "put phone number", Err: err}
	}
	m.logger.Info("phone number updated", zap.String("userId", userID))
	return nil
}
