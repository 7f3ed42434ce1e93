package skill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	whenPrompt      = "<speak>When would you like to be reminded?</speak>"
	whatPrompt      = "What should I remind you to do?"
	phonePrompt     = "What phone number should I text your reminder to?"
	phoneReprompt   = "Please tell me your phone number."
	sendFailed      = "Sorry, sending the reminder failed."
	lookupFailed    = "Sorry, there was an error finding your information."
	canceledMessage = "Your Reminder was canceled"
	reminderCard    = "Reminder"
)

func (s *Skill) handleRemindMe(ctx context.Context, req *Request, sess *Session, resp *Response) (*Envelope, error) {
	action, attrs := Reconcile(req.Intent.Slots, sess.Attributes, RecognizedSlots)
	attrs.RequestID = req.RequestID
	attrs.Locale = req.Locale
	attrs.Timestamp = s.now(req).Format(time.RFC3339)
	sess.Attributes = attrs

	s.logger.Info("new reminder request",
		zap.String("reminder", action.Reminder),
		zap.String("duration", action.Duration),
		zap.String("day", action.Day),
		zap.String("time", action.Time))

	return s.createReminder(ctx, req, sess, resp, action)
}

// createReminder runs the reminder pipeline: prompt for anything missing,
// resolve the phone number, compute the target, persist, notify. The first
// step that cannot complete decides the reply.
func (s *Skill) createReminder(ctx context.Context, req *Request, sess *Session, resp *Response, action Action) (*Envelope, error) {
	if !action.HasTarget() {
		return resp.Ask(Markup(whenPrompt), Markup(whenPrompt))
	}
	if action.Reminder == "" {
		return resp.Ask(Plain(whatPrompt), Plain(whatPrompt))
	}

	number, found, err := s.phones.EnsureNumber(ctx, sess)
	if err != nil {
		return resp.Tell(Plain(lookupFailed))
	}
	if !found {
		return resp.Ask(Plain(phonePrompt), Plain(phoneReprompt))
	}

	now := s.now(req)
	d, err := ComputeDuration(action, now)
	if err != nil {
		s.logger.Info("unusable reminder target", zap.Error(err))
		sess.Attributes.Duration = ""
		sess.Attributes.Day = ""
		sess.Attributes.Time = ""
		if errors.Is(err, ErrTargetInPast) {
			return resp.Ask(Plain("That time has already passed. When would you like to be reminded?"), Markup(whenPrompt))
		}
		return resp.Ask(Plain("Sorry, I didn't catch when. When would you like to be reminded?"), Markup(whenPrompt))
	}

	rec := Reminder{
		RequestID: req.RequestID,
		UserID:    sess.User.UserID,
		Text:      action.Reminder,
		ExpiresAt: now.Add(d),
	}
	if err := s.reminders.PutReminder(ctx, rec); err != nil {
		serr := &StoreError{Op: "put reminder", Err: err}
		s.logger.Error("reminder not saved", zap.String("requestId", rec.RequestID), zap.Error(serr))
		return resp.Tell(Plain(sendFailed))
	}

	destination := s.target
	if destination == "" {
		destination = number
	}
	message := fmt.Sprintf("RemindMe: %q for %s", action.Reminder, HumanizeFromNow(d))
	if err := s.notifier.Send(ctx, destination, message); err != nil {
		nerr := &NotificationError{Destination: destination, Err: err}
		s.logger.Error("notification failed", zap.String("requestId", rec.RequestID), zap.Error(nerr))
		return resp.Tell(Plain(sendFailed))
	}

	done := fmt.Sprintf("Your reminder to %s is set for %s.", action.Reminder, describeWhen(action, d))
	s.logger.Info("reminder created",
		zap.String("requestId", rec.RequestID),
		zap.Time("expiresAt", rec.ExpiresAt))
	return resp.TellWithCard(Plain(done), reminderCard, done)
}

// describeWhen phrases the target the way the user gave it, followed by how
// far away it is.
func describeWhen(action Action, d time.Duration) string {
	fromNow := HumanizeFromNow(d)
	var when string
	switch {
	case action.Duration != "":
	case action.Time != "" && action.Day != "":
		when = action.Time + " on " + action.Day
	case action.Time != "":
		when = action.Time
	case action.Day != "":
		when = action.Day
	}
	if when == "" {
		return fromNow
	}
	return when + ", " + fromNow
}

func (s *Skill) handleSetPhoneNumber(ctx context.Context, req *Request, sess *Session, resp *Response) (*Envelope, error) {
	action, attrs := Reconcile(req.Intent.Slots, sess.Attributes, []SlotKey{SlotPhoneNumber})
	sess.Attributes = attrs

	if err := s.phones.ValidateAndStore(ctx, sess.User.UserID, action.PhoneNumber); err != nil {
		sess.Attributes.PhoneNumber = ""
		if errors.Is(err, ErrInvalidPhoneNumber) {
			return resp.Tell(Plain("Sorry, that doesn't look like a valid phone number."))
		}
		return resp.Tell(Plain("Sorry, there was an error saving your phone number."))
	}

	// Pick up a reminder that was waiting on the phone number.
	pending, _ := Reconcile(nil, sess.Attributes, RecognizedSlots)
	if pending.Reminder != "" && pending.HasTarget() {
		return s.createReminder(ctx, req, sess, resp, pending)
	}
	return resp.Tell(Plain(fmt.Sprintf("Thanks, I'll text your reminders to %s.", action.PhoneNumber)))
}

func (s *Skill) handleHelp(_ context.Context, _ *Request, _ *Session, resp *Response) (*Envelope, error) {
	return resp.Ask(Plain(`You can say "RemindMe at 10pm to wash the car."`), Plain("What can I help you with?"))
}

func (s *Skill) handleCancel(_ context.Context, _ *Request, _ *Session, resp *Response) (*Envelope, error) {
	return resp.Tell(Plain(canceledMessage))
}
