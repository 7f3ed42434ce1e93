package skill

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// intentHandler answers one intent. It returns the envelope to send back, or
// an error that fails the whole request.
type intentHandler func(ctx context.Context, req *Request, sess *Session, resp *Response) (*Envelope, error)

type Options struct {
	// AppID is the expected caller application id. Empty skips the check.
	AppID string
	// NotifyTarget is a fixed destination for every notification. Empty
	// means the user's own phone number.
	NotifyTarget string

	Phones    PhoneStore
	Reminders ReminderStore
	Notifier  Notifier
	Logger    *zap.Logger
	// Clock is used when an event carries no timestamp. Defaults to time.Now.
	Clock func() time.Time
}

// Skill routes platform events to the reminder handlers.
type Skill struct {
	appID     string
	target    string
	phones    *PhoneManager
	reminders ReminderStore
	notifier  Notifier
	clock     func() time.Time
	logger    *zap.Logger
	intents   map[IntentName]intentHandler
}

func New(opts Options) *Skill {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	s := &Skill{
		appID:     opts.AppID,
		target:    opts.NotifyTarget,
		phones:    NewPhoneManager(opts.Phones, logger),
		reminders: opts.Reminders,
		notifier:  opts.Notifier,
		clock:     clock,
		logger:    logger.Named("dispatcher"),
	}
	s.intents = map[IntentName]intentHandler{
		RemindMeIntent:       s.handleRemindMe,
		SetPhoneNumberIntent: s.handleSetPhoneNumber,
		HelpIntent:           s.handleHelp,
		StopIntent:           s.handleCancel,
		CancelIntent:         s.handleCancel,
	}
	return s
}

// Intents lists the registered intent names.
func (s *Skill) Intents() []IntentName {
	names := make([]IntentName, 0, len(s.intents))
	for name := range s.intents {
		names = append(names, name)
	}
	return names
}

// Handles reports whether name has a registered handler.
func (s *Skill) Handles(name IntentName) bool {
	_, ok := s.intents[name]
	return ok
}

// Dispatch handles one event. A nil envelope with a nil error means the
// platform expects no reply (session ended). Any error means the request
// failed as a whole and no spoken reply is produced.
func (s *Skill) Dispatch(ctx context.Context, ev *Event) (env *Envelope, err error) {
	if ev == nil || ev.Session == nil {
		return nil, ErrMissingSession
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
		if err != nil {
			s.logger.Error("dispatch failed",
				zap.String("requestId", ev.Request.RequestID),
				zap.String("type", string(ev.Request.Type)),
				zap.Error(err))
		}
	}()

	sess := ev.Session
	if s.appID != "" && sess.Application.ApplicationID != s.appID {
		s.logger.Warn("application id mismatch",
			zap.String("got", sess.Application.ApplicationID),
			zap.String("want", s.appID))
		return nil, ErrAuthorization
	}

	if sess.Attributes == nil {
		sess.Attributes = &Attributes{}
	}
	if sess.New {
		s.onSessionStarted(&ev.Request, sess)
	}

	switch ev.Request.Type {
	case LaunchRequest:
		return s.onLaunch(&ev.Request, sess)
	case IntentRequest:
		return s.onIntent(ctx, &ev.Request, sess)
	case SessionEndedRequest:
		s.onSessionEnded(&ev.Request, sess)
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedRequest, ev.Request.Type)
	}
}

func (s *Skill) onSessionStarted(req *Request, sess *Session) {
	s.logger.Info("session started",
		zap.String("requestId", req.RequestID),
		zap.String("sessionId", sess.SessionID))
}

func (s *Skill) onSessionEnded(req *Request, sess *Session) {
	s.logger.Info("session ended",
		zap.String("requestId", req.RequestID),
		zap.String("sessionId", sess.SessionID),
		zap.String("reason", req.Reason))
}

func (s *Skill) onLaunch(req *Request, sess *Session) (*Envelope, error) {
	s.logger.Info("launch",
		zap.String("requestId", req.RequestID),
		zap.String("sessionId", sess.SessionID))
	return NewResponse(sess).AskWithCard(
		Plain("Welcome to Remind Me. What would you like to be reminded about?"),
		Plain(`You can say "RemindMe at 10pm to wash the car."`),
		"Remind Me", `Try "RemindMe at 10pm to wash the car."`,
	)
}

func (s *Skill) onIntent(ctx context.Context, req *Request, sess *Session) (*Envelope, error) {
	if req.Intent == nil {
		return nil, fmt.Errorf("%w: intent request without intent", ErrUnsupportedIntent)
	}
	handler, ok := s.intents[req.Intent.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedIntent, req.Intent.Name)
	}
	s.logger.Info("dispatch intent",
		zap.String("intent", string(req.Intent.Name)),
		zap.String("requestId", req.RequestID),
		zap.String("sessionId", sess.SessionID))
	return handler(ctx, req, sess, NewResponse(sess))
}

// now is the instant a request was made, falling back to the clock.
func (s *Skill) now(req *Request) time.Time {
	if !req.Timestamp.IsZero() {
		return req.Timestamp
	}
	return s.clock()
}
