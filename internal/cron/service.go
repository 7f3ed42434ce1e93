package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
	"github.com/stellarlinkco/remindme/internal/skill"
	"go.uber.org/zap"
)

// DueSource hands out reminders whose time has come. Returned reminders are
// removed from the source.
type DueSource interface {
	TakeDueReminders(ctx context.Context, now time.Time) ([]skill.Reminder, error)
}

type Options struct {
	Interval time.Duration
	// Target is a fixed destination; when empty the user's phone number is looked up.
	Target string
	Phones skill.PhoneStore
	Logger *zap.Logger
	Clock  func() time.Time
	// OnDelivery is called after every delivery attempt.
	OnDelivery func(r skill.Reminder, err error)
}

// Service periodically delivers due reminders through a notifier.
type Service struct {
	source   DueSource
	notifier skill.Notifier
	opts     Options
	logger   *zap.Logger

	mu     sync.Mutex
	cron   *rcron.Cron
	cancel context.CancelFunc
	stopCh chan struct{}
}

func NewService(source DueSource, notifier skill.Notifier, opts Options) *Service {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source:   source,
		notifier: notifier,
		opts:     opts,
		logger:   logger.Named("scheduler"),
	}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("scheduler already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	stopCh := make(chan struct{})

	c := rcron.New(
		rcron.WithSeconds(),
		rcron.WithChain(rcron.SkipIfStillRunning(rcron.PrintfLogger(zap.NewStdLog(s.logger)))),
	)
	spec := fmt.Sprintf("@every %s", s.opts.Interval)
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Sweep(runCtx); err != nil {
			s.logger.Warn("sweep failed", zap.Error(err))
		}
	}); err != nil {
		cancel()
		return fmt.Errorf("register sweep %q: %w", spec, err)
	}

	s.cron = c
	s.cancel = cancel
	s.stopCh = stopCh
	c.Start()
	s.logger.Info("started", zap.Duration("interval", s.opts.Interval))

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stopCh:
		}
	}()

	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	c := s.cron
	cancel := s.cancel
	stopCh := s.stopCh
	s.cron = nil
	s.cancel = nil
	s.stopCh = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	close(stopCh)

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		s.logger.Warn("stop timeout waiting for running sweep")
	}
	s.logger.Info("stopped")
}

// Sweep delivers every reminder that is due now and returns how many were sent.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	due, err := s.source.TakeDueReminders(ctx, s.opts.Clock())
	if err != nil {
		return 0, fmt.Errorf("take due reminders: %w", err)
	}

	sent := 0
	for _, r := range due {
		err := s.deliver(ctx, r)
		if err != nil {
			s.logger.Error("delivery failed",
				zap.String("requestId", r.RequestID),
				zap.String("userId", r.UserID),
				zap.Error(err))
		} else {
			sent++
			s.logger.Info("delivered",
				zap.String("requestId", r.RequestID),
				zap.String("reminder", truncate(r.Text, 100)))
		}
		if s.opts.OnDelivery != nil {
			s.opts.OnDelivery(r, err)
		}
	}
	return sent, nil
}

func (s *Service) deliver(ctx context.Context, r skill.Reminder) error {
	destination := s.opts.Target
	if destination == "" {
		if s.opts.Phones == nil {
			return errors.New("no notification target configured")
		}
		n, found, err := s.opts.Phones.GetPhoneNumber(ctx, r.UserID)
		if err != nil {
			return &skill.StoreError{Op: "get phone number", Err: err}
		}
		if !found {
			return fmt.Errorf("no phone number for user %s", r.UserID)
		}
		destination = n
	}
	if err := s.notifier.Send(ctx, destination, "Reminder: "+r.Text); err != nil {
		return &skill.NotificationError{Destination: destination, Err: err}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
