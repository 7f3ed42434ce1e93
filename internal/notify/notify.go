package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stellarlinkco/remindme/internal/config"
	"github.com/stellarlinkco/remindme/internal/skill"
	"go.uber.org/zap"
)

// Log only writes notifications to the log. It is used when no real channel
// is configured.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger.Named("notify")}
}

func (l *Log) Send(_ context.Context, destination, message string) error {
	l.logger.Info("notification", zap.String("destination", destination), zap.String("message", message))
	return nil
}

// Retrying retries a failed send with exponential backoff.
type Retrying struct {
	inner      skill.Notifier
	maxTries   uint
	initial    time.Duration
	maxElapsed time.Duration
	logger     *zap.Logger
}

func NewRetrying(inner skill.Notifier, maxTries uint, logger *zap.Logger) *Retrying {
	if maxTries == 0 {
		maxTries = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrying{
		inner:      inner,
		maxTries:   maxTries,
		initial:    500 * time.Millisecond,
		maxElapsed: 30 * time.Second,
		logger:     logger.Named("notify"),
	}
}

// WithMaxElapsed returns a copy of r that stops retrying after d.
func (r *Retrying) WithMaxElapsed(d time.Duration) *Retrying {
	c := *r
	c.maxElapsed = d
	return &c
}

func (r *Retrying) Send(ctx context.Context, destination, message string) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := r.inner.Send(ctx, destination, message)
		if err == nil {
			return struct{}{}, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return struct{}{}, backoff.Permanent(err)
		}
		r.logger.Warn("send failed", zap.Int("attempt", attempt), zap.Error(err))
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.maxTries),
		backoff.WithMaxElapsedTime(r.maxElapsed),
	)
	if err != nil {
		return fmt.Errorf("after %d attempts: %w", attempt, err)
	}
	return nil
}

// New builds the notifier described by cfg: Telegram when enabled, the log
// otherwise, wrapped with retries. Telegram delivers to a chat id, so it
// requires cfg.Target.
func New(cfg config.NotifyConfig, logger *zap.Logger) (*Retrying, error) {
	var inner skill.Notifier
	if cfg.Telegram.Enabled {
		if cfg.Target == "" {
			return nil, errors.New("telegram notifier requires notify.target (chat id)")
		}
		tg, err := NewTelegram(cfg.Telegram, logger)
		if err != nil {
			return nil, fmt.Errorf("init telegram notifier: %w", err)
		}
		inner = tg
	} else {
		inner = NewLog(logger)
	}
	return NewRetrying(inner, uint(cfg.Retries), logger), nil
}
