package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stellarlinkco/remindme/internal/skill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu        sync.Mutex
	reminders []skill.Reminder
	err       error
	calls     int
}

func (f *fakeSource) TakeDueReminders(_ context.Context, now time.Time) ([]skill.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var due, rest []skill.Reminder
	for _, r := range f.reminders {
		if !r.ExpiresAt.After(now) {
			due = append(due, r)
		} else {
			rest = append(rest, r)
		}
	}
	f.reminders = rest
	return due, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type sent struct {
	destination string
	message     string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, destination, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sent{destination, message})
	return nil
}

type fakePhones struct {
	numbers map[string]string
	err     error
}

func (f *fakePhones) GetPhoneNumber(_ context.Context, userID string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	n, ok := f.numbers[userID]
	return n, ok, nil
}

func (f *fakePhones) PutPhoneNumber(context.Context, string, string) error { return nil }

func reminder(id, user, text string, at time.Time) skill.Reminder {
	return skill.Reminder{RequestID: id, UserID: user, Text: text, ExpiresAt: at}
}

func TestSweep_DeliversDueReminders(t *testing.T) {
	source := &fakeSource{reminders: []skill.Reminder{
		reminder("r1", "u1", "wash the car", testNow.Add(-time.Minute)),
		reminder("r2", "u2", "call mom", testNow),
		reminder("r3", "u1", "later", testNow.Add(time.Hour)),
	}}
	notifier := &fakeNotifier{}
	phones := &fakePhones{numbers: map[string]string{"u1": "+15550001", "u2": "+15550002"}}

	var delivered []string
	s := NewService(source, notifier, Options{
		Phones: phones,
		Clock:  func() time.Time { return testNow },
		OnDelivery: func(r skill.Reminder, err error) {
			assert.NoError(t, err)
			delivered = append(delivered, r.RequestID)
		},
	})

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"r1", "r2"}, delivered)
	assert.Equal(t, []sent{
		{"+15550001", "Reminder: wash the car"},
		{"+15550002", "Reminder: call mom"},
	}, notifier.sent)

	n, err = s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "taken reminders are not delivered twice")
}

func TestSweep_ConfiguredTarget(t *testing.T) {
	source := &fakeSource{reminders: []skill.Reminder{reminder("r1", "u1", "stretch", testNow)}}
	notifier := &fakeNotifier{}
	s := NewService(source, notifier, Options{
		Target: "42",
		Phones: &fakePhones{err: errors.New("must not be called")},
		Clock:  func() time.Time { return testNow },
	})

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []sent{{"42", "Reminder: stretch"}}, notifier.sent)
}

func TestSweep_Failures(t *testing.T) {
	t.Run("source error", func(t *testing.T) {
		s := NewService(&fakeSource{err: errors.New("disk full")}, &fakeNotifier{}, Options{})
		_, err := s.Sweep(context.Background())
		assert.ErrorContains(t, err, "disk full")
	})

	t.Run("missing phone number", func(t *testing.T) {
		source := &fakeSource{reminders: []skill.Reminder{reminder("r1", "u9", "x", testNow)}}
		var got error
		s := NewService(source, &fakeNotifier{}, Options{
			Phones:     &fakePhones{numbers: map[string]string{}},
			Clock:      func() time.Time { return testNow },
			OnDelivery: func(_ skill.Reminder, err error) { got = err },
		})
		n, err := s.Sweep(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.ErrorContains(t, got, "no phone number")
	})

	t.Run("phone lookup error", func(t *testing.T) {
		source := &fakeSource{reminders: []skill.Reminder{reminder("r1", "u1", "x", testNow)}}
		var got error
		s := NewService(source, &fakeNotifier{}, Options{
			Phones:     &fakePhones{err: errors.New("locked")},
			Clock:      func() time.Time { return testNow },
			OnDelivery: func(_ skill.Reminder, err error) { got = err },
		})
		_, err := s.Sweep(context.Background())
		require.NoError(t, err)
		var storeErr *skill.StoreError
		assert.ErrorAs(t, got, &storeErr)
	})

	t.Run("notifier error", func(t *testing.T) {
		source := &fakeSource{reminders: []skill.Reminder{reminder("r1", "u1", "x", testNow)}}
		var got error
		s := NewService(source, &fakeNotifier{err: errors.New("429")}, Options{
			Target:     "42",
			Clock:      func() time.Time { return testNow },
			OnDelivery: func(_ skill.Reminder, err error) { got = err },
		})
		n, err := s.Sweep(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
		var notifyErr *skill.NotificationError
		require.ErrorAs(t, got, &notifyErr)
		assert.Equal(t, "42", notifyErr.Destination)
	})

	t.Run("no target and no phones", func(t *testing.T) {
		source := &fakeSource{reminders: []skill.Reminder{reminder("r1", "u1", "x", testNow)}}
		var got error
		s := NewService(source, &fakeNotifier{}, Options{
			Clock:      func() time.Time { return testNow },
			OnDelivery: func(_ skill.Reminder, err error) { got = err },
		})
		_, err := s.Sweep(context.Background())
		require.NoError(t, err)
		assert.Error(t, got)
	})
}

func TestService_StartStop(t *testing.T) {
	source := &fakeSource{}
	s := NewService(source, &fakeNotifier{}, Options{Interval: time.Second})

	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()), "second start fails")

	assert.Eventually(t, func() bool { return source.callCount() > 0 }, 3*time.Second, 50*time.Millisecond)

	s.Stop()
	s.Stop()
}

func TestService_StopsWithContext(t *testing.T) {
	s := NewService(&fakeSource{}, &fakeNotifier{}, Options{Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.cron == nil
	}, time.Second, 10*time.Millisecond)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
}
