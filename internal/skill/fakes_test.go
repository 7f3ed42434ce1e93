package skill

import (
	"context"
	"sync"
)

type fakePhoneStore struct {
	mu      sync.Mutex
	numbers map[string]string
	getErr  error
	putErr  error
	gets    int
	puts    int
}

func newFakePhoneStore() *fakePhoneStore {
	return &fakePhoneStore{numbers: make(map[string]string)}
}

func (f *fakePhoneStore) GetPhoneNumber(_ context.Context, userID string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return "", false, f.getErr
	}
	n, ok := f.numbers[userID]
	return n, ok, nil
}

func (f *fakePhoneStore) PutPhoneNumber(_ context.Context, userID, number string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	f.numbers[userID] = number
	return nil
}

type fakeReminderStore struct {
	mu        sync.Mutex
	reminders []Reminder
	err       error
}

func (f *fakeReminderStore) PutReminder(_ context.Context, r Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.reminders = append(f.reminders, r)
	return nil
}

type sentMessage struct {
	destination string
	message     string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, destination, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{destination: destination, message: message})
	return nil
}

type panickingReminderStore struct{}

func (panickingReminderStore) PutReminder(context.Context, Reminder) error {
	panic("reminder table corrupted")
}
