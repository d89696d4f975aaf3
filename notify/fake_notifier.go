package notify

import "sync"

// FakeNotifier records every alert for inspection in tests.
type FakeNotifier struct {
	mu       sync.Mutex
	Messages []string

	// Err, when set, is returned from Notify to exercise the callers'
	// never-abort-on-notifier-failure contract.
	Err error
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

func (n *FakeNotifier) Notify(message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Messages = append(n.Messages, message)
	return n.Err
}
