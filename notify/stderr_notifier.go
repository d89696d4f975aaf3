package notify

import (
	Logger "github.com/neurocrypto/newsforge/utils/log"
)

// StdErrNotifier is the development stand-in for the real alert channels.
type StdErrNotifier struct{}

func NewStdErrNotifier() *StdErrNotifier {
	return &StdErrNotifier{}
}

func (n *StdErrNotifier) Notify(message string) error {
	Logger.Log.Warn("=== admin alert === ", message)
	return nil
}
