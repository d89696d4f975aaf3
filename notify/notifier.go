package notify

// Notifier is the fire-and-forget admin alert channel. Implementations must
// be safe to call from any pipeline stage; a failing notifier never aborts
// its caller, which is why every call site ignores the returned error after
// logging it.
type Notifier interface {
	Notify(message string) error
}
