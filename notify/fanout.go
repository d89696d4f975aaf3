package notify

// Fanout forwards every alert to all configured channels. The first error
// is returned after all channels were attempted.
type Fanout struct {
	targets []Notifier
}

func NewFanout(targets ...Notifier) *Fanout {
	return &Fanout{targets: targets}
}

func (f *Fanout) Notify(message string) error {
	var firstErr error
	for _, target := range f.targets {
		if err := target.Notify(message); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
