package notify

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type failingNotifier struct{}

func (failingNotifier) Notify(message string) error {
	return errors.New("channel down")
}

func TestFanoutReachesEveryChannel(t *testing.T) {
	first := NewFakeNotifier()
	second := NewFakeNotifier()

	err := NewFanout(first, second).Notify("hello")

	assert.NoError(t, err)
	assert.Equal(t, []string{"hello"}, first.Messages)
	assert.Equal(t, []string{"hello"}, second.Messages)
}

func TestFanoutKeepsGoingPastAFailedChannel(t *testing.T) {
	second := NewFakeNotifier()

	err := NewFanout(failingNotifier{}, second).Notify("hello")

	assert.Error(t, err)
	assert.Equal(t, []string{"hello"}, second.Messages)
}
