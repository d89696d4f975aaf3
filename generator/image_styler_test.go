package generator

import (
	"context"
	"testing"
	"time"

	"github.com/neurocrypto/newsforge/ai"
	"github.com/neurocrypto/newsforge/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStylerStore struct {
	personas map[string]string
	styles   map[string]string
}

func (f *fakeStylerStore) PersonasByCode() (map[string]string, error) {
	return f.personas, nil
}

func (f *fakeStylerStore) UpdatePersonaImageStyle(personaID string, style string) error {
	f.styles[personaID] = style
	return nil
}

func newTestStyler(s *fakeStylerStore, client ai.TextClient, n notify.Notifier) *ImageStyler {
	pool := ai.NewCredentialPool([]ai.Credential{{Name: "KEY_1", Key: "k1"}}, time.Second)
	return NewImageStyler(s, pool, func(ai.Credential) ai.TextClient { return client }, n, "art director prompt")
}

func TestImageStylerUpdatesKnownPersonas(t *testing.T) {
	s := &fakeStylerStore{
		personas: map[string]string{"main": "p-main", "t1": "p-t1"},
		styles:   map[string]string{},
	}
	client := &ai.FakeTextClient{Responses: []string{`[
		{"persona_code": "main", "image_prompt_style": "neon noir"},
		{"persona_code": "t1", "image_prompt_style": "paper collage"},
		{"persona_code": "ghost", "image_prompt_style": "never lands"}
	]`}}
	n := notify.NewFakeNotifier()

	updated, err := newTestStyler(s, client, n).Run(context.Background())

	require.Nil(t, err)
	assert.Equal(t, 2, updated)
	assert.Equal(t, "neon noir", s.styles["p-main"])
	assert.Equal(t, "paper collage", s.styles["p-t1"])
	assert.Empty(t, n.Messages)
}

func TestImageStylerTotalFailureKeepsOldStyles(t *testing.T) {
	s := &fakeStylerStore{personas: map[string]string{"main": "p-main"}, styles: map[string]string{}}
	client := &ai.FakeTextClient{Err: assert.AnError}
	n := notify.NewFakeNotifier()

	updated, err := newTestStyler(s, client, n).Run(context.Background())

	require.Nil(t, err)
	assert.Equal(t, 0, updated)
	assert.Empty(t, s.styles)
	require.Len(t, n.Messages, 1)
	assert.Contains(t, n.Messages[0], "Yesterday's styles")
}

func TestImageStylerSkipsEntriesWithoutAStyle(t *testing.T) {
	s := &fakeStylerStore{personas: map[string]string{"main": "p-main"}, styles: map[string]string{}}
	client := &ai.FakeTextClient{Responses: []string{`[{"persona_code": "main", "image_prompt_style": ""}]`}}
	n := notify.NewFakeNotifier()

	updated, err := newTestStyler(s, client, n).Run(context.Background())

	require.Nil(t, err)
	assert.Equal(t, 0, updated)
	assert.Empty(t, s.styles)
}
