package bot

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/neurocrypto/newsforge/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	sent     []tgbotapi.Chattable
	answered []string
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if callback, ok := c.(tgbotapi.CallbackConfig); ok {
		f.answered = append(f.answered, callback.CallbackQueryID)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type fakeSubscriberStore struct {
	personas      []model.Persona
	weekPlans     map[string]map[string]int
	users         map[string]string
	subscriptions map[string]string
	planWeekStart string
}

func newFakeSubscriberStore() *fakeSubscriberStore {
	return &fakeSubscriberStore{
		personas: []model.Persona{
			{Id: "p-main", Code: "main", Name: "The Professor", Description: "Evergreen educational content."},
			{Id: "p-t1", Code: "t1", Name: "The Strategist", Description: "Reacts to market volatility."},
		},
		weekPlans:     map[string]map[string]int{},
		users:         map[string]string{},
		subscriptions: map[string]string{},
	}
}

func (f *fakeSubscriberStore) Personas() ([]model.Persona, error) {
	return f.personas, nil
}

func (f *fakeSubscriberStore) PersonaByID(personaID string) (model.Persona, error) {
	for _, p := range f.personas {
		if p.Id == personaID {
			return p, nil
		}
	}
	return model.Persona{}, errors.New("persona not found")
}

func (f *fakeSubscriberStore) PersonaWeekPlan(personaID string, weekStart string) (map[string]int, error) {
	f.planWeekStart = weekStart
	return f.weekPlans[personaID], nil
}

func (f *fakeSubscriberStore) UpsertUser(userID string, username string) error {
	if _, exists := f.users[userID]; !exists {
		f.users[userID] = username
	}
	return nil
}

func (f *fakeSubscriberStore) SetUserPersona(userID string, personaID string) error {
	f.subscriptions[userID] = personaID
	return nil
}

func newTestBot(store *fakeSubscriberStore) (*Bot, *fakeAPI) {
	api := &fakeAPI{}
	b := &Bot{
		config: Config{Name: "bot"},
		api:    api,
		store:  store,
		now:    func() time.Time { return time.Date(2021, 12, 15, 9, 0, 0, 0, time.UTC) },
	}
	return b, api
}

func startMessage() *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: 42, UserName: "alice"},
		Chat:      &tgbotapi.Chat{ID: 42},
		Text:      "/start",
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
	}
}

func callback(data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		From: &tgbotapi.User{ID: 42, UserName: "alice"},
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: 7,
			Chat:      &tgbotapi.Chat{ID: 42},
		},
	}
}

func TestStartRegistersUserAndShowsPersonaKeyboard(t *testing.T) {
	store := newFakeSubscriberStore()
	b, api := newTestBot(store)

	b.handleCommand(startMessage())

	assert.Equal(t, "alice", store.users["42"])
	require.Len(t, api.sent, 1)

	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)

	keyboard, ok := msg.ReplyMarkup.(*tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, keyboard.InlineKeyboard, 2)
	assert.Equal(t, "The Professor", keyboard.InlineKeyboard[0][0].Text)
	assert.Equal(t, "select_persona_p-main", *keyboard.InlineKeyboard[0][0].CallbackData)
}

func TestStartDoesNotOverwriteAnExistingUser(t *testing.T) {
	store := newFakeSubscriberStore()
	store.users["42"] = "original"
	b, _ := newTestBot(store)

	b.handleCommand(startMessage())

	assert.Equal(t, "original", store.users["42"])
}

func TestSelectShowsDescriptionAndWeekPlan(t *testing.T) {
	store := newFakeSubscriberStore()
	store.weekPlans["p-main"] = map[string]int{"defi": 3, "bitcoin": 2}
	b, api := newTestBot(store)

	b.handleCallback(callback("select_persona_p-main"))

	assert.Equal(t, []string{"cb-1"}, api.answered)
	// The test clock is Wednesday 2021-12-15; the plan week starts Monday.
	assert.Equal(t, "2021-12-13", store.planWeekStart)

	require.Len(t, api.sent, 1)
	edit, ok := api.sent[0].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Contains(t, edit.Text, "The Professor")
	assert.Contains(t, edit.Text, "Evergreen educational content.")
	assert.Contains(t, edit.Text, "bitcoin: 2")
	assert.Contains(t, edit.Text, "defi: 3")

	require.NotNil(t, edit.ReplyMarkup)
	row := edit.ReplyMarkup.InlineKeyboard[0]
	require.Len(t, row, 2)
	assert.Equal(t, "confirm_persona_p-main", *row[0].CallbackData)
	assert.Equal(t, "back_to_selection", *row[1].CallbackData)
}

func TestSelectWithoutAPlanSaysSo(t *testing.T) {
	store := newFakeSubscriberStore()
	b, api := newTestBot(store)

	b.handleCallback(callback("select_persona_p-t1"))

	require.Len(t, api.sent, 1)
	edit := api.sent[0].(tgbotapi.EditMessageTextConfig)
	assert.Contains(t, edit.Text, "not drawn up yet")
}

func TestConfirmStoresTheSubscription(t *testing.T) {
	store := newFakeSubscriberStore()
	b, api := newTestBot(store)

	b.handleCallback(callback("confirm_persona_p-t1"))

	assert.Equal(t, "p-t1", store.subscriptions["42"])
	require.Len(t, api.sent, 1)
	edit := api.sent[0].(tgbotapi.EditMessageTextConfig)
	assert.Contains(t, edit.Text, "The Strategist")
	assert.Contains(t, edit.Text, "saved")
}

func TestBackReturnsToTheSelectionList(t *testing.T) {
	store := newFakeSubscriberStore()
	b, api := newTestBot(store)

	b.handleCallback(callback("back_to_selection"))

	require.Len(t, api.sent, 1)
	edit, ok := api.sent[0].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	require.NotNil(t, edit.ReplyMarkup)
	assert.Len(t, edit.ReplyMarkup.InlineKeyboard, 2)
}

func TestSelectUnknownPersonaFailsSoftly(t *testing.T) {
	store := newFakeSubscriberStore()
	b, api := newTestBot(store)

	b.handleCallback(callback("select_persona_ghost"))

	require.Len(t, api.sent, 1)
	edit := api.sent[0].(tgbotapi.EditMessageTextConfig)
	assert.Contains(t, edit.Text, "no longer available")
}

func TestSendDigestRejectsANonNumericUserID(t *testing.T) {
	b, api := newTestBot(newFakeSubscriberStore())

	err := b.SendDigest("not-a-chat-id", "/tmp/digest.zip")

	assert.Error(t, err)
	assert.Empty(t, api.sent)
}

func TestSendDigestShipsTheArchive(t *testing.T) {
	b, api := newTestBot(newFakeSubscriberStore())

	err := b.SendDigest("42", "/tmp/alice_digest_2021-12-15.zip")

	require.NoError(t, err)
	require.Len(t, api.sent, 1)
	doc, ok := api.sent[0].(tgbotapi.DocumentConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), doc.ChatID)
}

func TestEveryCallbackIsAnswered(t *testing.T) {
	b, api := newTestBot(newFakeSubscriberStore())

	b.handleCallback(callback("back_to_selection"))
	b.handleCallback(callback("select_persona_p-main"))

	assert.Len(t, api.answered, 2)
}
