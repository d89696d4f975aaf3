// Package bot is the subscriber-facing Telegram surface: /start lets a user
// pick the persona whose articles they want, and finished digest archives
// are delivered back through the same bot.
package bot

import (
	"context"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/neurocrypto/newsforge/model"
	Logger "github.com/neurocrypto/newsforge/utils/log"
	"github.com/pkg/errors"
)

// SubscriberStore is the bot's view of the database.
type SubscriberStore interface {
	Personas() ([]model.Persona, error)
	PersonaByID(personaID string) (model.Persona, error)
	PersonaWeekPlan(personaID string, weekStart string) (map[string]int, error)
	UpsertUser(userID string, username string) error
	SetUserPersona(userID string, personaID string) error
}

// telegramAPI is the slice of tgbotapi.BotAPI the handlers use. Tests
// substitute a fake.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Config struct {
	Name  string
	Token string
	// UpdateTimeout is the long-poll timeout in seconds.
	UpdateTimeout int
}

type Bot struct {
	config Config
	api    telegramAPI
	tg     *tgbotapi.BotAPI
	store  SubscriberStore
	now    func() time.Time
}

func NewBot(config Config, store SubscriberStore) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(config.Token)
	if err != nil {
		return nil, errors.Wrap(err, "fail to authorize telegram bot")
	}
	if config.UpdateTimeout == 0 {
		config.UpdateTimeout = 60
	}
	return &Bot{config: config, api: api, tg: api, store: store, now: time.Now}, nil
}

// RunModule long-polls Telegram until the context is cancelled.
func (b *Bot) RunModule(ctx context.Context) error {
	Logger.Log.Infof("bot authorized as %s", b.tg.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.config.UpdateTimeout
	updates := b.tg.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		b.tg.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(update)
	}
	return nil
}

func (b *Bot) Name() string {
	return b.config.Name
}

// SendDigest ships one finished archive to its user. Satisfies the
// delivery Courier.
func (b *Bot) SendDigest(userID string, zipPath string) error {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "user id %q is not a chat id", userID)
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(zipPath))
	doc.Caption = "Your daily digest is ready."
	if _, err := b.api.Send(doc); err != nil {
		return errors.Wrapf(err, "fail to deliver digest to user %s", userID)
	}
	return nil
}
