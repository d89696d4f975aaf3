package notify

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	Logger "github.com/neurocrypto/newsforge/utils/log"
)

// TelegramNotifier delivers alerts to the project administrator's chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramNotifier(token string, adminChatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramNotifier{bot: bot, chatID: adminChatID}, nil
}

func (n *TelegramNotifier) Notify(message string) error {
	msg := tgbotapi.NewMessage(n.chatID, message)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		Logger.Log.Error("fail to send admin alert: ", err)
		return err
	}
	return nil
}
