package app

import (
	"os"

	"github.com/neurocrypto/newsforge/app_config"
	"github.com/neurocrypto/newsforge/notify"
	Logger "github.com/neurocrypto/newsforge/utils/log"
)

// NewNotifier picks the admin alert channels from the environment: Telegram
// when the bot token and admin chat are configured, Slack as an optional
// mirror, stderr when nothing else is available.
func NewNotifier(config app_config.AppConfig) notify.Notifier {
	targets := []notify.Notifier{}

	if token := os.Getenv(config.TELEGRAM_BOT_TOKEN_ENV); token != "" && config.TELEGRAM_ADMIN_CHAT_ID != 0 {
		n, err := notify.NewTelegramNotifier(token, config.TELEGRAM_ADMIN_CHAT_ID)
		if err != nil {
			Logger.Log.Error("cannot set up telegram alerts: ", err)
		} else {
			targets = append(targets, n)
		}
	}
	if token := os.Getenv("SLACK_TOKEN"); token != "" && os.Getenv("SLACK_ALERT_CHANNEL") != "" {
		targets = append(targets, notify.NewSlackNotifier(token, os.Getenv("SLACK_ALERT_CHANNEL")))
	}

	switch len(targets) {
	case 0:
		return notify.NewStdErrNotifier()
	case 1:
		return targets[0]
	default:
		return notify.NewFanout(targets...)
	}
}
