package notify

import (
	Logger "github.com/neurocrypto/newsforge/utils/log"
	"github.com/slack-go/slack"
)

// SlackNotifier mirrors alerts into an ops Slack channel. Secondary to the
// Telegram channel, typically enabled only in prod.
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

func NewSlackNotifier(token string, channel string) *SlackNotifier {
	return &SlackNotifier{client: slack.New(token), channel: channel}
}

func (n *SlackNotifier) Notify(message string) error {
	_, _, err := n.client.PostMessage(n.channel, slack.MsgOptionText(message, false))
	if err != nil {
		Logger.Log.Error("fail to post slack alert: ", err)
	}
	return err
}
