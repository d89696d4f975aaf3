package bot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/neurocrypto/newsforge/utils"
	Logger "github.com/neurocrypto/newsforge/utils/log"
)

const (
	callbackSelectPrefix  = "select_persona_"
	callbackConfirmPrefix = "confirm_persona_"
	callbackBack          = "back_to_selection"

	welcomeText   = "Welcome! Pick the voice your articles will be written in:"
	selectionText = "Pick the voice your articles will be written in:"
)

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	}
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	if msg.Command() != "start" || msg.From == nil {
		return
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	if err := b.store.UpsertUser(userID, msg.From.UserName); err != nil {
		Logger.Log.Error("fail to upsert user: ", err)
	}

	keyboard, err := b.selectionKeyboard()
	if err != nil {
		Logger.Log.Error("fail to build persona keyboard: ", err)
		return
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, welcomeText)
	reply.ReplyMarkup = keyboard
	if _, err := b.api.Send(reply); err != nil {
		Logger.Log.Error("fail to send welcome message: ", err)
	}
}

// handleCallback dispatches inline keyboard presses. Every press is
// answered so Telegram clears the client-side spinner.
func (b *Bot) handleCallback(query *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		Logger.Log.Error("fail to answer callback: ", err)
	}
	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	switch {
	case strings.HasPrefix(query.Data, callbackSelectPrefix):
		b.showConfirmation(chatID, messageID, strings.TrimPrefix(query.Data, callbackSelectPrefix))
	case strings.HasPrefix(query.Data, callbackConfirmPrefix):
		userID := strconv.FormatInt(query.From.ID, 10)
		b.confirmSelection(chatID, messageID, userID, strings.TrimPrefix(query.Data, callbackConfirmPrefix))
	case query.Data == callbackBack:
		b.backToSelection(chatID, messageID)
	}
}

// showConfirmation replaces the selection list with the persona's
// description, its plan for the current week, and confirm/back buttons.
func (b *Bot) showConfirmation(chatID int64, messageID int, personaID string) {
	persona, err := b.store.PersonaByID(personaID)
	if err != nil {
		b.editText(chatID, messageID, "This voice is no longer available.")
		return
	}

	weekStart := utils.DateKey(utils.WeekStart(b.now()))
	plan, err := b.store.PersonaWeekPlan(personaID, weekStart)
	if err != nil {
		Logger.Log.Error("fail to load persona week plan: ", err)
	}

	text := fmt.Sprintf("You picked: *%s*\n\n_%s_\n\n%s", persona.Name, persona.Description, formatWeekPlan(plan))
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.ReplyMarkup = confirmationKeyboard(personaID)
	if _, err := b.api.Send(edit); err != nil {
		Logger.Log.Error("fail to show confirmation: ", err)
	}
}

func (b *Bot) confirmSelection(chatID int64, messageID int, userID string, personaID string) {
	if err := b.store.SetUserPersona(userID, personaID); err != nil {
		Logger.Log.Error("fail to store subscription: ", err)
		b.editText(chatID, messageID, "Something went wrong, please try /start again.")
		return
	}

	name := "The picked voice"
	if persona, err := b.store.PersonaByID(personaID); err == nil {
		name = persona.Name
	}
	text := fmt.Sprintf("Done! Your choice is saved: *%s*.\n\nYour articles will be written in this voice.", name)
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		Logger.Log.Error("fail to confirm selection: ", err)
	}
}

func (b *Bot) backToSelection(chatID int64, messageID int) {
	keyboard, err := b.selectionKeyboard()
	if err != nil {
		Logger.Log.Error("fail to build persona keyboard: ", err)
		return
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, selectionText, *keyboard)
	if _, err := b.api.Send(edit); err != nil {
		Logger.Log.Error("fail to return to selection: ", err)
	}
}

func (b *Bot) editText(chatID int64, messageID int, text string) {
	if _, err := b.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		Logger.Log.Error("fail to edit message: ", err)
	}
}

// selectionKeyboard lists every persona, one button per row.
func (b *Bot) selectionKeyboard() (*tgbotapi.InlineKeyboardMarkup, error) {
	personas, err := b.store.Personas()
	if err != nil {
		return nil, err
	}
	rows := [][]tgbotapi.InlineKeyboardButton{}
	for _, p := range personas {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(p.Name, callbackSelectPrefix+p.Id),
		))
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &keyboard, nil
}

func confirmationKeyboard(personaID string) *tgbotapi.InlineKeyboardMarkup {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Confirm", callbackConfirmPrefix+personaID),
			tgbotapi.NewInlineKeyboardButtonData("Back", callbackBack),
		),
	)
	return &keyboard
}

func formatWeekPlan(plan map[string]int) string {
	if len(plan) == 0 {
		return "The plan for this week is not drawn up yet."
	}
	categories := make([]string, 0, len(plan))
	for category := range plan {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var sb strings.Builder
	sb.WriteString("Plan for this week:\n")
	for _, category := range categories {
		sb.WriteString(fmt.Sprintf("  - %s: %d\n", category, plan[category]))
	}
	return sb.String()
}
