package main

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Filing reminders: chats that opted in with /reminders get nagged once per
// month while any firm still has no filing on record for the previous month.

// previousMonthToken returns the month token for the month before now.
func previousMonthToken(now time.Time) string {
	idx := int(now.Month()) - 2
	if idx < 0 {
		idx = 11
	}
	return monthTokens[idx]
}

func doSendReminders(store *Store, bot sender, now time.Time) {
	if !config.ReminderAfter.IsTimeAfter(now) {
		return
	}
	// a zero upper bound means no quiet hours are configured
	if config.ReminderBefore != (TimeOfDay{}) && !config.ReminderBefore.IsTimeBefore(now) {
		return
	}
	month := previousMonthToken(now)
	missing := false
	for _, firm := range store.AllFirms() {
		if !store.HasAnyFilingFor(firm.STIR, month) {
			missing = true
			break
		}
	}
	if !missing {
		return
	}
	for _, chat := range store.ReminderChats() {
		if chat.LastNotifiedMonth == month {
			continue
		}
		lang := store.UserLanguage(chat.TelegramChatID)
		text := getText(lang, "reminder_text", map[string]string{
			"oy": getMonthName(lang, month),
		})
		if _, err := bot.Send(tgbotapi.NewMessage(chat.TelegramChatID, text)); err != nil {
			logrus.WithError(err).WithField("chat_id", chat.TelegramChatID).Error("sending reminder")
			continue
		}
		if err := store.MarkChatNotified(chat.TelegramChatID, month); err != nil {
			logrus.WithError(err).WithField("chat_id", chat.TelegramChatID).Error("marking chat notified")
		}
	}
}

func runRemindersLoop(store *Store, bot sender) {
	dur, err := time.ParseDuration(config.ReminderInterval)
	if err != nil || dur < time.Second {
		logrus.Fatalf("invalid reminder interval: %v", config.ReminderInterval)
	}
	for {
		logrus.Debug("running reminders loop")
		doSendReminders(store, bot, time.Now())
		time.Sleep(dur)
	}
}
