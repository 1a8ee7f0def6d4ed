package main

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T) (*Controller, *Store, *fakeBot) {
	t.Helper()
	store := newTestStore(t)
	bot := &fakeBot{}
	controller := NewController(store, NewSessionStore(time.Minute), NewResolver(store, bot), bot)
	return controller, store, bot
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}}
}

func commandUpdate(userID int64, cmd string) tgbotapi.Update {
	u := textUpdate(userID, "/"+cmd)
	u.Message.Entities = []tgbotapi.MessageEntity{{
		Type: "bot_command", Offset: 0, Length: len(cmd) + 1,
	}}
	return u
}

func callbackUpdate(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{MessageID: 2, Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}}
}

func lastKeyboard(t *testing.T, bot *fakeBot) tgbotapi.InlineKeyboardMarkup {
	t.Helper()
	for i := len(bot.sent) - 1; i >= 0; i-- {
		if msg, ok := bot.sent[i].(tgbotapi.MessageConfig); ok {
			if kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); ok {
				return kb
			}
		}
	}
	t.Fatal("no keyboard sent")
	return tgbotapi.InlineKeyboardMarkup{}
}

func TestStartShowsLanguageKeyboard(t *testing.T) {
	c, _, bot := newTestController(t)
	c.HandleUpdate(commandUpdate(1, "start"))

	kb := lastKeyboard(t, bot)
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 2)
	assert.Equal(t, langCallback(langLatin), *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, stateAwaitLanguage, c.sessions.Get(1))
}

func TestLanguageSelectionPersists(t *testing.T) {
	c, store, bot := newTestController(t)
	c.HandleUpdate(commandUpdate(1, "start"))
	c.HandleUpdate(callbackUpdate(1, langCallback(langCyrillic)))

	assert.Equal(t, langCyrillic, store.UserLanguage(1))
	assert.Equal(t, stateIdle, c.sessions.Get(1))
	texts := bot.sentTexts()
	assert.True(t, containsText(texts, toCyrillic("Til muvaffaqiyatli")), "confirmation in the chosen script")
}

func TestLanguageSaveFailureRepliesNeutrally(t *testing.T) {
	c, store, bot := newTestController(t)
	require.NoError(t, store.db.Migrator().DropTable(&User{}))

	c.HandleUpdate(callbackUpdate(1, langCallback(langCyrillic)))

	texts := bot.sentTexts()
	require.Len(t, texts, 1)
	assert.True(t, containsText(texts, toCyrillic("qayta urinib")))
	assert.False(t, containsText(texts, toCyrillic("Noma'lum amal")))
}

func TestSearchFlowRejectsMalformedSTIR(t *testing.T) {
	for _, bad := range []string{"12345678", "1234567890", "12345678a", "abcdefghi"} {
		c, store, bot := newTestController(t)
		require.NoError(t, store.AddFirm(&Firm{STIR: "123456789", Name: "Firma"}))

		c.HandleUpdate(commandUpdate(1, "search_firma"))
		assert.Equal(t, stateAwaitSTIR, c.sessions.Get(1))

		c.HandleUpdate(textUpdate(1, bad))
		texts := bot.sentTexts()
		assert.True(t, containsText(texts, "9 raqamdan iborat"), "input %q", bad)
		assert.False(t, containsText(texts, "firma topilmadi"), "lookup must not run for %q", bad)
		// single attempt, back to idle
		assert.Equal(t, stateIdle, c.sessions.Get(1))
	}
}

func TestSearchFlowUnknownFirm(t *testing.T) {
	c, _, bot := newTestController(t)
	c.HandleUpdate(commandUpdate(1, "search_firma"))
	c.HandleUpdate(textUpdate(1, "999999999"))

	assert.True(t, containsText(bot.sentTexts(), "firma topilmadi"))
	assert.Equal(t, stateIdle, c.sessions.Get(1))
}

func TestSearchFlowFound(t *testing.T) {
	c, store, bot := newTestController(t)
	require.NoError(t, store.AddFirm(&Firm{STIR: "123456789", Name: "Olmazor Savdo MChJ"}))

	c.HandleUpdate(commandUpdate(1, "search_firma"))
	c.HandleUpdate(textUpdate(1, "123456789"))

	assert.True(t, containsText(bot.sentTexts(), "Olmazor Savdo MChJ"))
	assert.Equal(t, stateIdle, c.sessions.Get(1))
}

func TestIdleSTIRShowsCategoryKeyboard(t *testing.T) {
	c, store, bot := newTestController(t)
	require.NoError(t, store.AddFirm(&Firm{
		STIR: "123456789", Name: "Firma", TaxTypes: "daromad-yagona-qqs",
	}))

	c.HandleUpdate(textUpdate(1, "123456789"))

	kb := lastKeyboard(t, bot)
	var labels []string
	var data []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			labels = append(labels, btn.Text)
			data = append(data, *btn.CallbackData)
		}
	}
	assert.Len(t, labels, 3)
	assert.Contains(t, data, taxCallback(taxDaromad, "123456789"))
	assert.Contains(t, data, taxCallback(taxQQS, "123456789"))
}

func TestIdleSTIRUnknownFirm(t *testing.T) {
	c, _, bot := newTestController(t)
	c.HandleUpdate(textUpdate(1, "123456789"))
	assert.True(t, containsText(bot.sentTexts(), "STIR noto'g'ri"))
}

func TestTaxSelectionShowsSevenMonths(t *testing.T) {
	c, _, bot := newTestController(t)
	c.HandleUpdate(callbackUpdate(1, taxCallback(taxYagona, "123456789")))

	kb := lastKeyboard(t, bot)
	var buttons []tgbotapi.InlineKeyboardButton
	for _, row := range kb.InlineKeyboard {
		assert.LessOrEqual(t, len(row), 3)
		buttons = append(buttons, row...)
	}
	require.Len(t, buttons, 7)
	assert.Equal(t, "Yanvar", buttons[0].Text)
	assert.Equal(t, reportCallback(taxYagona, "123456789", "iyul"), *buttons[6].CallbackData)
}

func TestReportCallbackEmptyStore(t *testing.T) {
	c, _, bot := newTestController(t)
	c.HandleUpdate(callbackUpdate(1, reportCallback(taxDaromad, "123456789", "mart")))

	texts := bot.sentTexts()
	assert.True(t, containsText(texts, "fayli topilmadi"))
	assert.True(t, containsText(texts, "qo'lda kiritilgan hisobot topilmadi"))
	// back options keyboard closes the flow
	kb := lastKeyboard(t, bot)
	assert.NotEmpty(t, kb.InlineKeyboard)
}

func TestUndecodableCallbackFailsClosed(t *testing.T) {
	c, _, bot := newTestController(t)
	c.sessions.Set(1, stateAwaitSTIR)
	c.HandleUpdate(callbackUpdate(1, "soliq_daromad_123456789"))

	assert.True(t, containsText(bot.sentTexts(), "Noma'lum amal"))
	assert.Equal(t, stateAwaitSTIR, c.sessions.Get(1), "state untouched")
}

func TestTranslateFlow(t *testing.T) {
	c, _, bot := newTestController(t)
	c.HandleUpdate(commandUpdate(1, "translate_cyrillic"))
	assert.Equal(t, stateAwaitLatinText, c.sessions.Get(1))

	c.HandleUpdate(textUpdate(1, "salom"))
	assert.True(t, containsText(bot.sentTexts(), "салом"))
	assert.Equal(t, stateIdle, c.sessions.Get(1), "flow ends unconditionally")
}

func TestTranslateToLatinFlow(t *testing.T) {
	c, _, bot := newTestController(t)
	c.HandleUpdate(commandUpdate(1, "translate_latin"))
	assert.Equal(t, stateAwaitCyrillicText, c.sessions.Get(1))

	c.HandleUpdate(textUpdate(1, "салом"))
	assert.True(t, containsText(bot.sentTexts(), "salom"))
	assert.Equal(t, stateIdle, c.sessions.Get(1))
}

func TestCommandsWinOverStates(t *testing.T) {
	c, _, bot := newTestController(t)
	c.sessions.Set(1, stateAwaitSTIR)
	c.HandleUpdate(commandUpdate(1, "start"))
	// the start handler ran instead of the STIR validator
	assert.True(t, containsText(bot.sentTexts(), "Tilni tanlang"))
}

func TestRemindersToggle(t *testing.T) {
	c, store, bot := newTestController(t)
	c.HandleUpdate(commandUpdate(1, "reminders"))
	kb := lastKeyboard(t, bot)
	assert.NotEmpty(t, kb.InlineKeyboard)

	c.HandleUpdate(callbackUpdate(1, remindCallback(true)))
	assert.Len(t, store.ReminderChats(), 1)

	c.HandleUpdate(callbackUpdate(1, remindCallback(false)))
	assert.Empty(t, store.ReminderChats())
}

func TestCategoriesFor(t *testing.T) {
	assert.Equal(t, []string{taxDaromad, taxYagona, taxQQS}, categoriesFor("daromad-yagona-qqs"))
	assert.Equal(t, []string{taxDaromad, taxQQS}, categoriesFor("qqs-daromad"), "fixed vocabulary order")
	assert.Equal(t, []string{taxYagona}, categoriesFor("YAGONA"))
	assert.Equal(t, []string{taxDaromad, taxYagona}, categoriesFor(""), "empty mask defaults")
	assert.Equal(t, []string{taxDaromad, taxYagona}, categoriesFor("patent-aksiz"), "unknown mask defaults")
}

func TestButtonGrid(t *testing.T) {
	buttons := make([]tgbotapi.InlineKeyboardButton, 7)
	for i := range buttons {
		buttons[i] = tgbotapi.NewInlineKeyboardButtonData("b", "v1:restart")
	}
	kb := buttonGrid(buttons, 3)
	require.Len(t, kb.InlineKeyboard, 3)
	assert.Len(t, kb.InlineKeyboard[0], 3)
	assert.Len(t, kb.InlineKeyboard[2], 1)

	kb = buttonGrid(buttons[:2], 2)
	require.Len(t, kb.InlineKeyboard, 1)
}
