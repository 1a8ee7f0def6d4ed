package main

import (
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// botClient is the part of *tgbotapi.BotAPI the controller touches.
type botClient interface {
	sender
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Controller drives the per-user conversation. Inbound updates are matched
// against an explicit routing table built once at construction; the first
// matching route wins. Flow state lives in the session store, the language
// preference in the database.
type Controller struct {
	store    *Store
	sessions *SessionStore
	resolver *Resolver
	bot      botClient

	messageRoutes []messageRoute
}

type messageRoute struct {
	command string         // non-empty: matches /command
	state   flowState      // non-idle: matches the user's current flow state
	pattern *regexp.Regexp // non-nil: matches the message text
	handle  func(msg *tgbotapi.Message, lang string)
}

func NewController(store *Store, sessions *SessionStore, resolver *Resolver, bot botClient) *Controller {
	c := &Controller{
		store:    store,
		sessions: sessions,
		resolver: resolver,
		bot:      bot,
	}
	// Commands first (they work in any state, like the old bot's state='*'
	// handlers), then the in-flow text states, then the bare 9-digit STIR.
	c.messageRoutes = []messageRoute{
		{command: "start", handle: c.handleStart},
		{command: "translate_latin", handle: c.handleTranslateLatinCommand},
		{command: "translate_cyrillic", handle: c.handleTranslateCyrillicCommand},
		{command: "search_firma", handle: c.handleSearchFirmaCommand},
		{command: "reminders", handle: c.handleRemindersCommand},
		{state: stateAwaitLatinText, handle: c.handleLatinText},
		{state: stateAwaitCyrillicText, handle: c.handleCyrillicText},
		{state: stateAwaitSTIR, handle: c.handleSearchSTIR},
		{pattern: stirPattern, handle: c.handleFirmRequest},
	}
	return c
}

// HandleUpdate processes one inbound event. A panic in a handler is logged
// and dropped; one bad update must never take the bot down.
func (c *Controller) HandleUpdate(update tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			logrus.WithField("panic", rec).Error("recovered while handling update")
		}
	}()
	if update.CallbackQuery != nil {
		c.handleCallback(update.CallbackQuery)
		return
	}
	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}
	msg := update.Message
	lang := c.store.UserLanguage(msg.From.ID)
	logrus.WithFields(logrus.Fields{
		"user_id": msg.From.ID, "text": msg.Text,
	}).Info("message")
	state := c.sessions.Get(msg.From.ID)
	for _, route := range c.messageRoutes {
		if !route.matches(msg, state) {
			continue
		}
		route.handle(msg, lang)
		return
	}
}

func (r messageRoute) matches(msg *tgbotapi.Message, state flowState) bool {
	switch {
	case r.command != "":
		return msg.IsCommand() && msg.Command() == r.command
	case r.state != "" && r.state != stateIdle:
		return state == r.state
	case r.pattern != nil:
		return state == stateIdle && r.pattern.MatchString(strings.TrimSpace(msg.Text))
	default:
		return false
	}
}

func (c *Controller) handleCallback(cb *tgbotapi.CallbackQuery) {
	if _, err := c.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		logrus.WithError(err).Debug("answering callback query")
	}
	userID := cb.From.ID
	lang := c.store.UserLanguage(userID)
	logrus.WithFields(logrus.Fields{"user_id": userID, "data": cb.Data}).Info("callback")

	token, err := decodeCallback(cb.Data)
	if err != nil {
		// Fail closed: a token we cannot decode gets a generic reply and
		// leaves the flow state alone.
		logrus.WithError(err).WithField("data", cb.Data).Warn("undecodable callback")
		c.reply(chatOf(cb), getText(lang, "unknown_action", nil), "")
		return
	}
	switch token.Kind {
	case cbLang:
		c.handleLanguageSelected(cb, token)
	case cbTax:
		c.handleTaxSelected(cb, token, lang)
	case cbReport:
		c.handleReportRequested(cb, token, lang)
	case cbRestart:
		c.reply(chatOf(cb), getText(lang, "welcome", nil), "")
	case cbRemind:
		c.handleReminderToggle(cb, token, lang)
	}
}

func chatOf(cb *tgbotapi.CallbackQuery) int64 {
	if cb.Message != nil {
		return cb.Message.Chat.ID
	}
	return cb.From.ID
}

func (c *Controller) handleStart(msg *tgbotapi.Message, _ string) {
	keyboard := buttonGrid([]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("Oʻzbek (Lotin)", langCallback(langLatin)),
		tgbotapi.NewInlineKeyboardButtonData("Ўзбек (Кирил)", langCallback(langCyrillic)),
	}, 2)
	out := tgbotapi.NewMessage(msg.Chat.ID, getText(langLatin, "select_language", nil))
	out.ReplyMarkup = keyboard
	c.sendLogged(out)
	c.sessions.Set(msg.From.ID, stateAwaitLanguage)
}

func (c *Controller) handleLanguageSelected(cb *tgbotapi.CallbackQuery, token callbackToken) {
	lang := normalizeLanguage(token.Language)
	if err := c.store.SetUserLanguage(cb.From.ID, lang); err != nil {
		c.reply(chatOf(cb), getText(lang, "storage_error", nil), "")
		return
	}
	logrus.WithFields(logrus.Fields{"user_id": cb.From.ID, "language": lang}).Info("language set")
	c.reply(chatOf(cb), getText(lang, "language_set", nil), "")
	c.reply(chatOf(cb), getText(lang, "welcome", nil), "")
	c.sessions.Clear(cb.From.ID)
}

func (c *Controller) handleTranslateLatinCommand(msg *tgbotapi.Message, lang string) {
	c.reply(msg.Chat.ID, getText(lang, "enter_cyrillic_text", nil), "")
	c.sessions.Set(msg.From.ID, stateAwaitCyrillicText)
}

func (c *Controller) handleTranslateCyrillicCommand(msg *tgbotapi.Message, lang string) {
	c.reply(msg.Chat.ID, getText(lang, "enter_latin_text", nil), "")
	c.sessions.Set(msg.From.ID, stateAwaitLatinText)
}

func (c *Controller) handleLatinText(msg *tgbotapi.Message, lang string) {
	converted := toCyrillic(strings.TrimSpace(msg.Text))
	c.reply(msg.Chat.ID, getText(lang, "translated_text", map[string]string{"text": converted}), "")
	c.sessions.Clear(msg.From.ID)
}

func (c *Controller) handleCyrillicText(msg *tgbotapi.Message, lang string) {
	converted := toLatin(strings.TrimSpace(msg.Text))
	c.reply(msg.Chat.ID, getText(lang, "translated_text", map[string]string{"text": converted}), "")
	c.sessions.Clear(msg.From.ID)
}

func (c *Controller) handleSearchFirmaCommand(msg *tgbotapi.Message, lang string) {
	c.reply(msg.Chat.ID, getText(lang, "enter_stir", nil), "")
	c.sessions.Set(msg.From.ID, stateAwaitSTIR)
}

// handleSearchSTIR consumes the one free-text answer of the search flow.
// There is no retry loop: malformed input drops back to idle.
func (c *Controller) handleSearchSTIR(msg *tgbotapi.Message, lang string) {
	defer c.sessions.Clear(msg.From.ID)
	stir := strings.TrimSpace(msg.Text)
	if !stirPattern.MatchString(stir) {
		logrus.WithField("input", stir).Warn("malformed STIR")
		c.reply(msg.Chat.ID, getText(lang, "bad_stir_format", nil), "")
		return
	}
	firm, ok := c.store.FirmBySTIR(stir)
	if !ok {
		logrus.WithField("stir", stir).Warn("firm not found")
		c.reply(msg.Chat.ID, getText(lang, "firm_not_found", nil), "")
		return
	}
	c.reply(msg.Chat.ID, firmInfoText(firm, lang), "Markdown")
}

// handleFirmRequest is the idle-state 9-digit shortcut: show the firm card
// and the tax category keyboard.
func (c *Controller) handleFirmRequest(msg *tgbotapi.Message, lang string) {
	stir := strings.TrimSpace(msg.Text)
	firm, ok := c.store.FirmBySTIR(stir)
	if !ok {
		logrus.WithField("stir", stir).Warn("firm not found")
		c.reply(msg.Chat.ID, getText(lang, "invalid_stir", nil), "Markdown")
		return
	}
	c.reply(msg.Chat.ID, firmInfoText(firm, lang), "Markdown")

	var buttons []tgbotapi.InlineKeyboardButton
	for _, taxType := range categoriesFor(firm.TaxTypes) {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(
			taxTypeLabel(taxType, lang), taxCallback(taxType, stir)))
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, getText(lang, "select_tax_type", nil))
	out.ReplyMarkup = buttonGrid(buttons, 2)
	c.sendLogged(out)
}

// The month keyboard covers the first seven months only; the report archive
// currently stops there. TODO: extend to the full year once the generator
// produces avgust-dekabr artifacts.
var selectableMonths = monthTokens[:7]

func (c *Controller) handleTaxSelected(cb *tgbotapi.CallbackQuery, token callbackToken, lang string) {
	c.clearKeyboard(cb)
	var buttons []tgbotapi.InlineKeyboardButton
	for _, month := range selectableMonths {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(
			getMonthName(lang, month), reportCallback(token.TaxType, token.STIR, month)))
	}
	out := tgbotapi.NewMessage(chatOf(cb), getText(lang, "select_month", map[string]string{
		"soliq_turi": taxTypeLabel(token.TaxType, lang),
	}))
	out.ReplyMarkup = buttonGrid(buttons, 3)
	c.sendLogged(out)
}

func (c *Controller) handleReportRequested(cb *tgbotapi.CallbackQuery, token callbackToken, lang string) {
	c.clearKeyboard(cb)
	chatID := chatOf(cb)
	c.resolver.ResolveFiles(chatID, token.STIR, token.TaxType, token.Month, lang)
	summary := c.resolver.ResolveSummary(token.STIR, token.TaxType, token.Month, lang)
	c.reply(chatID, summary, "Markdown")

	keyboard := buttonGrid([]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData(
			translateText("Soliq turini qayta tanlash", lang), taxCallback(token.TaxType, token.STIR)),
		tgbotapi.NewInlineKeyboardButtonData(
			translateText("Boshqa firma tanlash", lang), restartCallback()),
	}, 2)
	out := tgbotapi.NewMessage(chatID, getText(lang, "back_options", nil))
	out.ReplyMarkup = keyboard
	c.sendLogged(out)
}

func (c *Controller) handleRemindersCommand(msg *tgbotapi.Message, lang string) {
	keyboard := buttonGrid([]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData(translateText("Ha", lang), remindCallback(true)),
		tgbotapi.NewInlineKeyboardButtonData(translateText("Yo'q", lang), remindCallback(false)),
	}, 2)
	out := tgbotapi.NewMessage(msg.Chat.ID, getText(lang, "reminders_prompt", nil))
	out.ReplyMarkup = keyboard
	c.sendLogged(out)
}

func (c *Controller) handleReminderToggle(cb *tgbotapi.CallbackQuery, token callbackToken, lang string) {
	chatID := chatOf(cb)
	if token.Enable {
		if err := c.store.SubscribeChat(chatID); err != nil {
			logrus.WithError(err).WithField("chat_id", chatID).Error("subscribing chat")
			c.reply(chatID, getText(lang, "storage_error", nil), "")
			return
		}
		c.reply(chatID, getText(lang, "reminders_on", nil), "")
		return
	}
	if err := c.store.UnsubscribeChat(chatID); err != nil {
		logrus.WithError(err).WithField("chat_id", chatID).Error("unsubscribing chat")
		c.reply(chatID, getText(lang, "storage_error", nil), "")
		return
	}
	c.reply(chatID, getText(lang, "reminders_off", nil), "")
}

// categoriesFor parses the stored category mask into the keyboard's category
// list, in the fixed vocabulary order. An empty or unrecognized mask falls
// back to the common daromad+yagona pair so the keyboard never dead-ends.
func categoriesFor(mask string) []string {
	mask = strings.ToLower(strings.TrimSpace(mask))
	if mask == "" {
		mask = taxDaromad + "-" + taxYagona
	}
	present := map[string]bool{}
	for _, token := range strings.Split(mask, "-") {
		present[strings.TrimSpace(token)] = true
	}
	var out []string
	for _, taxType := range knownTaxTypes {
		if present[taxType] {
			out = append(out, taxType)
		}
	}
	if len(out) == 0 {
		logrus.WithField("mask", mask).Warn("no known categories in mask, using defaults")
		out = []string{taxDaromad, taxYagona}
	}
	return out
}

func taxTypeLabel(taxType, lang string) string {
	switch taxType {
	case taxDaromad:
		return translateText("Daromad solig'i", lang)
	case taxYagona:
		return translateText("Yagona soliq", lang)
	case taxQQS:
		return translateText("Qo'shilgan qiymat solig'i", lang)
	default:
		return translateText("Noma'lum", lang)
	}
}

func firmInfoText(firm *Firm, lang string) string {
	orUnknown := func(s string) string {
		if s == "" {
			return translateText("Noma'lum", lang)
		}
		return s
	}
	return getText(lang, "firma_info", map[string]string{
		"stir":       firm.STIR,
		"firma_nomi": firm.Name,
		"rahbar":     orUnknown(firm.Director),
		"soliq_turi": orUnknown(firm.TaxTypes),
		"ds_stavka":  orUnknown(firm.DSRate),
		"ys_stavka":  orUnknown(firm.YSRate),
		"qqs_stavka": orUnknown(firm.QQSRate),
	})
}

// buttonGrid lays buttons out in rows of the given width.
func buttonGrid(buttons []tgbotapi.InlineKeyboardButton, width int) tgbotapi.InlineKeyboardMarkup {
	if width < 1 {
		width = 1
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for len(buttons) > width {
		rows = append(rows, buttons[:width])
		buttons = buttons[width:]
	}
	if len(buttons) > 0 {
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (c *Controller) clearKeyboard(cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	edit := tgbotapi.EditMessageReplyMarkupConfig{
		BaseEdit: tgbotapi.BaseEdit{
			ChatID:    cb.Message.Chat.ID,
			MessageID: cb.Message.MessageID,
		},
	}
	if _, err := c.bot.Request(edit); err != nil {
		logrus.WithError(err).Debug("clearing keyboard")
	}
}

func (c *Controller) reply(chatID int64, text, parseMode string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if parseMode != "" {
		msg.ParseMode = parseMode
	}
	c.sendLogged(msg)
}

func (c *Controller) sendLogged(msg tgbotapi.Chattable) {
	if _, err := c.bot.Send(msg); err != nil {
		logrus.WithError(err).Error("sending message")
	}
}
