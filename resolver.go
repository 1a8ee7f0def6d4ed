package main

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// sender is the slice of *tgbotapi.BotAPI the resolver needs, so delivery
// can be faked in tests.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Resolver finds the stored artifacts for a (firm, tax type, month) request
// and builds the textual summaries.
type Resolver struct {
	store *Store
	bot   sender
}

func NewResolver(store *Store, bot sender) *Resolver {
	return &Resolver{store: store, bot: bot}
}

var artifactKinds = []string{fileExcel1, fileExcel2, fileHTML}

func scriptVariant(lang string) (preferred, fallback string) {
	if normalizeLanguage(lang) == langCyrillic {
		return "cyrillic", "latin"
	}
	return "latin", "cyrillic"
}

// ResolveFiles delivers every stored artifact for the request: excel parts in
// the user's script (falling back to the other script), plus the html
// summary page. Delivery trouble with one artifact never stops the rest.
// Returns whether anything was delivered and the delivered file names.
func (r *Resolver) ResolveFiles(chatID int64, stir, taxType, month, lang string) (bool, []string) {
	month = strings.ToLower(month)
	preferred, fallback := scriptVariant(lang)
	log := logrus.WithFields(logrus.Fields{
		"stir": stir, "tax_type": taxType, "month": month, "chat_id": chatID,
	})

	var delivered []string
	for _, kind := range artifactKinds {
		variants := []string{kind}
		if kind != fileHTML {
			variants = []string{kind + "_" + preferred, kind + "_" + fallback}
		}
		found := false
		for _, variant := range variants {
			path, ok := r.store.FilePath(stir, taxType, month, variant)
			if !ok {
				continue
			}
			found = true
			path = filepath.Clean(path)
			base := filepath.Base(path)
			if _, err := os.Stat(path); err != nil {
				log.WithField("path", path).Warn("stored artifact missing on disk")
				r.send(chatID, getText(lang, "file_missing_disk", map[string]string{"file": base}), "")
				break
			}
			doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
			doc.Caption = getText(lang, "file_caption", map[string]string{"file": base})
			if _, err := r.bot.Send(doc); err != nil {
				log.WithError(err).WithField("path", path).Error("sending artifact")
				r.send(chatID, getText(lang, "file_send_error", map[string]string{"file": base}), "")
				break
			}
			log.WithField("path", path).Info("artifact delivered")
			delivered = append(delivered, base)
			break
		}
		if !found {
			log.WithField("kind", kind).Warn("artifact not in store")
			r.send(chatID, getText(lang, "file_not_in_db", map[string]string{"file_type": kind}), "")
		}
	}

	if len(delivered) == 0 {
		r.send(chatID, getText(lang, "no_files", map[string]string{
			"oy":         getMonthName(lang, month),
			"soliq_turi": taxType,
		}), "")
		return false, nil
	}
	return true, delivered
}

// ResolveSummary builds the localized monthly summary text for the category.
func (r *Resolver) ResolveSummary(stir, taxType, month, lang string) string {
	month = strings.ToLower(month)
	switch taxType {
	case taxDaromad:
		return r.daromadSummary(stir, month, lang)
	case taxYagona:
		return yagonaSummary(r.store, stir, month, lang)
	case taxQQS:
		return qqsSummary(r.store, stir, month, lang)
	default:
		return getText(lang, "no_summary_report", map[string]string{
			"oy": getMonthName(lang, month),
		})
	}
}

func (r *Resolver) daromadSummary(stir, month, lang string) string {
	report, ok := r.store.ManualReportFor(stir, month)
	if !ok {
		return getText(lang, "no_manual_report", map[string]string{
			"oy": getMonthName(lang, month),
		})
	}
	return getText(lang, "daromad_report", map[string]string{
		"firma_name":          report.FirmName,
		"oy":                  getMonthName(lang, month),
		"xodimlar_soni":       strconv.Itoa(report.EmployeeCount),
		"xodimlar_data":       formatEmployeeLines(report.EmployeeData, lang),
		"hisobot_davri_oylik": formatAmount(report.PeriodPayroll),
		"jami_oylik":          formatAmount(report.TotalPayroll),
		"soliq":               formatAmount(report.Tax),
	})
}

// One itemized employee line: index (position) – name, label: amount unit
// (label: ytd-amount unit).
var employeeLinePattern = regexp.MustCompile(`^(\d+) \((.*?)\) – (.*?), (.*?): ([\d,]+) (.*?)\s*\((.*?): ([\d,]+) (.*?)\)$`)

// formatEmployeeLines re-renders the itemized listing with localized labels.
// A line that does not match the expected pattern passes through unchanged;
// one odd line must not spoil the whole summary.
func formatEmployeeLines(data, lang string) string {
	lines := strings.Split(data, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		m := employeeLinePattern.FindStringSubmatch(line)
		if m == nil {
			out = append(out, line)
			continue
		}
		index, position, name := m[1], m[2], m[3]
		thisMonth, yearToDate := m[5], m[8]
		out = append(out, index+" ("+position+") – "+name+", "+
			translateText("bu_oy_uchun_hisobotda", lang)+": "+thisMonth+" "+translateText("so'm", lang)+
			" ("+translateText("yil_boshidan_hisobotda", lang)+": "+yearToDate+" "+translateText("so'm", lang)+")")
	}
	return strings.Join(out, "\n")
}

func (r *Resolver) send(chatID int64, text, parseMode string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if parseMode != "" {
		msg.ParseMode = parseMode
	}
	if _, err := r.bot.Send(msg); err != nil {
		logrus.WithError(err).WithField("chat_id", chatID).Error("sending message")
	}
}
