package main

import (
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	langLatin    = "uz_latin"
	langCyrillic = "uz_cyrillic"
)

// normalizeLanguage maps the short aliases accepted at the interface boundary
// onto the two values stored at rest.
func normalizeLanguage(lang string) string {
	switch lang {
	case "latin", langLatin:
		return langLatin
	case "cyrillic", langCyrillic:
		return langCyrillic
	default:
		return langLatin
	}
}

// Master templates are kept in Latin script only; the Cyrillic rendering is
// produced by transliterating the substituted result. Placeholders use
// {name} syntax and must stay ASCII so substitution happens before the
// script conversion.
var texts = map[string]string{
	"select_language":    "Tilni tanlang / Тилни танланг:",
	"language_set":       "Til muvaffaqiyatli o'rnatildi.",
	"welcome":            "Xush kelibsiz! Firma hisobotlarini olish uchun 9 xonali STIR raqamini yuboring.\n\nBuyruqlar:\n/search_firma - firma qidirish\n/translate_latin - kirilldan lotinga o'girish\n/translate_cyrillic - lotindan kirillga o'girish\n/reminders - hisobot eslatmalari",
	"enter_cyrillic_text": "Kirill alifbosidagi matnni kiriting:",
	"enter_latin_text":    "Lotin alifbosidagi matnni kiriting:",
	"translated_text":     "Natija:\n{text}",
	"enter_stir":          "Firma STIR raqamini kiriting (9 raqam, masalan: 123456789):",
	"bad_stir_format":     "❌ STIR 9 raqamdan iborat bo'lishi kerak.",
	"firm_not_found":      "❌ Bu STIR bo'yicha firma topilmadi.",
	"invalid_stir":        "❌ STIR noto'g'ri yoki firma topilmadi.",
	"firma_info":          "🏢 *Firma ma'lumotlari*\nSTIR: {stir}\nNomi: {firma_nomi}\nRahbar: {rahbar}\nSoliq turi: {soliq_turi}\nDS stavka: {ds_stavka}\nYS stavka: {ys_stavka}\nQQS stavka: {qqs_stavka}",
	"select_tax_type":     "Soliq turini tanlang:",
	"select_month":        "{soliq_turi} uchun oyni tanlang:",
	"no_manual_report":    "❌ {oy} oyi uchun qo'lda kiritilgan hisobot topilmadi.",
	"daromad_report":      "📊 *{firma_name}*\n{oy} oyi uchun daromad solig'i hisoboti\n\nXodimlar soni: {xodimlar_soni}\n{xodimlar_data}\n\nHisobot davri oyligi: {hisobot_davri_oylik} so'm\nJami oylik: {jami_oylik} so'm\nSoliq: {soliq} so'm",
	"yagona_report":       "📊 *{firma_name}*\n{oy} oyi uchun yagona soliq hisoboti\n\nSoliq turi: {soliq_turi}\nYil boshidan aylanma: {yil_boshidan} so'm\nShu oy aylanmasi: {shu_oy} so'm\nYagona soliq: {soliq} so'm",
	"qqs_report":          "📊 *{firma_name}*\n{oy} oyi uchun QQS hisoboti\n\nSoliq turi: {soliq_turi}\nYil boshidan QQS: {yil_boshidan} so'm\nShu oy QQS: {shu_oy} so'm\nQQS solig'i: {soliq} so'm",
	"no_summary_report":   "❌ {oy} oyi uchun hisobot ma'lumotlari topilmadi.",
	"no_files":            "❌ {oy} uchun {soliq_turi} fayli topilmadi.",
	"file_send_error":     "❌ Fayl yuborishda xato: {file}",
	"file_missing_disk":   "❌ Fayl diskda topilmadi: {file}",
	"file_not_in_db":      "❌ {file_type} fayli ma'lumotlar bazasida topilmadi.",
	"file_caption":        "{file} fayli",
	"back_options":        "Davom etish uchun tanlang:",
	"unknown_action":      "❌ Noma'lum amal. Qaytadan /start buyrug'ini yuboring.",
	"storage_error":       "❌ Xatolik yuz berdi. Iltimos, qayta urinib ko'ring.",
	"reminders_prompt":    "Oylik hisobot eslatmalarini olishni xohlaysizmi?",
	"reminders_on":        "✅ Eslatmalar yoqildi.",
	"reminders_off":       "Eslatmalar o'chirildi.",
	"reminder_text":       "❗ {oy} oyi uchun hisoboti kiritilmagan firmalar bor.",
}

// Inline button labels and the phrase keys used inside reformatted report
// lines. translateText falls back to plain transliteration for anything not
// listed here.
var phrases = map[string]string{
	"bu_oy_uchun_hisobotda":   "bu oy uchun hisobotda",
	"yil_boshidan_hisobotda":  "yil boshidan hisobotda",
	"so'm":                    "so'm",
	"daromad solig'i":         "Daromad solig'i",
	"yagona soliq":            "Yagona soliq",
	"qo'shilgan qiymat solig'i": "Qo'shilgan qiymat solig'i",
	"noma'lum":                "Noma'lum",
}

var monthTokens = []string{
	"yanvar", "fevral", "mart", "aprel", "may", "iyun",
	"iyul", "avgust", "sentabr", "oktabr", "noyabr", "dekabr",
}

func isMonthToken(token string) bool {
	token = strings.ToLower(token)
	for _, m := range monthTokens {
		if m == token {
			return true
		}
	}
	return false
}

// getText renders a localized template. Substitution happens on the Latin
// master first, then the whole message is transliterated for Cyrillic users,
// so substituted values (firm names, file names) follow the user's script.
func getText(lang, key string, subs map[string]string) string {
	tmpl, ok := texts[key]
	if !ok {
		logrus.WithField("key", key).Warn("unknown text key")
		return key
	}
	out := substitute(tmpl, subs)
	if normalizeLanguage(lang) == langCyrillic {
		return toCyrillic(out)
	}
	return out
}

func substitute(tmpl string, subs map[string]string) string {
	if len(subs) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(subs)*2)
	for k, v := range subs {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// getMonthName returns the display name of a month token in the given
// script. Unknown tokens come back unchanged.
func getMonthName(lang, token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	if !isMonthToken(token) {
		return token
	}
	name := strings.ToUpper(token[:1]) + token[1:]
	if normalizeLanguage(lang) == langCyrillic {
		return toCyrillic(name)
	}
	return name
}

// translateText is the best-effort phrase translation: known phrases are
// looked up, everything else is transliterated for Cyrillic users and passed
// through untouched for Latin users.
func translateText(text, lang string) string {
	if normalizeLanguage(lang) != langCyrillic {
		if mapped, ok := phrases[strings.ToLower(text)]; ok {
			return mapped
		}
		return text
	}
	if mapped, ok := phrases[strings.ToLower(text)]; ok {
		return toCyrillic(mapped)
	}
	return toCyrillic(text)
}
