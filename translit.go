package main

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Uzbek Latin <-> Cyrillic transliteration. The conversion is lossy in a few
// well known spots (word-initial e/э, tutuq belgisi variants), so a round
// trip is not guaranteed to be byte-identical.

type translitPair struct {
	from string
	to   string
}

// Multi-rune sequences must come before their single-rune prefixes so the
// longest-match scan picks them up first.
var latinToCyrillic = []translitPair{
	{"yoʻ", "йў"}, {"yo'", "йў"}, {"yo‘", "йў"}, {"yo’", "йў"},
	{"oʻ", "ў"}, {"o'", "ў"}, {"o‘", "ў"}, {"o’", "ў"},
	{"gʻ", "ғ"}, {"g'", "ғ"}, {"g‘", "ғ"}, {"g’", "ғ"},
	{"yo", "ё"}, {"yu", "ю"}, {"ya", "я"}, {"ye", "е"},
	{"ch", "ч"}, {"sh", "ш"}, {"ts", "ц"},
	{"a", "а"}, {"b", "б"}, {"d", "д"}, {"e", "е"}, {"f", "ф"},
	{"g", "г"}, {"h", "ҳ"}, {"i", "и"}, {"j", "ж"}, {"k", "к"},
	{"l", "л"}, {"m", "м"}, {"n", "н"}, {"o", "о"}, {"p", "п"},
	{"q", "қ"}, {"r", "р"}, {"s", "с"}, {"t", "т"}, {"u", "у"},
	{"v", "в"}, {"x", "х"}, {"y", "й"}, {"z", "з"},
	{"ʼ", "ъ"}, {"’", "ъ"},
}

var cyrillicToLatin = []translitPair{
	{"ё", "yo"}, {"ю", "yu"}, {"я", "ya"},
	{"ч", "ch"}, {"ш", "sh"}, {"щ", "sh"}, {"ц", "ts"},
	{"ў", "oʻ"}, {"ғ", "gʻ"},
	{"а", "a"}, {"б", "b"}, {"в", "v"}, {"г", "g"}, {"д", "d"},
	{"е", "e"}, {"ж", "j"}, {"з", "z"}, {"и", "i"}, {"й", "y"},
	{"к", "k"}, {"л", "l"}, {"м", "m"}, {"н", "n"}, {"о", "o"},
	{"п", "p"}, {"р", "r"}, {"с", "s"}, {"т", "t"}, {"у", "u"},
	{"ф", "f"}, {"х", "x"}, {"ҳ", "h"}, {"қ", "q"}, {"э", "e"},
	{"ъ", "ʼ"}, {"ь", ""},
}

// toCyrillic converts Uzbek Latin text to the Cyrillic script. Runes outside
// the table (digits, punctuation, other alphabets) pass through unchanged.
func toCyrillic(text string) string {
	return transliterate(text, latinToCyrillic)
}

// toLatin converts Uzbek Cyrillic text to the Latin script.
func toLatin(text string) string {
	return transliterate(text, cyrillicToLatin)
}

func transliterate(text string, table []translitPair) string {
	var b strings.Builder
	b.Grow(len(text))
	for len(text) > 0 {
		matched := false
		for _, pair := range table {
			n := len(pair.from)
			if len(text) < n {
				continue
			}
			head := text[:n]
			lower := strings.ToLower(head)
			if lower != pair.from {
				continue
			}
			if head != lower {
				b.WriteString(matchCase(head, pair.to))
			} else {
				b.WriteString(pair.to)
			}
			text = text[n:]
			matched = true
			break
		}
		if !matched {
			r, size := utf8.DecodeRuneInString(text)
			b.WriteRune(r)
			text = text[size:]
		}
	}
	return b.String()
}

// matchCase carries the casing of the source sequence over to the replacement:
// an all-caps source yields an all-caps replacement, a leading capital yields
// a title-cased one.
func matchCase(src, repl string) string {
	if repl == "" {
		return repl
	}
	if isUpperString(src) && utf8.RuneCountInString(src) > 1 {
		return strings.ToUpper(repl)
	}
	first, _ := utf8.DecodeRuneInString(src)
	if unicode.IsUpper(first) {
		r, n := utf8.DecodeRuneInString(repl)
		return string(unicode.ToUpper(r)) + repl[n:]
	}
	return repl
}

func isUpperString(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
