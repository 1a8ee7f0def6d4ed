package main

import (
	"fmt"
	"regexp"
	"strings"
)

// Callback tokens are versioned and typed instead of the positional
// underscore-joined blobs the old bot used. Every payload field comes from a
// closed vocabulary (tax type, month token) or is a 9-digit STIR, so the
// colon delimiter cannot appear inside a value.

const callbackVersion = "v1"

const (
	cbLang    = "lang"
	cbTax     = "tax"
	cbReport  = "report"
	cbRestart = "restart"
	cbRemind  = "remind"
)

var stirPattern = regexp.MustCompile(`^\d{9}$`)

type callbackToken struct {
	Kind     string
	Language string // cbLang
	TaxType  string // cbTax, cbReport
	STIR     string // cbTax, cbReport
	Month    string // cbReport
	Enable   bool   // cbRemind
}

func langCallback(language string) string {
	return strings.Join([]string{callbackVersion, cbLang, language}, ":")
}

func taxCallback(taxType, stir string) string {
	return strings.Join([]string{callbackVersion, cbTax, taxType, stir}, ":")
}

func reportCallback(taxType, stir, month string) string {
	return strings.Join([]string{callbackVersion, cbReport, taxType, stir, month}, ":")
}

func restartCallback() string {
	return callbackVersion + ":" + cbRestart
}

func remindCallback(enable bool) string {
	val := "no"
	if enable {
		val = "yes"
	}
	return strings.Join([]string{callbackVersion, cbRemind, val}, ":")
}

// decodeCallback parses a wire token into its typed form. Unknown versions,
// kinds, arities or field values all fail decoding; the caller answers with
// a generic error instead of guessing.
func decodeCallback(data string) (callbackToken, error) {
	parts := strings.Split(data, ":")
	if len(parts) < 2 || parts[0] != callbackVersion {
		return callbackToken{}, fmt.Errorf("unsupported callback token: %q", data)
	}
	switch parts[1] {
	case cbLang:
		if len(parts) != 3 {
			return callbackToken{}, fmt.Errorf("lang token wants 3 fields, got %d", len(parts))
		}
		lang := parts[2]
		if lang != langLatin && lang != langCyrillic && lang != "latin" && lang != "cyrillic" {
			return callbackToken{}, fmt.Errorf("unknown language %q", lang)
		}
		return callbackToken{Kind: cbLang, Language: lang}, nil
	case cbTax:
		if len(parts) != 4 {
			return callbackToken{}, fmt.Errorf("tax token wants 4 fields, got %d", len(parts))
		}
		if !isTaxType(parts[2]) {
			return callbackToken{}, fmt.Errorf("unknown tax type %q", parts[2])
		}
		if !stirPattern.MatchString(parts[3]) {
			return callbackToken{}, fmt.Errorf("malformed stir %q", parts[3])
		}
		return callbackToken{Kind: cbTax, TaxType: parts[2], STIR: parts[3]}, nil
	case cbReport:
		if len(parts) != 5 {
			return callbackToken{}, fmt.Errorf("report token wants 5 fields, got %d", len(parts))
		}
		if !isTaxType(parts[2]) {
			return callbackToken{}, fmt.Errorf("unknown tax type %q", parts[2])
		}
		if !stirPattern.MatchString(parts[3]) {
			return callbackToken{}, fmt.Errorf("malformed stir %q", parts[3])
		}
		if !isMonthToken(parts[4]) {
			return callbackToken{}, fmt.Errorf("unknown month %q", parts[4])
		}
		return callbackToken{Kind: cbReport, TaxType: parts[2], STIR: parts[3], Month: strings.ToLower(parts[4])}, nil
	case cbRestart:
		if len(parts) != 2 {
			return callbackToken{}, fmt.Errorf("restart token wants 2 fields, got %d", len(parts))
		}
		return callbackToken{Kind: cbRestart}, nil
	case cbRemind:
		if len(parts) != 3 || (parts[2] != "yes" && parts[2] != "no") {
			return callbackToken{}, fmt.Errorf("malformed remind token: %q", data)
		}
		return callbackToken{Kind: cbRemind, Enable: parts[2] == "yes"}, nil
	default:
		return callbackToken{}, fmt.Errorf("unknown callback kind %q", parts[1])
	}
}
