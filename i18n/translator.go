// Package i18n holds the human-readable messages attached to validation
// issues.
package i18n

import (
	"strings"
	"sync"
)

// Translator retrieves localized messages for Issue codes.
// data provides optional values substituted into "{name}" placeholders (for
// example "min" or "pattern").
type Translator interface {
	Message(code string, data map[string]string) string
}

var dictionaries = map[string]map[string]string{
	"en": {
		"invalid_type":   "invalid type",
		"required":       "required property missing",
		"unknown_key":    "unknown key",
		"duplicate_key":  "duplicate key",
		"too_small":      "must be at least {min}",
		"too_big":        "must be at most {max}",
		"too_short":      "too short",
		"too_long":       "too long",
		"pattern":        "does not match {pattern}",
		"invalid_enum":   "must be one of {values}",
		"invalid_format": "invalid {format}",
		"parse_error":    "parse error",
		"business_rule":  "rule violated",

		"dependency_unavailable": "service not provided",
	},
	"ja": {
		"invalid_type":   "型が不正です",
		"required":       "必須プロパティが不足しています",
		"unknown_key":    "未知のキーです",
		"duplicate_key":  "キーが重複しています",
		"too_small":      "{min} 以上である必要があります",
		"too_big":        "{max} 以下である必要があります",
		"too_short":      "短すぎます",
		"too_long":       "長すぎます",
		"pattern":        "{pattern} に一致しません",
		"invalid_enum":   "{values} のいずれかである必要があります",
		"invalid_format": "{format} の形式が不正です",
		"parse_error":    "解析エラー",
		"business_rule":  "ルール違反です",

		"dependency_unavailable": "サービスが提供されていません",
	},
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dictionaries[t.lang][code]
	if !ok {
		return code
	}
	if len(data) == 0 || !strings.Contains(msg, "{") {
		return msg
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

var (
	mu                sync.RWMutex
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if _, ok := dictionaries[lang]; !ok {
		lang = "en"
	}
	SetTranslator(dictTranslator{lang: lang})
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version). nil restores English.
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	mu.Lock()
	currentTranslator = tr
	mu.Unlock()
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
