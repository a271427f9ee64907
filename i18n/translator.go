package i18n

import "sync/atomic"

// Message codes for validation outcomes.
const (
	CodeSchemaUnresolvable  = "schema_unresolvable"
	CodeSchemaUnparseable   = "schema_unparseable"
	CodeSchemaUnconvertible = "schema_unconvertible"
	CodeSchemaValid         = "schema_valid"
)

// Translator retrieves localized messages for outcome codes.
// data provides optional metadata to embed in the message (for example,
// "key").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	switch t.lang {
	case "ja":
		switch code {
		case CodeSchemaUnresolvable:
			return "パスからスキーマを取得できませんでした"
		case CodeSchemaUnparseable:
			return "スキーマを解析できませんでした"
		case CodeSchemaUnconvertible:
			return "スキーマは解析できましたが、エンジンの構造化型に変換できませんでした"
		case CodeSchemaValid:
			return "スキーマを解析し、エンジンの構造化型に変換しました"
		}
	default: // "en"
		switch code {
		case CodeSchemaUnresolvable:
			return "schema could not be retrieved from path"
		case CodeSchemaUnparseable:
			return "schema could not be parsed"
		case CodeSchemaUnconvertible:
			return "schema parsed but could not be converted to the engine's structured type"
		case CodeSchemaValid:
			return "schema parsed and converted to the engine's structured type"
		}
	}
	return code
}

// holder keeps atomic.Value's concrete type stable across implementations.
type holder struct{ tr Translator }

var current atomic.Value

func init() { current.Store(holder{dictTranslator{lang: "en"}}) }

// Dictionary returns the built-in Translator for lang ("en"/"ja"). Other
// values select English.
func Dictionary(lang string) Translator {
	if lang != "ja" {
		lang = "en"
	}
	return dictTranslator{lang: lang}
}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	current.Store(holder{Dictionary(lang)})
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version). nil restores the English dictionary.
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	current.Store(holder{tr})
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	return current.Load().(holder).tr.Message(code, data)
}
