package i18n

import "testing"

func TestTranslator_DefaultAndJapanese(t *testing.T) {
	// default is en
	if msg := T(CodeSchemaUnparseable, nil); msg != "schema could not be parsed" {
		t.Fatalf("expected english message, got %q", msg)
	}

	SetLanguage("ja")
	defer SetLanguage("en")
	for _, code := range []string{CodeSchemaUnresolvable, CodeSchemaUnparseable, CodeSchemaUnconvertible, CodeSchemaValid} {
		ja := T(code, nil)
		if ja == code || ja == (dictTranslator{lang: "en"}).Message(code, nil) {
			t.Fatalf("%s: expected japanese message, got %q", code, ja)
		}
	}
}

func TestTranslator_UnknownCodeAndCustom(t *testing.T) {
	if msg := T("no_such_code", nil); msg != "no_such_code" {
		t.Fatalf("unknown codes should echo, got %q", msg)
	}

	SetTranslator(upper{})
	defer SetTranslator(nil)
	if msg := T(CodeSchemaValid, map[string]string{"key": "k"}); msg != "VALID:k" {
		t.Fatalf("custom translator not used, got %q", msg)
	}
}

type upper struct{}

func (upper) Message(code string, data map[string]string) string {
	if code == CodeSchemaValid {
		return "VALID:" + data["key"]
	}
	return code
}

func TestDictionary(t *testing.T) {
	if msg := Dictionary("ja").Message(CodeSchemaValid, nil); msg != "スキーマを解析し、エンジンの構造化型に変換しました" {
		t.Fatalf("unexpected japanese message %q", msg)
	}
	if msg := Dictionary("fr").Message(CodeSchemaValid, nil); msg != "schema parsed and converted to the engine's structured type" {
		t.Fatalf("unknown languages should fall back to english, got %q", msg)
	}
}
