package schemacheck

import (
	"strings"
	"unicode"

	"github.com/reoring/schemacheck/avro"
	"github.com/reoring/schemacheck/avro/idl"
)

// Parser turns schema text into a schema graph.
type Parser func(text string) (avro.Schema, error)

// ParseSchema accepts both Avro notations: text whose first non-space
// character is '{', '[' or '"' is JSON, anything else is IDL.
func ParseSchema(text string) (avro.Schema, error) {
	trimmed := strings.TrimLeftFunc(text, unicode.IsSpace)
	if trimmed == "" {
		return avro.Parse(text)
	}
	switch trimmed[0] {
	case '{', '[', '"':
		return avro.Parse(text)
	}
	return idl.Parse(text)
}
