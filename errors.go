package schemacheck

import (
	"fmt"

	"github.com/reoring/schemacheck/avro"
	"github.com/reoring/schemacheck/avroconv"
)

// ResolutionError reports that the schema text could not be obtained, either
// because the configuration key has no usable value or because the location
// it names could not be read.
type ResolutionError struct {
	Key      string
	Location string // empty when the key lookup itself failed
	Err      error
}

func (e *ResolutionError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("schemacheck: resolve %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("schemacheck: resolve %s (%s): %v", e.Key, e.Location, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// SchemaSyntaxError reports text that is not a schema.
type SchemaSyntaxError = avro.SyntaxError

// SchemaConversionError reports a schema construct with no structured type.
type SchemaConversionError = avroconv.ConversionError
