// Package schemacheck validates, at configuration-load time, that a schema
// referenced from application configuration can be used by the processing
// engine:
//
//   - RESOLVE: the configured location is read into text (package resolve)
//   - PARSE: the text is parsed as an Avro schema, JSON or IDL (package avro)
//   - CONVERT: the schema is mapped to the engine's structured types (package avroconv)
//
// The first failing stage decides the Result; causes are kept so callers can
// inspect them with errors.As.
//
// Typical usage:
//
//	cfg, err := config.LoadFile("app.yaml")
//	rule := schemacheck.NewSchemaPathRule("pipeline.schema.path")
//	res := rule.Validate(ctx, cfg)
//	if !res.OK() {
//		log.Fatalf("%s: %v", res.Message, res.Cause)
//	}
package schemacheck
