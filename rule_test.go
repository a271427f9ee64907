package schemacheck_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"testing/fstest"

	schemacheck "github.com/reoring/schemacheck"
	"github.com/reoring/schemacheck/avro"
	"github.com/reoring/schemacheck/avroconv"
	"github.com/reoring/schemacheck/config"
	"github.com/reoring/schemacheck/i18n"
	"github.com/reoring/schemacheck/resolve"
	"github.com/reoring/schemacheck/structtype"
)

const key = "pipeline.schema.path"

var schemas = fstest.MapFS{
	"user.avsc": {Data: []byte(`{
		"type": "record", "name": "User", "namespace": "com.acme",
		"fields": [
			{"name": "id", "type": "long"},
			{"name": "email", "type": ["null", "string"], "default": null},
			{"name": "born", "type": {"type": "int", "logicalType": "date"}},
			{"name": "balance", "type": {"type": "bytes", "logicalType": "decimal", "precision": 12, "scale": 2}}
		]
	}`)},
	"broken.avsc": {Data: []byte("not a schema")},
	"clock.avsc": {Data: []byte(`{
		"type": "record", "name": "Shift",
		"fields": [{"name": "starts", "type": {"type": "int", "logicalType": "time-millis"}}]
	}`)},
	"node.avsc": {Data: []byte(`{
		"type": "record", "name": "Node",
		"fields": [{"name": "next", "type": ["null", "Node"]}]
	}`)},
	"order.avdl": {Data: []byte(`
		namespace com.acme;
		record Order { string id; decimal(10,2) total; timestamp_ms placed; }
	`)},
}

func newRule(opts ...schemacheck.RuleOption) *schemacheck.SchemaPathRule {
	mux := resolve.NewMux().Handle("embed", &resolve.FSResolver{FS: schemas})
	return schemacheck.NewSchemaPathRule(key, append([]schemacheck.RuleOption{schemacheck.WithResolver(mux)}, opts...)...)
}

func cfgFor(location string) config.Config {
	return config.New(map[string]any{"pipeline": map[string]any{"schema": map[string]any{"path": location}}})
}

func TestValidate_Valid(t *testing.T) {
	res := newRule().Validate(context.Background(), cfgFor("embed:user.avsc"))
	if res.Validity != schemacheck.Valid || res.Stage != schemacheck.StageDone || res.Cause != nil {
		t.Fatalf("expected valid result, got %+v", res)
	}
	if res.Message != "schema parsed and converted to the engine's structured type" {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if res.Rule != "schema-path:"+key {
		t.Fatalf("unexpected rule identity %q", res.Rule)
	}
	want := "struct<id:bigint,email:string?,born:date,balance:decimal(12,2)>"
	if res.Type == nil || res.Type.String() != want {
		t.Fatalf("unexpected type %v", res.Type)
	}
}

func TestValidate_IDL(t *testing.T) {
	res := newRule().Validate(context.Background(), cfgFor("embed:order.avdl"))
	if !res.OK() {
		t.Fatalf("expected valid result, got %+v", res)
	}
	if st := res.Type.(*structtype.Struct); st.Name != "com.acme.Order" {
		t.Fatalf("unexpected struct %s", st.Name)
	}
}

func TestValidate_Unresolvable(t *testing.T) {
	res := newRule().Validate(context.Background(), cfgFor("embed:missing.avsc"))
	if res.Validity != schemacheck.Invalid || res.Stage != schemacheck.StageResolve {
		t.Fatalf("expected invalid resolve result, got %+v", res)
	}
	if res.Message != "schema could not be retrieved from path" {
		t.Fatalf("unexpected message %q", res.Message)
	}
	var rerr *schemacheck.ResolutionError
	if !errors.As(res.Cause, &rerr) || rerr.Key != key || rerr.Location != "embed:missing.avsc" {
		t.Fatalf("expected ResolutionError, got %#v", res.Cause)
	}
	if !errors.Is(res.Cause, resolve.ErrNotFound) {
		t.Fatalf("resolver cause lost: %v", res.Cause)
	}
}

func TestValidate_MissingKey(t *testing.T) {
	for _, cfg := range []config.Config{config.New(nil), nil} {
		res := newRule().Validate(context.Background(), cfg)
		var rerr *schemacheck.ResolutionError
		if res.Stage != schemacheck.StageResolve || !errors.As(res.Cause, &rerr) || rerr.Location != "" {
			t.Fatalf("expected ResolutionError without location, got %+v", res)
		}
		if !errors.Is(res.Cause, config.ErrMissing) {
			t.Fatalf("config cause lost: %v", res.Cause)
		}
	}
}

func TestValidate_Malformed(t *testing.T) {
	res := newRule().Validate(context.Background(), cfgFor("embed:broken.avsc"))
	if res.Validity != schemacheck.Invalid || res.Stage != schemacheck.StageParse {
		t.Fatalf("expected invalid parse result, got %+v", res)
	}
	if res.Message != "schema could not be parsed" {
		t.Fatalf("unexpected message %q", res.Message)
	}
	var serr *schemacheck.SchemaSyntaxError
	if !errors.As(res.Cause, &serr) {
		t.Fatalf("expected SchemaSyntaxError, got %#v", res.Cause)
	}
}

func TestValidate_UnsupportedLogicalType(t *testing.T) {
	res := newRule().Validate(context.Background(), cfgFor("embed:clock.avsc"))
	if res.Validity != schemacheck.Invalid || res.Stage != schemacheck.StageConvert {
		t.Fatalf("expected invalid convert result, got %+v", res)
	}
	if res.Message != "schema parsed but could not be converted to the engine's structured type" {
		t.Fatalf("unexpected message %q", res.Message)
	}
	var cerr *schemacheck.SchemaConversionError
	if !errors.As(res.Cause, &cerr) || cerr.Path != "Shift.starts" {
		t.Fatalf("expected conversion error at Shift.starts, got %#v", res.Cause)
	}
	if !errors.Is(res.Cause, avroconv.ErrUnsupportedLogicalType) {
		t.Fatalf("unexpected cause %v", res.Cause)
	}
}

func TestValidate_RecursionPolicy(t *testing.T) {
	ctx := context.Background()
	res := newRule().Validate(ctx, cfgFor("embed:node.avsc"))
	if res.Stage != schemacheck.StageConvert || !errors.Is(res.Cause, avroconv.ErrRecursiveType) {
		t.Fatalf("expected recursion failure, got %+v", res)
	}
	res = newRule(schemacheck.WithConvertOptions(avroconv.Options{Recursion: avroconv.RecursionReference})).Validate(ctx, cfgFor("embed:node.avsc"))
	if !res.OK() || res.Type.String() != "struct<next:ref<Node>?>" {
		t.Fatalf("expected reference result, got %+v", res)
	}
}

func TestValidate_LocalFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "event.avsc")
	if err := os.WriteFile(p, []byte(`["null", "string"]`), 0o644); err != nil {
		t.Fatal(err)
	}
	res := schemacheck.NewSchemaPathRule(key).Validate(context.Background(), cfgFor(p))
	if !res.OK() || res.Type.String() != "string?" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestValidate_CustomParserAndLogger(t *testing.T) {
	var calls atomic.Int32
	parser := func(text string) (avro.Schema, error) {
		calls.Add(1)
		return avro.Parse(`"string"`)
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	res := newRule(schemacheck.WithParser(parser), schemacheck.WithLogger(logger)).Validate(context.Background(), cfgFor("embed:broken.avsc"))
	if !res.OK() || calls.Load() != 1 {
		t.Fatalf("custom parser not used: %+v", res)
	}
	for _, want := range []string{"resolving schema", "parsing schema", "converting schema", "schema valid", "key=" + key} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("log output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestValidate_Japanese(t *testing.T) {
	i18n.SetLanguage("ja")
	defer i18n.SetLanguage("en")
	res := newRule().Validate(context.Background(), cfgFor("embed:broken.avsc"))
	if res.Message == "schema could not be parsed" || res.Message == "" {
		t.Fatalf("expected japanese message, got %q", res.Message)
	}
}

func TestValidate_TranslatorOption(t *testing.T) {
	res := newRule(schemacheck.WithTranslator(i18n.Dictionary("ja"))).Validate(context.Background(), cfgFor("embed:broken.avsc"))
	if res.Message != "スキーマを解析できませんでした" {
		t.Fatalf("expected japanese message, got %q", res.Message)
	}
	if msg := i18n.T(i18n.CodeSchemaUnparseable, nil); msg != "schema could not be parsed" {
		t.Fatalf("process-wide language changed: %q", msg)
	}
}

func TestValidate_DeeplyNestedDocument(t *testing.T) {
	fsys := fstest.MapFS{
		"deep.avsc": {Data: []byte(strings.Repeat("[", 100000) + strings.Repeat("]", 100000))},
		"deep.avdl": {Data: []byte("record R { " + strings.Repeat("array<", 100000) + "int" + strings.Repeat(">", 100000) + " a; }")},
	}
	rule := schemacheck.NewSchemaPathRule(key, schemacheck.WithResolver(resolve.NewMux().Handle("embed", &resolve.FSResolver{FS: fsys})))
	for _, loc := range []string{"embed:deep.avsc", "embed:deep.avdl"} {
		res := rule.Validate(context.Background(), cfgFor(loc))
		if res.Stage != schemacheck.StageParse || !errors.Is(res.Cause, avro.ErrTooDeep) {
			t.Fatalf("%s: expected nesting failure, got %+v", loc, res)
		}
	}
}

func TestKnownPaths(t *testing.T) {
	r := schemacheck.NewSchemaPathRule("a.b.c")
	if got := r.KnownPaths(); !reflect.DeepEqual(got, []string{"a.b.c"}) {
		t.Fatalf("unexpected known paths %v", got)
	}
	got := schemacheck.KnownPaths(r, schemacheck.NewSchemaPathRule("x"), schemacheck.NewSchemaPathRule("a.b.c"))
	if !reflect.DeepEqual(got, []string{"a.b.c", "x"}) {
		t.Fatalf("unexpected aggregate %v", got)
	}
}

func TestValidateAll_KeepsOrder(t *testing.T) {
	cfg := config.New(map[string]any{
		"a": "embed:user.avsc",
		"b": "embed:broken.avsc",
		"c": "embed:clock.avsc",
		"d": "embed:missing.avsc",
	})
	mux := resolve.NewMux().Handle("embed", &resolve.FSResolver{FS: schemas})
	var rules []schemacheck.Validation
	for _, k := range []string{"a", "b", "c", "d"} {
		rules = append(rules, schemacheck.NewSchemaPathRule(k, schemacheck.WithResolver(mux)))
	}
	results := schemacheck.ValidateAll(context.Background(), cfg, rules...)
	want := []schemacheck.Stage{schemacheck.StageDone, schemacheck.StageParse, schemacheck.StageConvert, schemacheck.StageResolve}
	for i, res := range results {
		if res.Stage != want[i] || res.Rule != "schema-path:"+[]string{"a", "b", "c", "d"}[i] {
			t.Fatalf("result %d: unexpected %+v", i, res)
		}
	}
}

func TestParseSchema_Detection(t *testing.T) {
	cases := map[string]avro.Kind{
		`  "int"`:                                     avro.KindInt,
		`["null","int"]`:                              avro.KindUnion,
		`{"type":"map","values":"long"}`:              avro.KindMap,
		"record R { int a; }":                         avro.KindRecord,
		"\n// comment\nenum E { A, B }":               avro.KindEnum,
		"namespace x; schema array<int>; fixed F(2);": avro.KindArray,
	}
	for text, want := range cases {
		s, err := schemacheck.ParseSchema(text)
		if err != nil || s.Kind() != want {
			t.Fatalf("%q: expected %v, got %v (%v)", text, want, s, err)
		}
	}
	for _, text := range []string{"", "not a schema", `{"type":`} {
		_, err := schemacheck.ParseSchema(text)
		var serr *schemacheck.SchemaSyntaxError
		if !errors.As(err, &serr) {
			t.Fatalf("%q: expected SchemaSyntaxError, got %v", text, err)
		}
	}
}
