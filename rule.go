package schemacheck

import (
	"context"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/reoring/schemacheck/avroconv"
	"github.com/reoring/schemacheck/config"
	"github.com/reoring/schemacheck/i18n"
	"github.com/reoring/schemacheck/resolve"
)

// Validation is a single check over configuration.
type Validation interface {
	Validate(ctx context.Context, cfg config.Config) Result
	// KnownPaths lists the configuration keys the check reads.
	KnownPaths() []string
}

// SchemaPathRule checks that the schema named by one configuration key can be
// resolved, parsed and converted. It is immutable and safe for concurrent use.
type SchemaPathRule struct {
	key      string
	resolver resolve.Resolver
	parse    Parser
	convert  avroconv.Options
	logger   *slog.Logger
	tr       i18n.Translator
}

// RuleOption configures a SchemaPathRule.
type RuleOption func(*SchemaPathRule)

// WithResolver replaces the default resolve.NewMux().
func WithResolver(r resolve.Resolver) RuleOption {
	return func(s *SchemaPathRule) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithParser replaces ParseSchema.
func WithParser(p Parser) RuleOption {
	return func(s *SchemaPathRule) {
		if p != nil {
			s.parse = p
		}
	}
}

// WithConvertOptions sets the conversion policy.
func WithConvertOptions(o avroconv.Options) RuleOption {
	return func(s *SchemaPathRule) { s.convert = o }
}

// WithLogger sets the logger for stage-level debug records.
func WithLogger(l *slog.Logger) RuleOption {
	return func(s *SchemaPathRule) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTranslator fixes the message translator for this rule. Without it the
// rule follows the process-wide i18n setting.
func WithTranslator(tr i18n.Translator) RuleOption {
	return func(s *SchemaPathRule) { s.tr = tr }
}

// NewSchemaPathRule builds a rule reading the schema location from key.
func NewSchemaPathRule(key string, opts ...RuleOption) *SchemaPathRule {
	r := &SchemaPathRule{
		key:      key,
		resolver: resolve.NewMux(),
		parse:    ParseSchema,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(r)
	}
	r.logger = r.logger.With(slog.String("rule", r.Name()), slog.String("key", key))
	return r
}

// Name identifies the rule in results.
func (r *SchemaPathRule) Name() string { return "schema-path:" + r.key }

// Key returns the configuration key the rule reads.
func (r *SchemaPathRule) Key() string { return r.key }

// KnownPaths returns exactly the schema-reference key.
func (r *SchemaPathRule) KnownPaths() []string { return []string{r.key} }

// Validate runs RESOLVE, PARSE and CONVERT, stopping at the first failure.
func (r *SchemaPathRule) Validate(ctx context.Context, cfg config.Config) Result {
	data := map[string]string{"key": r.key}
	if cfg == nil {
		cfg = config.New(nil)
	}
	location, err := cfg.GetString(r.key)
	if err != nil {
		return r.fail(ctx, StageResolve, i18n.CodeSchemaUnresolvable, data, &ResolutionError{Key: r.key, Err: err})
	}
	data["location"] = location
	r.logger.DebugContext(ctx, "resolving schema", slog.String("location", location))

	text, err := r.resolver.Resolve(ctx, location)
	if err != nil {
		return r.fail(ctx, StageResolve, i18n.CodeSchemaUnresolvable, data, &ResolutionError{Key: r.key, Location: location, Err: err})
	}
	r.logger.DebugContext(ctx, "parsing schema", slog.Int("bytes", len(text)))

	schema, err := r.parse(text)
	if err != nil {
		return r.fail(ctx, StageParse, i18n.CodeSchemaUnparseable, data, err)
	}
	r.logger.DebugContext(ctx, "converting schema", slog.String("kind", schema.Kind().String()))

	dt, err := avroconv.Convert(schema, r.convert)
	if err != nil {
		return r.fail(ctx, StageConvert, i18n.CodeSchemaUnconvertible, data, err)
	}
	r.logger.DebugContext(ctx, "schema valid", slog.Any("type", dt))
	return Result{
		Rule:     r.Name(),
		Validity: Valid,
		Stage:    StageDone,
		Message:  r.message(i18n.CodeSchemaValid, data),
		Type:     dt,
	}
}

func (r *SchemaPathRule) fail(ctx context.Context, stage Stage, code string, data map[string]string, cause error) Result {
	r.logger.DebugContext(ctx, "schema invalid", slog.String("stage", stage.String()), slog.Any("error", cause))
	return Result{
		Rule:     r.Name(),
		Validity: Invalid,
		Stage:    stage,
		Message:  r.message(code, data),
		Cause:    cause,
	}
}

func (r *SchemaPathRule) message(code string, data map[string]string) string {
	if r.tr != nil {
		return r.tr.Message(code, data)
	}
	return i18n.T(code, data)
}

// ValidateAll runs every validation concurrently against cfg. Results keep
// the order of validations.
func ValidateAll(ctx context.Context, cfg config.Config, validations ...Validation) []Result {
	out := make([]Result, len(validations))
	var g errgroup.Group
	for i, v := range validations {
		i, v := i, v // per-iteration copies (go < 1.22 loop semantics)
		g.Go(func() error {
			out[i] = v.Validate(ctx, cfg)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// KnownPaths collects the configuration keys read by validations, in order
// and without duplicates.
func KnownPaths(validations ...Validation) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range validations {
		for _, p := range v.KnownPaths() {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}
