package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	schemacheck "github.com/reoring/schemacheck"
	"github.com/reoring/schemacheck/avroconv"
	"github.com/reoring/schemacheck/config"
	"github.com/reoring/schemacheck/i18n"
	"github.com/reoring/schemacheck/resolve"
)

// errInvalid signals that at least one validation failed.
var errInvalid = errors.New("validation failed")

type options struct {
	verbose       bool
	lang          string
	recursiveRefs bool
	gcsToken      string
	baseDir       string
}

func main() {
	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "schemacheck",
		Short:         "Check that configured Avro schemas are usable by the engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	pf := root.PersistentFlags()
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log each validation stage")
	pf.StringVar(&opts.lang, "lang", "en", "message language: en or ja")
	pf.BoolVar(&opts.recursiveRefs, "recursive-refs", false, "convert recursive records to references instead of failing")
	pf.StringVar(&opts.gcsToken, "gcs-token", os.Getenv("SCHEMACHECK_GCS_TOKEN"), "OAuth2 access token for gs:// locations")
	pf.StringVar(&opts.baseDir, "base-dir", "", "directory relative schema paths are resolved against")

	root.AddCommand(newValidateCmd(opts), newConvertCmd(opts))
	return root
}

func newValidateCmd(opts *options) *cobra.Command {
	var (
		cfgPath  string
		keys     []string
		envFiles []string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the schemas referenced by configuration keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var loadOpts []config.LoadOption
			if len(envFiles) > 0 {
				loadOpts = append(loadOpts, config.WithDotenv(envFiles...))
			}
			cfg, err := config.LoadFile(cfgPath, loadOpts...)
			if err != nil {
				return err
			}
			ruleOpts := opts.ruleOptions(cmd.ErrOrStderr())
			rules := make([]schemacheck.Validation, 0, len(keys))
			for _, k := range keys {
				rules = append(rules, schemacheck.NewSchemaPathRule(k, ruleOpts...))
			}
			failed := false
			for _, res := range schemacheck.ValidateAll(cmd.Context(), cfg, rules...) {
				printResult(cmd.OutOrStdout(), res)
				if !res.OK() {
					failed = true
				}
			}
			if failed {
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "YAML configuration file")
	cmd.Flags().StringArrayVarP(&keys, "key", "k", nil, "configuration key holding a schema location (repeatable)")
	cmd.Flags().StringArrayVar(&envFiles, "env-file", nil, "dotenv file used for ${VAR} expansion (repeatable)")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newConvertCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <location>",
		Short: "Print the structured type of the schema at location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			const key = "location"
			cfg := config.New(map[string]any{key: args[0]})
			res := schemacheck.NewSchemaPathRule(key, opts.ruleOptions(cmd.ErrOrStderr())...).Validate(cmd.Context(), cfg)
			if !res.OK() {
				printResult(cmd.ErrOrStderr(), res)
				return errInvalid
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Type.String())
			return nil
		},
	}
}

func (o *options) ruleOptions(logOut io.Writer) []schemacheck.RuleOption {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	mux := resolve.NewMux()
	if o.baseDir != "" {
		mux.Handle("file", &resolve.FileResolver{Base: o.baseDir})
	}
	if o.gcsToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: o.gcsToken})
		mux.Handle("gs", &resolve.GCSResolver{TokenSource: ts})
	}
	conv := avroconv.Options{}
	if o.recursiveRefs {
		conv.Recursion = avroconv.RecursionReference
	}
	return []schemacheck.RuleOption{
		schemacheck.WithResolver(mux),
		schemacheck.WithConvertOptions(conv),
		schemacheck.WithLogger(logger),
		schemacheck.WithTranslator(i18n.Dictionary(o.lang)),
	}
}

func printResult(w io.Writer, res schemacheck.Result) {
	key := strings.TrimPrefix(res.Rule, "schema-path:")
	if res.Cause != nil {
		fmt.Fprintf(w, "%s\t%s\t%s: %v\n", res.Validity, key, res.Message, res.Cause)
		return
	}
	fmt.Fprintf(w, "%s\t%s\t%s\n", res.Validity, key, res.Message)
}
