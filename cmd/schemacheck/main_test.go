package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reoring/schemacheck/i18n"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.avsc", `{"type":"record","name":"R","fields":[{"name":"a","type":"int"}]}`)
	writeFile(t, dir, "bad.avsc", `{"type":"record"`)
	writeFile(t, dir, ".env", "SCHEMA_DIR="+dir+"\n")
	cfg := writeFile(t, dir, "app.yaml", "schemas:\n  good: ${SCHEMA_DIR}/good.avsc\n  bad: ${SCHEMA_DIR}/bad.avsc\n")

	out, _, err := run(t, "validate", "--config", cfg, "--env-file", filepath.Join(dir, ".env"), "--key", "schemas.good")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "VALID\tschemas.good\t") {
		t.Fatalf("unexpected output %q", out)
	}

	out, _, err = run(t, "validate", "-c", cfg, "--env-file", filepath.Join(dir, ".env"), "-k", "schemas.good", "-k", "schemas.bad")
	if !errors.Is(err, errInvalid) {
		t.Fatalf("expected errInvalid, got %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "VALID") || !strings.HasPrefix(lines[1], "INVALID\tschemas.bad\tschema could not be parsed") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestValidateCommand_VerboseLogs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.avsc", `"string"`)
	cfg := writeFile(t, dir, "app.yaml", "schema: good.avsc\n")

	_, logs, err := run(t, "validate", "-v", "--base-dir", dir, "-c", cfg, "-k", "schema")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(logs, "resolving schema") || !strings.Contains(logs, "level=DEBUG") {
		t.Fatalf("expected debug logs, got %q", logs)
	}
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "node.avsc", `{"type":"record","name":"Node","fields":[{"name":"next","type":["null","Node"]}]}`)

	_, errOut, err := run(t, "convert", p)
	if !errors.Is(err, errInvalid) || !strings.Contains(errOut, "recursive type") {
		t.Fatalf("expected recursion failure, got %v / %q", err, errOut)
	}

	out, _, err := run(t, "convert", "--recursive-refs", p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "struct<next:ref<Node>?>" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestConvertCommand_Japanese(t *testing.T) {
	_, errOut, err := run(t, "convert", "--lang", "ja", filepath.Join(t.TempDir(), "missing.avsc"))
	defer i18n.SetLanguage("en")
	if !errors.Is(err, errInvalid) || !strings.Contains(errOut, "パスからスキーマを取得できませんでした") {
		t.Fatalf("expected japanese resolve failure, got %v / %q", err, errOut)
	}
	if msg := i18n.T(i18n.CodeSchemaUnresolvable, nil); msg != "schema could not be retrieved from path" {
		t.Fatalf("--lang should not change the process-wide language, got %q", msg)
	}
}
