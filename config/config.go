// Package config holds application configuration as a nested key/value tree
// with dotted-path lookup. Trees are loaded from YAML; string values may refer
// to environment variables as ${VAR} (required) or ${?VAR} (optional).
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissing   = errors.New("config: key not found")
	ErrWrongType = errors.New("config: value is not a scalar")
	ErrUndefined = errors.New("config: undefined variable")
)

// Config is the lookup used by validation rules.
type Config interface {
	GetString(key string) (string, error)
}

// Tree is an immutable configuration tree. A dotted key such as
// "pipeline.schema.path" walks nested mappings; a mapping key that itself
// contains dots matches too.
type Tree struct {
	root map[string]any
}

// New wraps an already decoded tree. Values are not copied.
func New(values map[string]any) *Tree {
	if values == nil {
		values = map[string]any{}
	}
	return &Tree{root: values}
}

// Lookup returns the raw value stored under key.
func (t *Tree) Lookup(key string) (any, bool) {
	return lookup(t.root, key)
}

func lookup(node any, key string) (any, bool) {
	m, ok := node.(map[string]any)
	if !ok {
		return nil, false
	}
	if v, ok := m[key]; ok {
		return v, true
	}
	for i := 0; i < len(key); i++ {
		if key[i] != '.' {
			continue
		}
		if child, ok := m[key[:i]]; ok {
			if v, ok := lookup(child, key[i+1:]); ok {
				return v, true
			}
		}
	}
	return nil, false
}

// GetString returns the scalar under key as text. Missing keys and explicit
// nulls wrap ErrMissing; mappings and sequences wrap ErrWrongType.
func (t *Tree) GetString(key string) (string, error) {
	v, ok := t.Lookup(key)
	if !ok || v == nil {
		return "", fmt.Errorf("%w: %s", ErrMissing, key)
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	}
	return "", fmt.Errorf("%w: %s is %T", ErrWrongType, key, v)
}

// LoadOption configures LoadYAML and LoadFile.
type LoadOption func(*loader)

// WithEnv supplies variables that take precedence over the process
// environment.
func WithEnv(env map[string]string) LoadOption {
	return func(l *loader) { l.overrides = append(l.overrides, env) }
}

// WithDotenv reads variables from dotenv files. They apply only where neither
// WithEnv nor the process environment defines the variable.
func WithDotenv(paths ...string) LoadOption {
	return func(l *loader) { l.dotenv = append(l.dotenv, paths...) }
}

type loader struct {
	overrides []map[string]string
	dotenv    []string
	fallback  map[string]string
}

func (l *loader) getenv(name string) (string, bool) {
	for _, env := range l.overrides {
		if v, ok := env[name]; ok {
			return v, true
		}
	}
	if v, ok := os.LookupEnv(name); ok {
		return v, true
	}
	v, ok := l.fallback[name]
	return v, ok
}

// expand substitutes ${VAR} and ${?VAR}. A value consisting of a single unset
// ${?VAR} is dropped from the tree.
func (l *loader) expand(s string) (string, bool, error) {
	if !strings.Contains(s, "${") {
		return s, false, nil
	}
	var b strings.Builder
	rest := s
	for {
		i := strings.Index(rest, "${")
		if i < 0 {
			b.WriteString(rest)
			break
		}
		j := strings.IndexByte(rest[i:], '}')
		if j < 0 {
			return "", false, fmt.Errorf("unterminated variable reference in %q", s)
		}
		b.WriteString(rest[:i])
		ref := rest[i+2 : i+j]
		optional := strings.HasPrefix(ref, "?")
		name := strings.TrimPrefix(ref, "?")
		v, ok := l.getenv(name)
		switch {
		case ok:
			b.WriteString(v)
		case !optional:
			return "", false, fmt.Errorf("%w %s", ErrUndefined, name)
		case s == "${"+ref+"}":
			return "", true, nil
		}
		rest = rest[i+j+1:]
	}
	return b.String(), false, nil
}

// LoadYAML reads the first YAML document from r. Duplicate keys are errors.
func LoadYAML(r io.Reader, opts ...LoadOption) (*Tree, error) {
	l := &loader{}
	for _, o := range opts {
		o(l)
	}
	if len(l.dotenv) > 0 {
		env, err := godotenv.Read(l.dotenv...)
		if err != nil {
			return nil, fmt.Errorf("config: read dotenv: %w", err)
		}
		l.fallback = env
	}
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return New(nil), nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	v, _, err := l.nodeValue(&doc)
	if err != nil {
		return nil, err
	}
	switch m := v.(type) {
	case nil:
		return New(nil), nil
	case map[string]any:
		return New(m), nil
	}
	return nil, fmt.Errorf("config: top-level value must be a mapping, got %T", v)
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string, opts ...LoadOption) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return LoadYAML(f, opts...)
}
