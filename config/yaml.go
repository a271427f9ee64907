package config

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DuplicateKeyError reports a key repeated within one YAML mapping, with the
// positions of both occurrences.
type DuplicateKeyError struct {
	Key       string
	FirstLine int
	FirstCol  int
	Line      int
	Col       int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate YAML key %q at %d:%d (first at %d:%d)", e.Key, e.Line, e.Col, e.FirstLine, e.FirstCol)
}

// nodeValue converts a YAML node into map[string]any, []any and scalars,
// expanding variables in string scalars. dropped reports a value that was a
// lone ${?VAR} reference to an unset variable.
func (l *loader) nodeValue(n *yaml.Node) (v any, dropped bool, err error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, false, nil
		}
		return l.nodeValue(n.Content[0])
	case yaml.AliasNode:
		return l.nodeValue(n.Alias)
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		first := make(map[string][2]int, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, val := n.Content[i], n.Content[i+1]
			if k.ShortTag() == "!!merge" {
				if err := l.merge(m, val); err != nil {
					return nil, false, err
				}
				continue
			}
			if pos, dup := first[k.Value]; dup {
				return nil, false, &DuplicateKeyError{Key: k.Value, FirstLine: pos[0], FirstCol: pos[1], Line: k.Line, Col: k.Column}
			}
			first[k.Value] = [2]int{k.Line, k.Column}
			cv, drop, err := l.nodeValue(val)
			if err != nil {
				return nil, false, err
			}
			if !drop {
				m[k.Value] = cv
			}
		}
		return m, false, nil
	case yaml.SequenceNode:
		arr := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			cv, drop, err := l.nodeValue(c)
			if err != nil {
				return nil, false, err
			}
			if !drop {
				arr = append(arr, cv)
			}
		}
		return arr, false, nil
	case yaml.ScalarNode:
		return l.scalar(n)
	}
	return nil, false, nil
}

func (l *loader) scalar(n *yaml.Node) (any, bool, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, false, nil
	case "!!bool":
		if b, err := strconv.ParseBool(n.Value); err == nil {
			return b, false, nil
		}
	case "!!int":
		if i, err := strconv.ParseInt(n.Value, 0, 64); err == nil {
			return i, false, nil
		}
	case "!!float":
		if f, err := strconv.ParseFloat(n.Value, 64); err == nil {
			return f, false, nil
		}
	}
	s, drop, err := l.expand(n.Value)
	if err != nil {
		return nil, false, fmt.Errorf("config: line %d: %w", n.Line, err)
	}
	return s, drop, nil
}

// merge applies a YAML merge key (<<) without overriding explicit keys.
func (l *loader) merge(dst map[string]any, n *yaml.Node) error {
	sources := []*yaml.Node{n}
	if n.Kind == yaml.SequenceNode {
		sources = n.Content
	}
	for _, src := range sources {
		v, _, err := l.nodeValue(src)
		if err != nil {
			return err
		}
		m, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("config: line %d: merge value is not a mapping", src.Line)
		}
		for k, mv := range m {
			if _, exists := dst[k]; !exists {
				dst[k] = mv
			}
		}
	}
	return nil
}
