package avro

import (
	"fmt"
	"strings"
)

// validName reports whether s matches [A-Za-z_][A-Za-z0-9_]*.
func validName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// validFullName reports whether every dot-separated part of s is a valid name.
func validFullName(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if !validName(part) {
			return false
		}
	}
	return true
}

// qualify resolves a name against the enclosing namespace: dotted names are
// already full names, plain names inherit the namespace.
func qualify(name, namespace string) string {
	if strings.Contains(name, ".") || namespace == "" {
		return name
	}
	return namespace + "." + name
}

// splitName builds a Name from a declared name and the namespace in effect.
func splitName(name, namespace string) (Name, error) {
	if i := strings.LastIndex(name, "."); i >= 0 {
		namespace, name = name[:i], name[i+1:]
	}
	if !validName(name) {
		return Name{}, fmt.Errorf("invalid name %q", name)
	}
	if namespace != "" && !validFullName(namespace) {
		return Name{}, fmt.Errorf("invalid namespace %q", namespace)
	}
	return Name{Name: name, Namespace: namespace}, nil
}
