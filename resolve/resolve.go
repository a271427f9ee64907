// Package resolve turns a storage location into document text. Locations are
// dispatched on their URL scheme; a location without a scheme (or with a
// single-letter drive prefix) is a local path.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrPermission        = errors.New("permission denied")
	ErrUnsupportedScheme = errors.New("unsupported location scheme")
	ErrTooLarge          = errors.New("resource too large")
)

// DefaultMaxBytes caps the size of a resolved document.
const DefaultMaxBytes int64 = 16 << 20

// Resolver fetches the text stored at location.
type Resolver interface {
	Resolve(ctx context.Context, location string) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, location string) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, location string) (string, error) {
	return f(ctx, location)
}

// Error reports a failed resolution. Err is one of the sentinels above or the
// underlying I/O error.
type Error struct {
	Op       string
	Location string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("resolve: %s %s: %v", e.Op, e.Location, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Mux dispatches on the location scheme. Register resolvers before the mux is
// shared; Resolve itself does not mutate it.
type Mux struct {
	byScheme map[string]Resolver
}

// NewMux returns a mux serving local files, http(s) and gs:// objects.
// embed: and classpath: locations need an FSResolver registered with Handle.
func NewMux() *Mux {
	m := &Mux{byScheme: map[string]Resolver{}}
	web := &HTTPResolver{}
	m.Handle("file", &FileResolver{})
	m.Handle("http", web)
	m.Handle("https", web)
	m.Handle("gs", &GCSResolver{})
	return m
}

// Handle registers r for scheme, replacing any previous registration.
func (m *Mux) Handle(scheme string, r Resolver) *Mux {
	if m.byScheme == nil {
		m.byScheme = map[string]Resolver{}
	}
	m.byScheme[strings.ToLower(scheme)] = r
	return m
}

func (m *Mux) Resolve(ctx context.Context, location string) (string, error) {
	scheme := Scheme(location)
	if scheme == "" {
		scheme = "file"
	}
	r, ok := m.byScheme[scheme]
	if !ok {
		return "", &Error{Op: "dispatch", Location: location, Err: fmt.Errorf("%w %q", ErrUnsupportedScheme, scheme)}
	}
	return r.Resolve(ctx, location)
}

// Scheme returns the lower-cased URL scheme of location, or "" for plain
// paths, including Windows drive paths such as C:\schemas\a.avsc.
func Scheme(location string) string {
	i := strings.IndexByte(location, ':')
	if i < 2 {
		return ""
	}
	for j := 0; j < i; j++ {
		c := location[j]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case j > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return ""
		}
	}
	return strings.ToLower(location[:i])
}

// readLimited reads r fully, failing once more than max bytes arrive.
func readLimited(r io.Reader, max int64) (string, error) {
	if max <= 0 {
		max = DefaultMaxBytes
	}
	b, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return "", err
	}
	if int64(len(b)) > max {
		return "", fmt.Errorf("%w: more than %d bytes", ErrTooLarge, max)
	}
	return string(b), nil
}
