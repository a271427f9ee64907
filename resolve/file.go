package resolve

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileResolver reads local files. Relative paths are joined to Base.
type FileResolver struct {
	Base     string
	MaxBytes int64
}

func (r *FileResolver) Resolve(ctx context.Context, location string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &Error{Op: "open", Location: location, Err: err}
	}
	p := location
	if Scheme(location) == "file" {
		u, err := url.Parse(location)
		if err != nil {
			return "", &Error{Op: "open", Location: location, Err: err}
		}
		p = u.Path
		if u.Opaque != "" {
			p = u.Opaque
		}
	}
	if r.Base != "" && !filepath.IsAbs(p) {
		p = filepath.Join(r.Base, p)
	}
	f, err := os.Open(p)
	if err != nil {
		return "", &Error{Op: "open", Location: location, Err: classify(err)}
	}
	defer f.Close()
	text, err := readLimited(f, r.MaxBytes)
	if err != nil {
		return "", &Error{Op: "read", Location: location, Err: err}
	}
	return text, nil
}

// FSResolver reads from an fs.FS, typically an embed.FS bundled with the
// binary. The scheme prefix and any leading slash are stripped, so
// "embed:/schemas/a.avsc" and "classpath:schemas/a.avsc" name the same file.
type FSResolver struct {
	FS       fs.FS
	MaxBytes int64
}

func (r *FSResolver) Resolve(ctx context.Context, location string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &Error{Op: "open", Location: location, Err: err}
	}
	name := location
	if s := Scheme(location); s != "" {
		name = location[len(s)+1:]
	}
	name = path.Clean(strings.TrimLeft(name, "/"))
	if r.FS == nil || !fs.ValidPath(name) {
		return "", &Error{Op: "open", Location: location, Err: ErrNotFound}
	}
	f, err := r.FS.Open(name)
	if err != nil {
		return "", &Error{Op: "open", Location: location, Err: classify(err)}
	}
	defer f.Close()
	text, err := readLimited(f, r.MaxBytes)
	if err != nil {
		return "", &Error{Op: "read", Location: location, Err: err}
	}
	return text, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return errors.Join(ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return errors.Join(ErrPermission, err)
	}
	return err
}
