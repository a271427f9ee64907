package resolve_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"google.golang.org/api/option"

	"github.com/reoring/schemacheck/resolve"
)

func TestScheme(t *testing.T) {
	cases := map[string]string{
		"schemas/user.avsc":         "",
		"/abs/user.avsc":            "",
		`C:\schemas\user.avsc`:      "",
		"c:/schemas/user.avsc":      "",
		"file:///tmp/user.avsc":     "file",
		"HTTPS://example.com/a":     "https",
		"gs://bucket/a.avsc":        "gs",
		"embed:schemas/a.avsc":      "embed",
		"classpath:/schemas/a.avsc": "classpath",
		"dir/with:colon":            "",
	}
	for in, want := range cases {
		if got := resolve.Scheme(in); got != want {
			t.Fatalf("%s: expected %q, got %q", in, want, got)
		}
	}
}

func TestFileResolver(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.avsc"), []byte(`"string"`), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	mux := resolve.NewMux()

	for _, loc := range []string{filepath.Join(dir, "a.avsc"), "file://" + filepath.ToSlash(filepath.Join(dir, "a.avsc"))} {
		text, err := mux.Resolve(ctx, loc)
		if err != nil || text != `"string"` {
			t.Fatalf("%s: unexpected result %q, %v", loc, text, err)
		}
	}

	rel := &resolve.FileResolver{Base: dir}
	if text, err := rel.Resolve(ctx, "a.avsc"); err != nil || text != `"string"` {
		t.Fatalf("relative: unexpected result %q, %v", text, err)
	}

	_, err := mux.Resolve(ctx, filepath.Join(dir, "missing.avsc"))
	if !errors.Is(err, resolve.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var rerr *resolve.Error
	if !errors.As(err, &rerr) || rerr.Op != "open" {
		t.Fatalf("expected *resolve.Error, got %#v", err)
	}
}

func TestFileResolver_TooLarge(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "big.avsc")
	if err := os.WriteFile(p, []byte(strings.Repeat("x", 64)), 0o644); err != nil {
		t.Fatal(err)
	}
	r := &resolve.FileResolver{MaxBytes: 16}
	if _, err := r.Resolve(context.Background(), p); !errors.Is(err, resolve.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestFSResolver(t *testing.T) {
	fsys := fstest.MapFS{"schemas/user.avsc": {Data: []byte(`{"type":"int"}`)}}
	mux := resolve.NewMux()
	fr := &resolve.FSResolver{FS: fsys}
	mux.Handle("embed", fr).Handle("classpath", fr)

	for _, loc := range []string{"embed:schemas/user.avsc", "classpath:/schemas/user.avsc"} {
		text, err := mux.Resolve(context.Background(), loc)
		if err != nil || text != `{"type":"int"}` {
			t.Fatalf("%s: unexpected result %q, %v", loc, text, err)
		}
	}
	if _, err := mux.Resolve(context.Background(), "embed:schemas/none.avsc"); !errors.Is(err, resolve.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMux_UnsupportedScheme(t *testing.T) {
	_, err := resolve.NewMux().Resolve(context.Background(), "ftp://host/a.avsc")
	if !errors.Is(err, resolve.ErrUnsupportedScheme) {
		t.Fatalf("expected ErrUnsupportedScheme, got %v", err)
	}
}

func TestHTTPResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user.avsc":
			_, _ = w.Write([]byte(`"long"`))
		case "/secret.avsc":
			w.WriteHeader(http.StatusForbidden)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	mux := resolve.NewMux()
	if text, err := mux.Resolve(ctx, srv.URL+"/user.avsc"); err != nil || text != `"long"` {
		t.Fatalf("unexpected result %q, %v", text, err)
	}
	if _, err := mux.Resolve(ctx, srv.URL+"/missing.avsc"); !errors.Is(err, resolve.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := mux.Resolve(ctx, srv.URL+"/secret.avsc"); !errors.Is(err, resolve.ErrPermission) {
		t.Fatalf("expected ErrPermission, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := mux.Resolve(cancelled, srv.URL+"/user.avsc"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGCSResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/b/schemas/o/user.avsc") {
			_, _ = w.Write([]byte(`"bytes"`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"No such object"}}`))
	}))
	defer srv.Close()

	gcs := &resolve.GCSResolver{Options: []option.ClientOption{
		option.WithEndpoint(srv.URL + "/storage/v1/"),
		option.WithoutAuthentication(),
	}}
	mux := resolve.NewMux().Handle("gs", gcs)
	ctx := context.Background()

	if text, err := mux.Resolve(ctx, "gs://schemas/user.avsc"); err != nil || text != `"bytes"` {
		t.Fatalf("unexpected result %q, %v", text, err)
	}
	if _, err := mux.Resolve(ctx, "gs://schemas/missing.avsc"); !errors.Is(err, resolve.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := mux.Resolve(ctx, "gs://schemas"); !errors.Is(err, resolve.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a bucket-only location, got %v", err)
	}

	// The client built during a cancelled request keeps serving later ones.
	fresh := &resolve.GCSResolver{Options: gcs.Options}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := fresh.Resolve(cancelled, "gs://schemas/user.avsc"); err == nil {
		t.Fatalf("expected the cancelled request to fail")
	}
	if text, err := fresh.Resolve(ctx, "gs://schemas/user.avsc"); err != nil || text != `"bytes"` {
		t.Fatalf("unexpected result after a cancelled first request %q, %v", text, err)
	}
}
