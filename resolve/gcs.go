package resolve

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

// GCSResolver reads gs://bucket/object locations from Cloud Storage. The
// service is created on first use from Options and TokenSource; without
// either, application default credentials apply.
type GCSResolver struct {
	Options     []option.ClientOption
	TokenSource oauth2.TokenSource
	MaxBytes    int64

	once    sync.Once
	svc     *storage.Service
	initErr error
}

func (r *GCSResolver) service(ctx context.Context) (*storage.Service, error) {
	r.once.Do(func() {
		opts := append([]option.ClientOption(nil), r.Options...)
		if r.TokenSource != nil {
			opts = append(opts, option.WithTokenSource(r.TokenSource))
		}
		// The service outlives this request, so it must not inherit its cancellation.
		r.svc, r.initErr = storage.NewService(context.WithoutCancel(ctx), opts...)
	})
	return r.svc, r.initErr
}

func (r *GCSResolver) Resolve(ctx context.Context, location string) (string, error) {
	bucket, object, err := splitGCS(location)
	if err != nil {
		return "", &Error{Op: "open", Location: location, Err: err}
	}
	svc, err := r.service(ctx)
	if err != nil {
		return "", &Error{Op: "open", Location: location, Err: err}
	}
	resp, err := svc.Objects.Get(bucket, object).Context(ctx).Download()
	if err != nil {
		return "", &Error{Op: "fetch", Location: location, Err: gcsError(err)}
	}
	defer resp.Body.Close()
	text, err := readLimited(resp.Body, r.MaxBytes)
	if err != nil {
		return "", &Error{Op: "read", Location: location, Err: err}
	}
	return text, nil
}

func splitGCS(location string) (bucket, object string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", err
	}
	object = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || object == "" {
		return "", "", errors.Join(ErrNotFound, errors.New("expected gs://bucket/object"))
	}
	return u.Host, object, nil
}

func gcsError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if serr := statusError(gerr.Code); serr != nil {
			return errors.Join(serr, err)
		}
	}
	return err
}
