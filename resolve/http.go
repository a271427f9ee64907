package resolve

import (
	"context"
	"fmt"
	"net/http"
)

// HTTPResolver fetches http and https locations with a GET request.
type HTTPResolver struct {
	Client   *http.Client // nil selects http.DefaultClient
	MaxBytes int64
}

func (r *HTTPResolver) Resolve(ctx context.Context, location string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return "", &Error{Op: "fetch", Location: location, Err: err}
	}
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", &Error{Op: "fetch", Location: location, Err: err}
	}
	defer resp.Body.Close()
	if err := statusError(resp.StatusCode); err != nil {
		return "", &Error{Op: "fetch", Location: location, Err: err}
	}
	text, err := readLimited(resp.Body, r.MaxBytes)
	if err != nil {
		return "", &Error{Op: "read", Location: location, Err: err}
	}
	return text, nil
}

func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return fmt.Errorf("%w (status %d)", ErrNotFound, code)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w (status %d)", ErrPermission, code)
	}
	return fmt.Errorf("unexpected status %d", code)
}
