// Package upstream holds the HTTP clients for the services the engine calls
// out to: product APIs, the refund approval workflow and the credential
// lookup service.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxBodyBytes caps how much of an upstream reply is read.
const maxBodyBytes = 1 << 20

// ErrBodyTooLarge is returned with the first maxBodyBytes of a reply that
// did not fit.
var ErrBodyTooLarge = errors.New("upstream response body too large")

type doer struct {
	client *http.Client
}

func newDoer(timeout time.Duration, client *http.Client) doer {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return doer{client: client}
}

// do sends one request and returns the status and the body. Transport
// failures and oversized bodies are errors; the caller decides what a status
// means. Errors never carry the target URL, which may hold credentials.
func (d doer) do(ctx context.Context, method, target, contentType string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	if reader != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := d.client.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return 0, nil, fmt.Errorf("%s request: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	if len(respBody) > maxBodyBytes {
		return resp.StatusCode, respBody[:maxBodyBytes], fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, maxBodyBytes)
	}
	return resp.StatusCode, respBody, nil
}
