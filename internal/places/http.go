package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	httpTimeout   = 10 * time.Second
	maxPhotoBytes = 5 << 20
)

// newHTTPClient returns an http.Client with a bounded timeout.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = httpTimeout
	}
	return &http.Client{Timeout: timeout}
}

// redact strips the query string so API keys never reach logs or errors.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	return u.String()
}

// doGet performs a GET request and decodes the JSON response into dst.
// Every failure is reported as a *ProviderError.
func doGet(ctx context.Context, client *http.Client, p Provider, rawURL string, header http.Header, dst any) error {
	resp, err := send(ctx, client, p, rawURL, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return providerErr(p, resp.StatusCode, "decoding response from %s: %w", redact(rawURL), err)
	}
	return nil
}

// getBytes performs a GET request and returns the body and its content type.
func getBytes(ctx context.Context, client *http.Client, p Provider, rawURL string, limit int64) ([]byte, string, error) {
	resp, err := send(ctx, client, p, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", providerErr(p, resp.StatusCode, "reading body from %s: %w", redact(rawURL), err)
	}
	if int64(len(body)) > limit {
		return nil, "", providerErr(p, resp.StatusCode, "body from %s exceeds %d bytes", redact(rawURL), limit)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	return body, contentType, nil
}

func send(ctx context.Context, client *http.Client, p Provider, rawURL string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, providerErr(p, 0, "creating request for %s: %w", redact(rawURL), err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, providerErr(p, 0, "GET %s: %w", redact(rawURL), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, &ProviderError{
			Provider:   p,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("GET %s returned status %d", redact(rawURL), resp.StatusCode),
		}
	}
	return resp, nil
}
