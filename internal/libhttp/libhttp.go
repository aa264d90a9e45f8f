package libhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	stdurl "net/url"
	"time"
)

var DefaultClient = &http.Client{
	Timeout: 10 * time.Second,
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to get successful response: status_code: %d, res_body: %s", e.StatusCode, e.Body)
}

// Call sends a JSON request and decodes the JSON response into T. A string T
// receives the raw body. A nil body sends no payload.
func Call[T any](
	ctx context.Context,
	method, url string,
	headers map[string]string,
	body any,
	query map[string]string,
) (T, error) {
	var zero T

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return zero, fmt.Errorf("failed to marshal request json: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	if len(query) > 0 {
		qurl := stdurl.Values{}
		for k, v := range query {
			qurl.Set(k, v)
		}
		url += "?" + qurl.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return zero, fmt.Errorf("failed to build http request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := DefaultClient.Do(req)
	if err != nil {
		return zero, fmt.Errorf("failed to make http call: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return zero, fmt.Errorf("failed to read response body: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return zero, &StatusError{StatusCode: res.StatusCode, Body: string(bodyBytes)}
	}

	if _, ok := any(zero).(string); ok {
		return any(string(bodyBytes)).(T), nil
	}

	var r T
	if err := json.Unmarshal(bodyBytes, &r); err != nil {
		return zero, fmt.Errorf("failed to unmarshal response json: %w", err)
	}

	return r, nil
}
