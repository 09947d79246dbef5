package clients

import (
	"io"
	"net/http"
	"strings"

	"github.com/adshao/go-binance/v2"
)

// NewBinanceClient returns an unauthenticated spot client; market data endpoints need no keys.
// Empty baseURL keeps the SDK default, nil httpClient keeps the SDK transport.
// Throttling responses (429, 418) surface as *StatusError.
func NewBinanceClient(baseURL string, httpClient *http.Client) *binance.Client {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}

	base := client.HTTPClient
	if httpClient != nil {
		base = httpClient
	}
	wrapped := *base
	wrapped.Transport = &throttleTransport{next: base.Transport}
	client.HTTPClient = &wrapped

	return client
}

// throttleTransport reports rate limit responses as errors, because the SDK
// folds any non-JSON error body into an APIError with code 0.
type throttleTransport struct {
	next http.RoundTripper
}

func (t *throttleTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}

	resp, err := next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if !IsThrottleStatus(resp.StatusCode) {
		return resp, nil
	}

	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// IsThrottleStatus reports whether code is 429 Too Many Requests or
// 418, which Binance sends to clients that kept going after a 429.
func IsThrottleStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusTeapot
}
