package clients

import (
	"net/http"
	"time"

	"github.com/hirokisan/bybit/v2"
)

// NewBybitClient returns a public V5 client for market endpoints. The SDK calls
// take no context, so timeout bounds every request; zero means no limit.
// Empty baseURL keeps the SDK default.
func NewBybitClient(baseURL string, timeout time.Duration) *bybit.Client {
	client := bybit.NewClient().WithHTTPClient(&http.Client{Timeout: timeout})
	if baseURL != "" {
		client = client.WithBaseURL(baseURL)
	}
	return client
}
