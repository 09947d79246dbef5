package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/cryptorisk/pkg/flexnum"
)

const (
	DefaultCoinGeckoBaseURL = "https://api.coingecko.com/api/v3"

	coinGeckoKeyHeader = "x-cg-demo-api-key"
	defaultHTTPTimeout = 30 * time.Second
	maxErrorBody       = 512
)

// ErrMalformedResponse marks a payload that could not be decoded.
var ErrMalformedResponse = errors.New("malformed response")

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// MarketChart is the market_chart payload. Each row is [timestampMillis, value];
// either element may be a JSON number or a decimal string.
type MarketChart struct {
	Prices       [][]flexnum.Value `json:"prices"`
	TotalVolumes [][]flexnum.Value `json:"total_volumes"`
}

// CoinGeckoClient is a thin client for the public CoinGecko API.
type CoinGeckoClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewCoinGeckoClient creates a client. An empty baseURL selects the public API,
// an empty apiKey sends no key header.
func NewCoinGeckoClient(baseURL, apiKey string, httpClient *http.Client) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &CoinGeckoClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// MarketChart fetches USD prices and total volumes for coinID over the last days.
// One request, no retries.
func (c *CoinGeckoClient) MarketChart(ctx context.Context, coinID string, days int) (*MarketChart, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("days", strconv.Itoa(days))
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart?%s", c.baseURL, url.PathEscape(coinID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create HTTP request")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(coinGeckoKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(body)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: msg}
	}

	var chart MarketChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "decode market_chart: %v", err)
	}

	return &chart, nil
}
