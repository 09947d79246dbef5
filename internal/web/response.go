package web

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vadiminshakov/cryptorisk/internal/services/market/collector"
)

// envelope wraps every API payload.
type envelope struct {
	Succeeded bool     `json:"succeeded"`
	Message   string   `json:"message,omitempty"`
	Data      any      `json:"data"`
	Errors    []string `json:"errors,omitempty"`
}

func respond(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Succeeded: true, Data: data})
}

func respondError(c *gin.Context, status int, message string, errs ...string) {
	c.JSON(status, envelope{Succeeded: false, Message: message, Errors: errs})
}

func noData(assetID string) string {
	return fmt.Sprintf("No data found for asset: %s", assetID)
}

// statusFor maps a fetch error to the response status and message.
func statusFor(err error, assetID string) (int, string) {
	kind, ok := collector.KindOf(err)
	if !ok {
		return http.StatusInternalServerError, "Internal server error"
	}

	switch kind {
	case collector.KindEmpty, collector.KindUnsupported:
		return http.StatusNotFound, noData(assetID)
	case collector.KindRateLimited:
		return http.StatusTooManyRequests, fmt.Sprintf("Market data provider rate limit reached for asset: %s", assetID)
	case collector.KindTransport, collector.KindMalformed:
		return http.StatusBadGateway, fmt.Sprintf("Market data unavailable for asset: %s", assetID)
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
