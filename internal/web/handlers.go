package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vadiminshakov/cryptorisk/internal/domain"
)

type handler struct {
	fetcher marketDataFetcher
	engine  riskCalculator
	logger  *zap.Logger
}

type riskAnalysisResponse struct {
	AssetID string `json:"assetId"`
	domain.RiskResult
	Source string `json:"source"`
}

// riskAnalysis serves GET /api/riskanalysis/:assetId?days=N.
func (h *handler) riskAnalysis(c *gin.Context) {
	assetID := strings.TrimSpace(c.Param("assetId"))
	rawDays := c.Query("days")
	window, valid := parseDays(rawDays)

	logger := h.logger.With(
		zap.String("asset", assetID),
		zap.Int("days", window.Days()),
		zap.String("request_id", c.GetString(requestIDKey)),
	)
	if !valid {
		logger.Warn("invalid days parameter, defaulting", zap.String("days_param", rawDays))
	}
	logger.Info("risk analysis requested")

	data, err := h.fetcher.Fetch(c.Request.Context(), assetID, window.Days())
	if err != nil {
		status, message := statusFor(err, assetID)
		if status >= http.StatusInternalServerError {
			logger.Error("market data fetch failed", zap.Error(err))
		} else {
			logger.Warn("market data fetch failed", zap.Error(err))
		}
		if status == http.StatusNotFound || status == http.StatusInternalServerError {
			respondError(c, status, message)
			return
		}
		respondError(c, status, message, err.Error())
		return
	}
	if data.Empty() {
		logger.Warn("no data found for asset")
		respondError(c, http.StatusNotFound, noData(assetID))
		return
	}

	result := h.engine.ComputeRisk(data.Prices, data.CurrentVolume, data.AverageVolume)

	logger.Info("risk calculated",
		zap.Float64("composite", result.CompositeRiskScore),
		zap.String("source", data.Source),
	)

	respond(c, riskAnalysisResponse{
		AssetID:    assetID,
		RiskResult: result,
		Source:     data.Source,
	})
}

// parseDays accepts 7, 30 or 90 and falls back to the default window.
// A missing parameter is valid.
func parseDays(raw string) (domain.Window, bool) {
	if raw == "" {
		return domain.DefaultWindow, true
	}
	days, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return domain.DefaultWindow, false
	}
	return domain.ParseWindow(days)
}

func (h *handler) assets(c *gin.Context) {
	respond(c, domain.Assets())
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
