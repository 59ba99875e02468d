package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"currency-tracker/internal/apperrors"
	"currency-tracker/internal/domain/model"
	"currency-tracker/internal/domain/ports"
	"currency-tracker/internal/metrics"
	"currency-tracker/internal/service"
	"currency-tracker/pkg/logger"
	"currency-tracker/pkg/utils"
)

const (
	defaultTrendDays = 7

	// manualIngestTimeout bounds a manual cycle, which runs detached from the request.
	manualIngestTimeout = 2 * time.Minute
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type AverageResponse struct {
	Currency model.Currency `json:"currency"`
	Days     int            `json:"days"`
	Average  string         `json:"average"`
}

type TrendResponse struct {
	Currency model.Currency `json:"currency"`
	Days     int            `json:"days"`
	Trend    model.Trend    `json:"trend"`
}

type HistoryResponse struct {
	Currency     model.Currency          `json:"currency"`
	From         string                  `json:"from"`
	To           string                  `json:"to"`
	Observations []model.RateObservation `json:"observations"`
}

// CycleTrigger runs an ingestion cycle on demand. The scheduler implements it so a
// manual cycle never overlaps a scheduled one.
type CycleTrigger interface {
	Trigger(ctx context.Context) model.CycleReport
}

type Handler struct {
	service ports.RateService
	trigger CycleTrigger
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewHandler wires the query endpoints. With a nil trigger, manual ingestion runs
// straight through the service. Nil metrics are replaced by an unregistered set.
func NewHandler(service ports.RateService, trigger CycleTrigger, log *logger.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		service: service,
		trigger: trigger,
		log:     log,
		metrics: orUnregistered(m),
	}
}

func orUnregistered(m *metrics.Metrics) *metrics.Metrics {
	if m == nil {
		return metrics.NewMetrics(prometheus.NewRegistry())
	}
	return m
}

func (h *Handler) GetLatestRateHandler(c *gin.Context) {
	h.metrics.LatestRequestsTotal.Inc()

	currency := c.Query("currency")
	if currency == "" {
		h.sendErrorResponse(c, http.StatusBadRequest, "missing required parameter: currency")
		return
	}

	rate, err := h.service.GetLatest(c.Request.Context(), currency)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.sendSuccessResponse(c, rate)
}

func (h *Handler) GetHistoryHandler(c *gin.Context) {
	h.metrics.HistoryRequestsTotal.Inc()

	currency := c.Query("currency")
	fromStr := c.Query("from")
	toStr := c.Query("to")

	if currency == "" || fromStr == "" || toStr == "" {
		h.sendErrorResponse(c, http.StatusBadRequest, "missing required parameters: currency, from, and to")
		return
	}

	from, err := utils.ParseDate(fromStr)
	if err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "invalid from format, use YYYY-MM-DD")
		return
	}

	to, err := utils.ParseDate(toStr)
	if err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "invalid to format, use YYYY-MM-DD")
		return
	}

	rates, err := h.service.GetHistory(c.Request.Context(), currency, from, to)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	var code model.Currency
	if len(rates) > 0 {
		code = rates[0].Currency
	} else if parsed, perr := model.ParseCurrency(currency); perr == nil {
		code = parsed
	}

	h.sendSuccessResponse(c, HistoryResponse{
		Currency:     code,
		From:         utils.FormatDate(from),
		To:           utils.FormatDate(to),
		Observations: rates,
	})
}

func (h *Handler) GetAverageHandler(c *gin.Context) {
	h.metrics.AnalyticsRequestsTotal.WithLabelValues("average").Inc()

	currency := c.Query("currency")
	daysStr := c.Query("days")
	if daysStr == "" {
		daysStr = c.Query("period")
	}

	if currency == "" || daysStr == "" {
		h.sendErrorResponse(c, http.StatusBadRequest, "missing required parameters: currency and days")
		return
	}

	days, err := strconv.Atoi(daysStr)
	if err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "invalid days parameter")
		return
	}

	avg, err := h.service.GetAverage(c.Request.Context(), currency, days)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	code, _ := model.ParseCurrency(currency)
	h.sendSuccessResponse(c, AverageResponse{
		Currency: code,
		Days:     days,
		Average:  avg.StringFixed(service.AverageScale),
	})
}

func (h *Handler) GetTrendHandler(c *gin.Context) {
	h.metrics.AnalyticsRequestsTotal.WithLabelValues("trend").Inc()

	currency := c.Query("currency")
	if currency == "" {
		h.sendErrorResponse(c, http.StatusBadRequest, "missing required parameter: currency")
		return
	}

	days := defaultTrendDays
	if daysStr := c.Query("days"); daysStr != "" {
		var err error
		days, err = strconv.Atoi(daysStr)
		if err != nil {
			h.sendErrorResponse(c, http.StatusBadRequest, "invalid days parameter")
			return
		}
	}

	trend, err := h.service.GetTrend(c.Request.Context(), currency, days)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	code, _ := model.ParseCurrency(currency)
	h.sendSuccessResponse(c, TrendResponse{
		Currency: code,
		Days:     days,
		Trend:    trend,
	})
}

// RunIngestionHandler fires a cycle and reports it. Per-currency failures are part
// of the report, so the response is 200 even when some currencies failed. The cycle
// outlives a client disconnect: it runs on a context detached from the request.
func (h *Handler) RunIngestionHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), manualIngestTimeout)
	defer cancel()

	var report model.CycleReport
	if h.trigger != nil {
		report = h.trigger.Trigger(ctx)
	} else {
		report = h.service.RunIngestion(ctx)
	}

	h.log.Info("Manual ingestion cycle completed",
		"cycle_id", report.ID,
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
	)
	h.sendSuccessResponse(c, report)
}

func (h *Handler) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func (h *Handler) sendSuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func (h *Handler) sendErrorResponse(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, Response{
		Success: false,
		Error:   message,
	})
}

func (h *Handler) handleServiceError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	errorMessage := "internal server error"

	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		errorMessage = err.Error()
	case errors.Is(err, apperrors.ErrNotFound):
		statusCode = http.StatusNotFound
		errorMessage = "no rate stored for this currency yet"
	case errors.Is(err, apperrors.ErrNoData):
		statusCode = http.StatusNotFound
		errorMessage = "rate provider has no data for this request"
	case errors.Is(err, apperrors.ErrSourceUnavailable):
		statusCode = http.StatusServiceUnavailable
		errorMessage = "rate provider unavailable"
	}

	log := requestLogger(c, h.log)
	if statusCode >= http.StatusInternalServerError {
		log.Error("Service error", "error", err, "status_code", statusCode)
	} else {
		log.Info("Request rejected", "error", err, "status_code", statusCode)
	}
	h.sendErrorResponse(c, statusCode, errorMessage)
}
