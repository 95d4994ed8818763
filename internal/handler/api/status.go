// Package api exposes the bot's read-only HTTP surface: the latest status
// snapshot, the active trading parameters, and a health probe.
package api

import (
	"time"

	"github.com/labstack/echo/v4"

	drepo "dogebot/internal/domain/repository"
	xhttp "dogebot/pkg/http"
	xlogger "dogebot/pkg/logger"
)

// StatusHandler serves the status API. All endpoints are read-only; nothing
// here can place an order.
type StatusHandler struct {
	logger *xlogger.Logger
	status drepo.StatusSink
	params drepo.ParamStore
	market drepo.MarketData
}

func NewStatusHandler(logger *xlogger.Logger, status drepo.StatusSink, params drepo.ParamStore, market drepo.MarketData) *StatusHandler {
	return &StatusHandler{logger: logger, status: status, params: params, market: market}
}

func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/params", h.Params)
	g.GET("/candles", h.Candles)
	g.POST("/backtest", h.Backtest)
	e.GET("/healthz", h.Health)
}

// Status returns the latest cycle snapshot, or 404 before the first cycle
// completes.
func (h *StatusHandler) Status(c echo.Context) error {
	snapshot, ok := h.status.Last()
	if !ok {
		return xhttp.NotFoundResponse(c, xhttp.NotFoundError("no status yet"))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.SuccessResponse(c, snapshot)
}

type paramsResponse struct {
	Period      int    `json:"rsi_period"`
	Entry       int    `json:"rsi_entry"`
	Exit        int    `json:"rsi_exit"`
	Granularity string `json:"granularity"`
	Source      string `json:"source"`
}

// Params returns the active trading parameters and where they came from.
func (h *StatusHandler) Params(c echo.Context) error {
	p, source := h.params.Load()
	return xhttp.SuccessResponse(c, paramsResponse{
		Period:      p.Period,
		Entry:       p.Entry,
		Exit:        p.Exit,
		Granularity: string(p.Granularity),
		Source:      source,
	})
}

// Health reports liveness and whether the loop has produced a snapshot
// recently.
func (h *StatusHandler) Health(c echo.Context) error {
	resp := map[string]interface{}{"status": "ok"}
	if snapshot, ok := h.status.Last(); ok {
		resp["last_cycle"] = snapshot.TimestampUTC.Format(time.RFC3339)
	}
	return xhttp.SuccessResponse(c, resp)
}
