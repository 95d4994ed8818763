package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"dogebot/internal/backtest"
	"dogebot/internal/domain/models"
	xhttp "dogebot/pkg/http"
	xlogger "dogebot/pkg/logger"
)

const maxCandleLimit = 1000

type backtestRequest struct {
	Days        int     `json:"days" default:"30" validate:"min=1,max=365"`
	Period      int     `json:"rsi_period" default:"14" validate:"min=2,max=100"`
	Entry       int     `json:"rsi_entry" default:"30" validate:"min=1,max=99"`
	Exit        int     `json:"rsi_exit" default:"50" validate:"min=2,max=99,gtfield=Entry"`
	Granularity string  `json:"granularity" default:"SIX_HOUR"`
	FeePct      float64 `json:"fee_pct" validate:"min=0,max=10"`
	SlippagePct float64 `json:"slippage_pct" validate:"min=0,max=10"`
}

type backtestResponse struct {
	ReturnPct  float64 `json:"return_pct"`
	Trades     int     `json:"trades"`
	FinalCash  float64 `json:"final_cash"`
	FinalAsset float64 `json:"final_asset"`
	Candles    int     `json:"candles"`
}

// Backtest replays the configured strategy over recent history with
// caller-supplied parameters. Research only; it never touches live state.
func (h *StatusHandler) Backtest(c echo.Context) error {
	req := new(backtestRequest)
	if errs := xhttp.ReadAndValidateRequest(c, req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}

	g := models.Granularity(req.Granularity)
	if !g.Valid() {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestErrorf("unknown granularity '%s'", req.Granularity))
	}

	end := time.Now().UTC()
	from := end.Add(-time.Duration(req.Days) * 24 * time.Hour)
	candles, err := h.market.CandlesRange(c.Request().Context(), from, end, g)
	if err != nil {
		h.logger.Warn("backtest candle fetch failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}

	res := backtest.Run(candles, models.Params{
		Period:      req.Period,
		Entry:       req.Entry,
		Exit:        req.Exit,
		Granularity: g,
	}, backtest.Options{
		FeePct:      req.FeePct,
		SlippagePct: req.SlippagePct,
	})

	return xhttp.SuccessResponse(c, backtestResponse{
		ReturnPct:  res.ReturnPct,
		Trades:     res.Trades,
		FinalCash:  res.FinalCash,
		FinalAsset: res.FinalAsset,
		Candles:    len(candles),
	})
}

type candleRow struct {
	Start  int64   `json:"start"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Candles returns closed candles in a time window for offline inspection.
// from/to accept RFC3339 or unix seconds; the window defaults to the last day.
func (h *StatusHandler) Candles(c echo.Context) error {
	g := models.Granularity(c.QueryParam("granularity"))
	if g == "" {
		g = models.GranularityOneHour
	}
	if !g.Valid() {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestErrorf("unknown granularity '%s'", c.QueryParam("granularity")))
	}

	now := time.Now().UTC()
	to := xhttp.ParseTimeDefault(c.QueryParam("to"), now)
	from := xhttp.ParseTimeDefault(c.QueryParam("from"), to.Add(-24*time.Hour))
	if !from.Before(to) {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError("'from' must be before 'to'"))
	}
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), maxCandleLimit)
	if limit < 1 || limit > maxCandleLimit {
		limit = maxCandleLimit
	}

	candles, err := h.market.CandlesRange(c.Request().Context(), from, to, g)
	if err != nil {
		h.logger.Warn("candle range fetch failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	rows := make([]candleRow, 0, len(candles))
	for _, cd := range candles {
		rows = append(rows, candleRow{
			Start:  cd.Start,
			Open:   cd.Open,
			High:   cd.High,
			Low:    cd.Low,
			Close:  cd.Close,
			Volume: cd.Volume,
		})
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}
