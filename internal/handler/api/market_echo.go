package api

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/hub"
	"TradePulse/internal/registry"
	"TradePulse/internal/service/binance"
	"TradePulse/internal/usecase"
	apphttp "TradePulse/pkg/http"
	applogger "TradePulse/pkg/logger"
)

// MarketHandler exposes the pipeline's read/admin surface: latest
// prices, signals, consensus, symbol tracking, synchronization, hub
// introspection, and candles.
type MarketHandler struct {
	collector *usecase.PriceCollector
	engine    *usecase.SignalEngine
	sync      *usecase.SymbolSync
	registry  *registry.Service
	candles   drepo.CandleStore
	hubReg    *hub.Registry
	logger    *applogger.Logger

	syncBatchSize   int
	syncConcurrency int
}

// NewMarketHandler wires the handler.
func NewMarketHandler(
	collector *usecase.PriceCollector,
	engine *usecase.SignalEngine,
	symSync *usecase.SymbolSync,
	reg *registry.Service,
	candles drepo.CandleStore,
	hubReg *hub.Registry,
	logger *applogger.Logger,
) *MarketHandler {
	return &MarketHandler{
		collector: collector,
		engine:    engine,
		sync:      symSync,
		registry:  reg,
		candles:   candles,
		hubReg:    hubReg,
		logger:    logger,
	}
}

// SetSyncDefaults overrides the batch size and concurrency used for
// triggered synchronization runs.
func (h *MarketHandler) SetSyncDefaults(batchSize, concurrency int) {
	h.syncBatchSize = batchSize
	h.syncConcurrency = concurrency
}

// RegisterRoutes registers the API routes.
func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/prices", h.AllPrices)
	g.GET("/prices/:symbol", h.Price)
	g.GET("/signals", h.Signals)
	g.GET("/consensus", h.Consensus)
	g.GET("/symbols", h.Symbols)
	g.POST("/symbols/track", h.TrackSymbol)
	g.POST("/sync", h.Sync)
	g.GET("/sync/status", h.SyncStatus)
	g.GET("/hubs/:hub/stats", h.HubStats)
	g.GET("/candles", h.Candles)
	g.GET("/candles/range", h.CandleRange)
}

// AllPrices returns the latest-price table.
func (h *MarketHandler) AllPrices(c echo.Context) error {
	return apphttp.SuccessResponse(c, h.collector.AllLatestPrices())
}

// Price returns the latest price for one symbol.
func (h *MarketHandler) Price(c echo.Context) error {
	symbol := c.Param("symbol")
	u, ok := h.collector.LatestPrice(symbol)
	if !ok {
		return apphttp.AppErrorResponse(c, apphttp.NotFoundErrorf("no price for symbol %s", symbol))
	}
	return apphttp.SuccessResponse(c, u)
}

// Signals evaluates and returns the current signal set for a
// symbol/timeframe.
func (h *MarketHandler) Signals(c echo.Context) error {
	var req models.SignalsRequest
	if errs := apphttp.ReadAndValidateRequest(c, &req); errs != nil {
		return apphttp.BadRequestResponse(c, errs)
	}
	out, err := h.engine.Evaluate(c.Request().Context(), req.Symbol, drepo.Timeframe(req.TF))
	if err != nil {
		h.logger.Error("api: signal evaluation failed", applogger.Error(err))
		return apphttp.InternalServerErrorResponse(c)
	}
	return apphttp.ListResponse(c, out, int64(len(out)))
}

// Consensus returns the aggregated directional call for a
// symbol/timeframe.
func (h *MarketHandler) Consensus(c echo.Context) error {
	var req models.ConsensusRequest
	if errs := apphttp.ReadAndValidateRequest(c, &req); errs != nil {
		return apphttp.BadRequestResponse(c, errs)
	}
	cons, err := h.engine.Consensus(c.Request().Context(), req.Symbol, drepo.Timeframe(req.TF))
	if err != nil {
		h.logger.Error("api: consensus failed", applogger.Error(err))
		return apphttp.InternalServerErrorResponse(c)
	}
	return apphttp.SuccessResponse(c, cons)
}

// Symbols lists active catalog entries.
func (h *MarketHandler) Symbols(c echo.Context) error {
	rows := h.registry.ListActive()
	return apphttp.ListResponse(c, rows, int64(len(rows)))
}

// TrackSymbol marks a symbol tracked/untracked and refreshes the
// upstream subscription when tracking turns on.
func (h *MarketHandler) TrackSymbol(c echo.Context) error {
	var req models.TrackSymbolRequest
	if errs := apphttp.ReadAndValidateRequest(c, &req); errs != nil {
		return apphttp.BadRequestResponse(c, errs)
	}
	ticker, ok := binance.NormalizeSymbol(req.Symbol)
	if !ok {
		return apphttp.AppErrorResponse(c, apphttp.BadRequestErrorf("unrecognized symbol %q", req.Symbol))
	}
	ctx := c.Request().Context()
	if req.Tracked {
		if _, _, err := h.registry.ResolveOrCreate(ctx, ticker, req.Venue, "CRYPTO"); err != nil {
			return apphttp.AppErrorResponse(c, apphttp.BadRequestErrorf("cannot register symbol: %v", err))
		}
	}
	sym, err := h.registry.SetTracked(ctx, ticker, req.Venue, req.Tracked)
	if err != nil {
		return apphttp.AppErrorResponse(c, apphttp.NotFoundErrorf("unknown symbol %s", ticker))
	}
	if req.Tracked {
		h.collector.Subscribe(sym.Ticker)
	}
	return apphttp.SuccessResponse(c, sym)
}

// Sync triggers a symbol synchronization run.
func (h *MarketHandler) Sync(c echo.Context) error {
	var req models.SyncRequest
	if errs := apphttp.ReadAndValidateRequest(c, &req); errs != nil {
		return apphttp.BadRequestResponse(c, errs)
	}
	result, err := h.sync.SynchronizeMissingSymbols(c.Request().Context(), usecase.SyncOptions{
		AssetClass:  req.AssetClass,
		BatchSize:   h.syncBatchSize,
		Concurrency: h.syncConcurrency,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrSyncRunning) {
			return apphttp.AppErrorResponse(c, apphttp.NewAppError("ERR_SYNC_RUNNING", "", "a synchronization is already running", 409))
		}
		h.logger.Error("api: synchronization failed", applogger.Error(err))
		return apphttp.InternalServerErrorResponse(c)
	}
	return apphttp.SuccessResponse(c, result)
}

// SyncStatus reports synchronization state and data-quality indicators.
func (h *MarketHandler) SyncStatus(c echo.Context) error {
	status, err := h.sync.Status(c.Request().Context())
	if err != nil {
		h.logger.Error("api: sync status failed", applogger.Error(err))
		return apphttp.InternalServerErrorResponse(c)
	}
	return apphttp.SuccessResponse(c, status)
}

// HubStats reports one hub's connection and group statistics.
func (h *MarketHandler) HubStats(c echo.Context) error {
	return apphttp.SuccessResponse(c, h.hubReg.HubStats(c.Param("hub")))
}

// Candles returns the latest n candles for a symbol/timeframe.
func (h *MarketHandler) Candles(c echo.Context) error {
	var req models.CandlesRequest
	if errs := apphttp.ReadAndValidateRequest(c, &req); errs != nil {
		return apphttp.BadRequestResponse(c, errs)
	}
	out, err := h.candles.GetLatestNCandles(c.Request().Context(), req.Symbol, req.N, drepo.Timeframe(req.TF))
	if err != nil {
		h.logger.Error("api: candles query failed", applogger.Error(err))
		return apphttp.InternalServerErrorResponse(c)
	}
	return apphttp.ListResponse(c, out, int64(len(out)))
}

// CandleRange returns candles between two instants. from/to accept
// RFC3339 or unix seconds and default to the last 24 hours.
func (h *MarketHandler) CandleRange(c echo.Context) error {
	symbol := c.QueryParam("symbol")
	if symbol == "" {
		return apphttp.AppErrorResponse(c, apphttp.BadRequestError("symbol is required"))
	}
	tf := c.QueryParam("tf")
	if tf == "" {
		tf = "1h"
	}
	now := time.Now()
	to := apphttp.ParseTimeDefault(c.QueryParam("to"), now)
	from := apphttp.ParseTimeDefault(c.QueryParam("from"), now.Add(-24*time.Hour))
	if !from.Before(to) {
		return apphttp.AppErrorResponse(c, apphttp.BadRequestError("from must precede to"))
	}
	out, err := h.candles.GetCandles(c.Request().Context(), symbol, from, to, drepo.Timeframe(tf))
	if err != nil {
		h.logger.Error("api: candle range query failed", applogger.Error(err))
		return apphttp.InternalServerErrorResponse(c)
	}
	return apphttp.ListResponse(c, out, int64(len(out)))
}

var _ apphttp.Handler = (*MarketHandler)(nil)
