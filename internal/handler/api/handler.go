package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"MarketSleuth/internal/domain/models"
	drepo "MarketSleuth/internal/domain/repository"
	"MarketSleuth/internal/usecase"
	httpkg "MarketSleuth/pkg/http"
	"MarketSleuth/pkg/logger"
)

// Handler exposes the monitoring pipeline over HTTP.
type Handler struct {
	store        drepo.SignalStore
	monitor      *usecase.Monitor
	investigator *usecase.Investigator
	window       int
	log          *logger.Logger
}

func NewHandler(
	store drepo.SignalStore,
	monitor *usecase.Monitor,
	investigator *usecase.Investigator,
	window int,
	log *logger.Logger,
) *Handler {
	return &Handler{
		store:        store,
		monitor:      monitor,
		investigator: investigator,
		window:       window,
		log:          log,
	}
}

// RegisterRoutes wires handler endpoints.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.GET("/signals", h.Signals)
	g.GET("/investigations", h.Investigations)
	g.POST("/investigate", h.Investigate)
}

func (h *Handler) Health(c echo.Context) error {
	if h.store != nil {
		if err := h.store.Health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Signals lists recently triggered anomaly signals.
func (h *Handler) Signals(c echo.Context) error {
	req := new(models.SignalsRequest)
	if errs := httpkg.ReadAndValidateRequest(c, req); errs != nil {
		return httpkg.BadRequestResponse(c, errs)
	}

	signals, err := h.store.RecentSignals(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		h.log.Error("list signals failed", logger.Error(err))
		return httpkg.InternalServerErrorResponse(c)
	}
	return httpkg.ListResponse(c, signals, int64(len(signals)))
}

// Investigations lists recent investigations, optionally filtered by
// symbol and terminal status.
func (h *Handler) Investigations(c echo.Context) error {
	req := new(models.InvestigationsRequest)
	if errs := httpkg.ReadAndValidateRequest(c, req); errs != nil {
		return httpkg.BadRequestResponse(c, errs)
	}

	invs, err := h.store.RecentInvestigations(c.Request().Context(), req.Symbol, req.Status, req.Limit)
	if err != nil {
		h.log.Error("list investigations failed", logger.Error(err))
		return httpkg.InternalServerErrorResponse(c)
	}
	return httpkg.ListResponse(c, invs, int64(len(invs)))
}

// Investigate scores one symbol on demand and, when triggered or forced,
// runs the full investigation before responding.
func (h *Handler) Investigate(c echo.Context) error {
	req := new(models.InvestigateRequest)
	if errs := httpkg.ReadAndValidateRequest(c, req); errs != nil {
		return httpkg.BadRequestResponse(c, errs)
	}
	if req.Window == 0 {
		req.Window = h.window
	}

	ctx := c.Request().Context()
	sig, err := h.monitor.Check(ctx, req.Symbol, req.Window)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrDataUnavailable):
			return httpkg.AppErrorResponse(c, httpkg.NotFoundErrorf("no market data for %s", req.Symbol).WithError(err))
		case errors.Is(err, models.ErrInsufficientData):
			return httpkg.AppErrorResponse(c, httpkg.BadRequestErrorf("window too short for %s", req.Symbol).WithError(err))
		default:
			h.log.Error("on-demand check failed", logger.String("symbol", req.Symbol), logger.Error(err))
			return httpkg.InternalServerErrorResponse(c)
		}
	}

	if !sig.Triggered && !req.Force {
		return httpkg.SuccessResponse(c, map[string]any{
			"signal":       sig,
			"investigated": false,
		})
	}

	state, err := h.investigator.Investigate(ctx, sig)
	if err != nil {
		// cancelled mid-flight; return the pending state as-is
		h.log.Warn("investigation interrupted", logger.String("symbol", req.Symbol), logger.Error(err))
	}
	return httpkg.SuccessResponse(c, map[string]any{
		"signal":        sig,
		"investigated":  true,
		"investigation": state,
	})
}
