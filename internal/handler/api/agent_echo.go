package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"ExtremeScan/internal/domain/models"
	domrepo "ExtremeScan/internal/domain/repository"
	"ExtremeScan/internal/service/metrics"
	"ExtremeScan/internal/service/ratelimit"
	"ExtremeScan/internal/usecase"
	xhttp "ExtremeScan/pkg/http"
	xlogger "ExtremeScan/pkg/logger"

	"github.com/labstack/echo/v4"
)

// TrendlineSource returns the trendlines retained for a symbol.
type TrendlineSource interface {
	Trendlines(symbol string) []models.Trendline
}

// SignalStream upgrades a request to a push connection and blocks until it ends.
type SignalStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request) error
}

// AgentEchoHandler exposes the background service, the agent and the signal store.
type AgentEchoHandler struct {
	logger  *xlogger.Logger
	svc     *usecase.BackgroundService
	agent   *usecase.SignalAgent
	store   domrepo.SignalStore
	lines   TrendlineSource
	stream  SignalStream
	limiter *ratelimit.Limiter
}

func NewAgentEchoHandler(
	logger *xlogger.Logger,
	svc *usecase.BackgroundService,
	agent *usecase.SignalAgent,
	store domrepo.SignalStore,
	lines TrendlineSource,
	stream SignalStream,
	limiter *ratelimit.Limiter,
) *AgentEchoHandler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &AgentEchoHandler{
		logger:  logger,
		svc:     svc,
		agent:   agent,
		store:   store,
		lines:   lines,
		stream:  stream,
		limiter: limiter,
	}
}

func (h *AgentEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/agent/status", h.Status)
	g.POST("/agent/start", h.Start)
	g.POST("/agent/stop", h.Stop)
	g.PUT("/agent/config", h.Configure)

	g.GET("/signals/active", h.ActiveSignals)
	g.POST("/signals/check", h.CheckSymbol)
	g.GET("/signals/:id", h.GetSignal)
	g.PATCH("/signals/:id/status", h.UpdateStatus)

	g.GET("/trendlines", h.Trendlines)

	if h.stream != nil {
		e.GET("/ws/signals", h.Stream)
	}
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// fail maps domain errors onto HTTP errors and counts them.
func (h *AgentEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
	case errors.Is(err, domrepo.ErrSignalNotFound):
		appErr = xhttp.NotFoundErrorf("signal not found").WithError(err)
	case errors.Is(err, domrepo.ErrInvalidTransition):
		appErr = xhttp.ConflictErrorf("invalid status transition").WithError(err)
	case errors.Is(err, usecase.ErrNotInitialized), errors.Is(err, usecase.ErrNoFetcher):
		appErr = xhttp.ConflictErrorf("%s", err.Error()).WithError(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		appErr = xhttp.NewAppError("ERR_TIMEOUT", "", "request cancelled", http.StatusServiceUnavailable).WithError(err)
	default:
		h.logger.Error("agent api error", xlogger.String("endpoint", endpoint), xlogger.Error(err))
		appErr = xhttp.InternalErrorf("%s failed", endpoint).WithError(err)
	}
	metrics.APIErrors.WithLabelValues(endpoint, appErr.Code).Inc()
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *AgentEchoHandler) badRequest(c echo.Context, endpoint string, verr []xhttp.ValidationError) error {
	metrics.APIErrors.WithLabelValues(endpoint, "ERR_VALIDATION").Inc()
	return xhttp.BadRequestResponse(c, verr)
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func (h *AgentEchoHandler) Status(c echo.Context) error {
	defer observe("agent_status", time.Now())
	return xhttp.SuccessResponse(c, h.svc.Status())
}

func (h *AgentEchoHandler) Start(c echo.Context) error {
	defer observe("agent_start", time.Now())
	if err := h.svc.Start(); err != nil {
		return h.fail(c, "agent_start", err)
	}
	return xhttp.SuccessResponse(c, h.agent.Status())
}

func (h *AgentEchoHandler) Stop(c echo.Context) error {
	defer observe("agent_stop", time.Now())
	h.svc.Stop()
	return xhttp.SuccessResponse(c, h.agent.Status())
}

func (h *AgentEchoHandler) Configure(c echo.Context) error {
	defer observe("agent_config", time.Now())
	req := &models.ConfigureAgentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "agent_config", verr)
	}

	patch := models.AgentConfigPatch{
		Enabled:       req.Enabled,
		MinConfidence: req.MinConfidence,
		MinVolumeUSD:  req.MinVolumeUSD,
	}
	if req.Symbols != nil {
		patch.Symbols = make([]string, 0, len(req.Symbols))
		for _, s := range req.Symbols {
			patch.Symbols = append(patch.Symbols, normalizeSymbol(s))
		}
	}
	if req.CheckIntervalMs != nil {
		d := time.Duration(*req.CheckIntervalMs) * time.Millisecond
		patch.CheckInterval = &d
	}

	if err := h.agent.Configure(patch); err != nil {
		return h.fail(c, "agent_config", err)
	}
	return xhttp.SuccessResponse(c, h.agent.Config())
}

func (h *AgentEchoHandler) ActiveSignals(c echo.Context) error {
	defer observe("signals_active", time.Now())
	req := &models.ActiveSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "signals_active", verr)
	}

	symbol := normalizeSymbol(req.Symbol)
	all := h.svc.ActiveSignals()
	rows := make([]*models.ExtremePoint, 0, len(all))
	for _, s := range all {
		if symbol == "" || s.Symbol == symbol {
			rows = append(rows, s)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Timestamp > rows[j].Timestamp })
	total := int64(len(rows))
	if len(rows) > req.Limit {
		rows = rows[:req.Limit]
	}
	return xhttp.ListResponse(c, rows, total)
}

func (h *AgentEchoHandler) GetSignal(c echo.Context) error {
	defer observe("signal_get", time.Now())
	req := &models.SignalIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "signal_get", verr)
	}
	sig, ok := h.store.Get(req.ID)
	if !ok {
		return h.fail(c, "signal_get", domrepo.ErrSignalNotFound)
	}
	return xhttp.SuccessResponse(c, sig)
}

func (h *AgentEchoHandler) UpdateStatus(c echo.Context) error {
	defer observe("signal_status", time.Now())
	req := &models.UpdateStatusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "signal_status", verr)
	}
	if err := h.store.UpdateStatus(req.ID, models.SignalStatus(req.Status)); err != nil {
		return h.fail(c, "signal_status", err)
	}
	sig, ok := h.store.Get(req.ID)
	if !ok {
		return h.fail(c, "signal_status", domrepo.ErrSignalNotFound)
	}
	h.logger.Info("signal status updated",
		xlogger.String("id", req.ID),
		xlogger.String("status", req.Status),
		xlogger.String("remote", c.RealIP()),
	)
	return xhttp.SuccessResponse(c, sig)
}

func (h *AgentEchoHandler) CheckSymbol(c echo.Context) error {
	defer observe("signals_check", time.Now())
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()+":check") {
		metrics.RateLimited.WithLabelValues("signals_check").Inc()
		h.logger.Warn("signals.check rate_limited", xlogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limited"))
	}
	req := &models.CheckSymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "signals_check", verr)
	}

	det, err := h.agent.CheckSymbol(c.Request().Context(), normalizeSymbol(req.Symbol))
	if err != nil {
		return h.fail(c, "signals_check", err)
	}
	return xhttp.SuccessResponse(c, det)
}

type trendlinesResponse struct {
	Symbol     string             `json:"symbol"`
	Trendlines []models.Trendline `json:"trendlines"`
}

func (h *AgentEchoHandler) Trendlines(c echo.Context) error {
	defer observe("trendlines", time.Now())
	req := &models.TrendlinesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "trendlines", verr)
	}
	symbol := normalizeSymbol(req.Symbol)
	lines := h.lines.Trendlines(symbol)
	if lines == nil {
		lines = []models.Trendline{}
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, trendlinesResponse{Symbol: symbol, Trendlines: lines})
}

// Stream holds the request open for the lifetime of the socket.
func (h *AgentEchoHandler) Stream(c echo.Context) error {
	if err := h.stream.ServeWS(c.Response(), c.Request()); err != nil {
		// the upgrader has already written the HTTP error
		h.logger.Debug("signal stream rejected", xlogger.String("remote", c.RealIP()), xlogger.Error(err))
	}
	return nil
}
