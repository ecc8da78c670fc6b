package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/farhan-ashraf/simpledex-analytics/internal/ai"
	"github.com/farhan-ashraf/simpledex-analytics/internal/amm"
	"github.com/farhan-ashraf/simpledex-analytics/internal/cache"
	"github.com/farhan-ashraf/simpledex-analytics/internal/fixedpoint"
	"github.com/farhan-ashraf/simpledex-analytics/internal/guard"
	"github.com/farhan-ashraf/simpledex-analytics/internal/ledger"
	"github.com/farhan-ashraf/simpledex-analytics/internal/models"
	"github.com/farhan-ashraf/simpledex-analytics/internal/prefs"
	"github.com/farhan-ashraf/simpledex-analytics/internal/scheduler"
)

// Handlers contains all dependencies for API endpoint handlers.
type Handlers struct {
	Scheduler    *scheduler.Scheduler
	Quoter       amm.Quoter
	TokenASymbol string
	TokenBSymbol string
	LPDecimals   uint8

	Prefs  *prefs.Store
	Recent *cache.RecentSwapCache
	Ledger *ledger.Reader

	AI           *ai.Agent
	AIBaseConfig ai.AgentConfig

	DevMode bool
	Logger  *logrus.Logger

	now func() time.Time
}

// err returns a standardized JSON error response. In dev mode it includes
// additional detail for debugging.
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (h *Handlers) clock() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now().UTC()
}

// Health reports liveness plus the refresh cycle's current condition. The
// endpoint stays 200 even when the snapshot is stale; staleness is
// advisory, not an outage.
func (h *Handlers) Health(c echo.Context) error {
	resp := HealthResponse{
		OK:           true,
		RefreshState: h.Scheduler.State().String(),
		Stale:        h.Scheduler.Stale(),
	}
	if err := h.Scheduler.LastError(); err != nil {
		resp.LastError = err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// Metrics serves the last published PoolMetrics snapshot. Before the first
// successful cycle there is nothing to serve and the endpoint answers 503.
func (h *Handlers) Metrics(c echo.Context) error {
	snap := h.Scheduler.Snapshot()
	if snap == nil {
		return h.err(c, http.StatusServiceUnavailable, "metrics not ready", nil)
	}
	return c.JSON(http.StatusOK, MetricsResponse{
		Metrics:   snap.Metrics,
		FetchedAt: snap.FetchedAt,
		Stale:     h.Scheduler.Stale(),
	})
}

// Summary serves the lightweight summary view.
func (h *Handlers) Summary(c echo.Context) error {
	summary := h.Scheduler.Summary()
	if summary == nil {
		return h.err(c, http.StatusServiceUnavailable, "summary not ready", nil)
	}
	return c.JSON(http.StatusOK, SummaryResponse{
		Summary: *summary,
		Stale:   h.Scheduler.Stale(),
	})
}

// RecentSwaps returns the most recent swap events with optional limit
// parameter (default: 100, range: 1-100).
func (h *Handlers) RecentSwaps(c echo.Context) error {
	limitStr := c.QueryParam("limit")
	limit := 100
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 100 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 100"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Recent.Recent(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get swaps", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// Refresh triggers an on-demand metrics refresh, used by the UI after a
// user's own transaction confirms. Requests arriving while a cycle is in
// flight coalesce into it.
func (h *Handlers) Refresh(c echo.Context) error {
	return c.JSON(http.StatusAccepted, RefreshResponse{Triggered: h.Scheduler.Trigger()})
}

// PrefsGet returns the user's slippage preference, falling back to the
// defaults when nothing was saved.
func (h *Handlers) PrefsGet(c echo.Context) error {
	user := c.Param("user")
	if err := prefs.ValidateUser(user); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid user", map[string]any{"user": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	pref, err := h.Prefs.Load(ctx, user)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to load preference", nil)
	}
	return c.JSON(http.StatusOK, pref)
}

// PrefsPut saves the user's slippage preference. Out-of-range values are
// rejected, not clamped; clamping only happens on the quote path.
func (h *Handlers) PrefsPut(c echo.Context) error {
	user := c.Param("user")
	if err := prefs.ValidateUser(user); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid user", map[string]any{"user": "invalid format"})
	}

	var req PreferenceRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Prefs.Save(ctx, user, models.SlippagePreference{
		ToleranceBps:    req.ToleranceBps,
		DeadlineMinutes: req.DeadlineMinutes,
	})
	if err != nil {
		if errors.Is(err, guard.ErrInvalidPreference) {
			return h.err(c, http.StatusBadRequest, "invalid preference", map[string]any{"err": err.Error()})
		}
		return h.err(c, http.StatusInternalServerError, "failed to save preference", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// PrefsDelete reverts the user to the default preference.
func (h *Handlers) PrefsDelete(c echo.Context) error {
	user := c.Param("user")
	if err := prefs.ValidateUser(user); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid user", map[string]any{"user": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Prefs.Delete(ctx, user); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete preference", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

// Position reads a user's live LP position off the ledger.
func (h *Handlers) Position(c echo.Context) error {
	user := c.Param("user")
	if err := prefs.ValidateUser(user); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid user", map[string]any{"user": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	pos, err := h.Ledger.UserLiquidity(ctx, user)
	if err != nil {
		if errors.Is(err, ledger.ErrLedgerUnavailable) {
			return h.err(c, http.StatusBadGateway, "ledger unavailable", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to read position", nil)
	}

	return c.JSON(http.StatusOK, PositionResponse{
		User:          user,
		Liquidity:     fixedpoint.FormatUnits(pos.Amount, h.LPDecimals),
		ShareBasisPts: pos.ShareBasisPts,
	})
}

// AIAsk processes natural language questions about the swap archive.
// Supports an optional per-request model override.
func (h *Handlers) AIAsk(c echo.Context) error {
	if h.AI == nil {
		return h.err(c, http.StatusBadRequest, "ai is not configured", nil)
	}

	var req AIAskRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return h.err(c, http.StatusBadRequest, "question is required", map[string]any{"question": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	start := time.Now()

	agent := h.AI
	if m := strings.TrimSpace(req.Model); m != "" {
		cfg := h.AIBaseConfig
		cfg.Model = m
		tmp, err := ai.NewAgent(ctx, cfg)
		if err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to create ai agent", nil)
		}
		defer func() {
			_ = tmp.Close()
		}()
		agent = tmp
	}

	res, err := agent.Ask(ctx, req.Question)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "ai ask failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, AIAskResponse{SQL: res.SQL, Answer: res.Answer, TookMs: time.Since(start).Milliseconds()})
}
