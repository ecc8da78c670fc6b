package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/farhan-ashraf/simpledex-analytics/internal/amm"
	"github.com/farhan-ashraf/simpledex-analytics/internal/fixedpoint"
	"github.com/farhan-ashraf/simpledex-analytics/internal/guard"
	"github.com/farhan-ashraf/simpledex-analytics/internal/models"
	"github.com/farhan-ashraf/simpledex-analytics/internal/prefs"
)

// Quote prices a trade intent against the published reserves snapshot.
//
// Query parameters:
//
//	tokenIn      required, token symbol being paid
//	amount       required, decimal amount in display units
//	slippageBps  optional, overrides the stored preference for this quote
//	user         optional, loads the user's stored slippage preference
//
// Out-of-range slippage overrides are clamped rather than rejected: on
// the trade path a quote must always be producible.
func (h *Handlers) Quote(c echo.Context) error {
	snap := h.Scheduler.Snapshot()
	if snap == nil {
		return h.err(c, http.StatusServiceUnavailable, "reserves not ready", nil)
	}

	tokenIn := strings.TrimSpace(c.QueryParam("tokenIn"))
	dir, decIn, err := h.direction(tokenIn)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid tokenIn", map[string]any{
			"tokenIn": "must be " + h.TokenASymbol + " or " + h.TokenBSymbol,
		})
	}

	amountStr := strings.TrimSpace(c.QueryParam("amount"))
	if amountStr == "" {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "required"})
	}
	amountIn, err := fixedpoint.ParseUnits(amountStr, decIn)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be a non-negative decimal"})
	}

	pref, err := h.quotePreference(c)
	if err != nil {
		return err // already a JSON response
	}

	quote, err := h.Quoter.Quote(snap.Reserves, dir, amountIn, pref.ToleranceBps)
	if err != nil {
		if errors.Is(err, amm.ErrInsufficientLiquidity) {
			return h.err(c, http.StatusUnprocessableEntity, "insufficient liquidity", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to quote", nil)
	}

	decOut := h.Quoter.DecimalsB
	tokenOut := h.TokenBSymbol
	if dir == amm.BToA {
		decOut = h.Quoter.DecimalsA
		tokenOut = h.TokenASymbol
	}

	return c.JSON(http.StatusOK, QuoteResponse{
		TokenIn:          tokenIn,
		TokenOut:         tokenOut,
		AmountIn:         fixedpoint.FormatUnits(quote.AmountIn, decIn),
		AmountOut:        fixedpoint.FormatUnits(quote.AmountOut, decOut),
		ExchangeRate:     quote.ExchangeRate,
		PriceImpactPct:   quote.PriceImpactPct,
		FeeAmount:        fixedpoint.FormatUnits(quote.FeeAmount, decIn),
		MinimumAmountOut: fixedpoint.FormatUnits(quote.MinimumAmountOut, decOut),
		ToleranceBps:     pref.ToleranceBps,
		Deadline:         guard.Expiry(h.clock(), pref.DeadlineMinutes),
		Stale:            h.Scheduler.Stale(),
	})
}

// WithdrawPreview shows the token amounts returned for burning an LP
// amount at the published reserves.
func (h *Handlers) WithdrawPreview(c echo.Context) error {
	snap := h.Scheduler.Snapshot()
	if snap == nil {
		return h.err(c, http.StatusServiceUnavailable, "reserves not ready", nil)
	}

	liqStr := strings.TrimSpace(c.QueryParam("liquidity"))
	if liqStr == "" {
		return h.err(c, http.StatusBadRequest, "invalid liquidity", map[string]any{"liquidity": "required"})
	}
	liquidity, err := fixedpoint.ParseUnits(liqStr, h.LPDecimals)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid liquidity", map[string]any{"liquidity": "must be a non-negative decimal"})
	}

	amountA, amountB, err := amm.WithdrawAmounts(
		snap.Reserves.ReserveA, snap.Reserves.ReserveB, snap.Reserves.TotalLiquidity, liquidity)
	if err != nil {
		if errors.Is(err, amm.ErrInsufficientLiquidity) {
			return h.err(c, http.StatusUnprocessableEntity, "insufficient liquidity", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to preview withdrawal", nil)
	}

	return c.JSON(http.StatusOK, WithdrawPreviewResponse{
		Liquidity: fixedpoint.FormatUnits(liquidity, h.LPDecimals),
		AmountA:   fixedpoint.FormatUnits(amountA, h.Quoter.DecimalsA),
		AmountB:   fixedpoint.FormatUnits(amountB, h.Quoter.DecimalsB),
		TokenA:    h.TokenASymbol,
		TokenB:    h.TokenBSymbol,
		Stale:     h.Scheduler.Stale(),
	})
}

func (h *Handlers) direction(tokenIn string) (amm.Direction, uint8, error) {
	switch {
	case strings.EqualFold(tokenIn, h.TokenASymbol):
		return amm.AToB, h.Quoter.DecimalsA, nil
	case strings.EqualFold(tokenIn, h.TokenBSymbol):
		return amm.BToA, h.Quoter.DecimalsB, nil
	default:
		return 0, 0, errors.New("unknown token")
	}
}

// quotePreference resolves the slippage settings for one quote: explicit
// slippageBps wins, then the user's stored preference, then the defaults.
func (h *Handlers) quotePreference(c echo.Context) (models.SlippagePreference, error) {
	pref := guard.DefaultPreference()

	if user := strings.TrimSpace(c.QueryParam("user")); user != "" && h.Prefs != nil {
		if err := prefs.ValidateUser(user); err != nil {
			return pref, h.err(c, http.StatusBadRequest, "invalid user", map[string]any{"user": "invalid format"})
		}

		ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()

		stored, err := h.Prefs.Load(ctx, user)
		if err != nil {
			return pref, h.err(c, http.StatusInternalServerError, "failed to load preference", nil)
		}
		pref = stored
	}

	if v := strings.TrimSpace(c.QueryParam("slippageBps")); v != "" {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return pref, h.err(c, http.StatusBadRequest, "invalid slippageBps", map[string]any{"slippageBps": "must be uint16"})
		}
		pref.ToleranceBps = uint16(n)
	}

	return guard.Clamp(pref), nil
}
