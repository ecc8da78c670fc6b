package server

import (
	"time"

	"github.com/farhan-ashraf/simpledex-analytics/internal/models"
)

// ErrorResponse is the standardized error envelope for every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details any    `json:"details,omitempty"` // dev mode only
}

// HealthResponse reports liveness plus the refresh cycle's condition.
type HealthResponse struct {
	OK           bool   `json:"ok"`
	RefreshState string `json:"refresh_state"`
	Stale        bool   `json:"stale"`
	LastError    string `json:"last_error,omitempty"`
}

// MetricsResponse wraps the published snapshot with its provenance.
type MetricsResponse struct {
	Metrics   models.PoolMetrics `json:"metrics"`
	FetchedAt time.Time          `json:"fetched_at"`
	Stale     bool               `json:"stale"`
}

// SummaryResponse wraps the lightweight summary view.
type SummaryResponse struct {
	Summary models.PoolSummary `json:"summary"`
	Stale   bool               `json:"stale"`
}

// QuoteResponse is the user-facing quote. Amounts are decimal strings in
// display units.
type QuoteResponse struct {
	TokenIn          string    `json:"token_in"`
	TokenOut         string    `json:"token_out"`
	AmountIn         string    `json:"amount_in"`
	AmountOut        string    `json:"amount_out"`
	ExchangeRate     float64   `json:"exchange_rate"`
	PriceImpactPct   float64   `json:"price_impact_pct"`
	FeeAmount        string    `json:"fee_amount"`
	MinimumAmountOut string    `json:"minimum_amount_out"`
	ToleranceBps     uint16    `json:"tolerance_bps"`
	Deadline         time.Time `json:"deadline"`
	Stale            bool      `json:"stale"`
}

// WithdrawPreviewResponse shows what burning an LP amount returns at the
// current reserves.
type WithdrawPreviewResponse struct {
	Liquidity string `json:"liquidity"`
	AmountA   string `json:"amount_a"`
	AmountB   string `json:"amount_b"`
	TokenA    string `json:"token_a"`
	TokenB    string `json:"token_b"`
	Stale     bool   `json:"stale"`
}

// PositionResponse is a user's live LP position.
type PositionResponse struct {
	User          string `json:"user"`
	Liquidity     string `json:"liquidity"`
	ShareBasisPts uint32 `json:"share_basis_pts"`
}

// PreferenceRequest carries a slippage preference update.
type PreferenceRequest struct {
	ToleranceBps    uint16 `json:"tolerance_bps"`
	DeadlineMinutes uint16 `json:"deadline_minutes"`
}

// RefreshResponse acknowledges an on-demand refresh request.
type RefreshResponse struct {
	Triggered bool `json:"triggered"`
}

// AIAskRequest is a natural language question about swap history.
type AIAskRequest struct {
	Question string `json:"question"`
	Model    string `json:"model"` // optional model override
}

// AIAskResponse carries the generated SQL and the answer.
type AIAskResponse struct {
	SQL    string `json:"sql"`
	Answer string `json:"answer"`
	TookMs int64  `json:"took_ms"`
}
