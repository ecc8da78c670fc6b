package guard

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/farhan-ashraf/simpledex-analytics/internal/models"
)

// ErrInvalidPreference is returned by strict validation when slippage or
// deadline settings fall outside the allowed ranges.
var ErrInvalidPreference = errors.New("invalid preference")

// Preference bounds and defaults. Tolerance is capped at 50% and the
// deadline at 3 days, mirroring the trade panel limits.
const (
	MinToleranceBps = 0
	MaxToleranceBps = 5000
	MinDeadlineMin  = 1
	MaxDeadlineMin  = 4320

	DefaultToleranceBps   = 50
	DefaultDeadlineMin    = 20
	basisPointDenominator = 10000
)

// DefaultPreference returns the settings applied before a user has saved any.
func DefaultPreference() models.SlippagePreference {
	return models.SlippagePreference{
		ToleranceBps:    DefaultToleranceBps,
		DeadlineMinutes: DefaultDeadlineMin,
	}
}

// MinimumAmountOut converts a quoted output into the enforceable floor:
// quoted * (10000 - toleranceBps) / 10000, floored. The tolerance is
// clamped into range first, so the result never exceeds the quote.
func MinimumAmountOut(quotedAmountOut *big.Int, toleranceBps uint16) *big.Int {
	if quotedAmountOut == nil || quotedAmountOut.Sign() <= 0 {
		return big.NewInt(0)
	}
	if toleranceBps > MaxToleranceBps {
		toleranceBps = MaxToleranceBps
	}

	factor := big.NewInt(basisPointDenominator - int64(toleranceBps))
	out := new(big.Int).Mul(quotedAmountOut, factor)
	return out.Div(out, big.NewInt(basisPointDenominator))
}

// Expiry converts a chosen duration into the absolute deadline a transaction
// carries on-chain. The duration is clamped into range first.
func Expiry(now time.Time, deadlineMinutes uint16) time.Time {
	if deadlineMinutes < MinDeadlineMin {
		deadlineMinutes = MinDeadlineMin
	}
	if deadlineMinutes > MaxDeadlineMin {
		deadlineMinutes = MaxDeadlineMin
	}
	return now.Add(time.Duration(deadlineMinutes) * time.Minute)
}

// Clamp coerces a preference into the valid ranges. This is the behavior of
// the trade panel itself: out-of-range input is silently pulled back rather
// than rejected, so a trade can always be priced.
func Clamp(pref models.SlippagePreference) models.SlippagePreference {
	if pref.ToleranceBps > MaxToleranceBps {
		pref.ToleranceBps = MaxToleranceBps
	}
	if pref.DeadlineMinutes < MinDeadlineMin {
		pref.DeadlineMinutes = MinDeadlineMin
	}
	if pref.DeadlineMinutes > MaxDeadlineMin {
		pref.DeadlineMinutes = MaxDeadlineMin
	}
	return pref
}

// Validate is the strict counterpart of Clamp, used at the preferences API
// boundary so persisted state is always in range.
func Validate(pref models.SlippagePreference) error {
	if pref.ToleranceBps > MaxToleranceBps {
		return fmt.Errorf("%w: tolerance %d bps outside [%d, %d]",
			ErrInvalidPreference, pref.ToleranceBps, MinToleranceBps, MaxToleranceBps)
	}
	if pref.DeadlineMinutes < MinDeadlineMin || pref.DeadlineMinutes > MaxDeadlineMin {
		return fmt.Errorf("%w: deadline %d min outside [%d, %d]",
			ErrInvalidPreference, pref.DeadlineMinutes, MinDeadlineMin, MaxDeadlineMin)
	}
	return nil
}
