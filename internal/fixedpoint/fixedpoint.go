package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrInvalidAmount is returned when a decimal string cannot be represented
// as a scaled integer for the target token decimals.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseUnits converts a human-readable decimal string into a raw token
// amount scaled by 10^decimals. The fractional part must fit the token's
// precision exactly; negative and non-numeric inputs are rejected.
func ParseUnits(s string, decimals uint8) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("%w: negative amount %q", ErrInvalidAmount, s)
	}

	whole := s
	frac := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		whole, frac = s[:idx], s[idx+1:]
	}
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("%w: %q exceeds %d decimal places", ErrInvalidAmount, s, decimals)
	}

	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return nil, fmt.Errorf("%w: %q is not numeric", ErrInvalidAmount, s)
	}

	// Right-pad the fraction to the full precision and glue the parts
	// together as one integer literal.
	padded := frac + strings.Repeat("0", int(decimals)-len(frac))
	out, ok := new(big.Int).SetString(whole+padded, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return out, nil
}

// FormatUnits converts a raw token amount back into a decimal string.
// Trailing fractional zeros are trimmed; whole amounts render without a dot.
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}

	sign := ""
	abs := new(big.Int).Abs(amount)
	if amount.Sign() < 0 {
		sign = "-"
	}

	scale := pow10(decimals)
	whole, frac := new(big.Int).QuoRem(abs, scale, new(big.Int))

	if frac.Sign() == 0 {
		return sign + whole.String()
	}

	fracStr := frac.String()
	if pad := int(decimals) - len(fracStr); pad > 0 {
		fracStr = strings.Repeat("0", pad) + fracStr
	}
	fracStr = strings.TrimRight(fracStr, "0")
	return sign + whole.String() + "." + fracStr
}

// ToFloat converts a raw token amount into a float64 in display units.
// Display only; reserve math must stay in the integer domain.
func ToFloat(amount *big.Int, decimals uint8) float64 {
	if amount == nil {
		return 0
	}
	f := new(big.Float).SetInt(amount)
	f.Quo(f, new(big.Float).SetInt(pow10(decimals)))
	out, _ := f.Float64()
	return out
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
