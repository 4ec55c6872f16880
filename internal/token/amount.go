package token

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var maxRawAmount = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// ParseAmount parses a human amount such as "12.5".
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// ToRaw scales a human amount to base units: amount × 10^decimals, rounded
// half away from zero. Amounts that are not positive after scaling, or that
// exceed a u64, are rejected. decimals is not capped here; mints created
// elsewhere may use more than MaxDecimals.
func ToRaw(amount decimal.Decimal, decimals uint8) (uint64, error) {
	if amount.Sign() <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, amount)
	}

	raw := amount.Shift(int32(decimals)).Round(0)
	if raw.Sign() <= 0 {
		return 0, fmt.Errorf("%w: %s is below the smallest unit at %d decimals", ErrInvalidAmount, amount, decimals)
	}
	if raw.GreaterThan(maxRawAmount) {
		return 0, fmt.Errorf("%w: %s overflows at %d decimals", ErrInvalidAmount, amount, decimals)
	}
	return raw.BigInt().Uint64(), nil
}

// FromRaw converts base units to a human amount.
func FromRaw(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
}

// FromRawString converts a base-unit integer string to a human amount.
func FromRawString(raw string, decimals uint8) (decimal.Decimal, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: raw amount %q", ErrInvalidAmount, raw)
	}
	return decimal.NewFromBigInt(n, -int32(decimals)), nil
}
