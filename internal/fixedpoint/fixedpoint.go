// Package fixedpoint holds the overflow-checked arithmetic used to convert
// balances with 18-decimal scaled exchange rates.
//
// Amounts and rates live in the Uint128 range. Products are computed on 256-bit
// integers and rejected when they leave that range, so nothing ever wraps.
package fixedpoint

import (
	"fmt"
	"fxrelay/internal/domain"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const (
	Decimals = 18
	maxBits  = 128
)

// Scale is 10^18, the denominator of every scaled rate.
var Scale = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(Decimals))

// ComputeConvertedAmount returns floor(balance * rate / 10^18).
func ComputeConvertedAmount(balance, rate *uint256.Int) (*uint256.Int, error) {
	return mulDiv(balance, rate, Scale)
}

func mulDiv(a, b, divisor *uint256.Int) (*uint256.Int, error) {
	if a.BitLen() > maxBits || b.BitLen() > maxBits {
		return nil, domain.ErrArithmeticOverflow
	}
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow || product.BitLen() > maxBits {
		return nil, fmt.Errorf("%w: %s * %s", domain.ErrArithmeticOverflow, a.Dec(), b.Dec())
	}
	if divisor.IsZero() {
		return nil, fmt.Errorf("%w: cannot divide %s by zero", domain.ErrDivision, product.Dec())
	}
	return product.Div(product, divisor), nil
}

// ParseUint128 parses a base-10 unsigned integer such as an arithmetic TWAP.
func ParseUint128(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", domain.ErrNumericParse)
	}
	if strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrNumericParse, s)
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", domain.ErrNumericParse, s, err)
	}
	if v.BitLen() > maxBits {
		return nil, fmt.Errorf("%w: %q exceeds 128 bits", domain.ErrNumericParse, s)
	}
	return v, nil
}

// FromDecimal scales d by 10^18, truncating extra precision.
func FromDecimal(d decimal.Decimal) (*uint256.Int, error) {
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative value %s", domain.ErrNumericParse, d.String())
	}
	return ParseUint128(d.Shift(Decimals).Truncate(0).String())
}

// ToDecimal is the inverse of FromDecimal, used for logging and display.
func ToDecimal(v *uint256.Int) decimal.Decimal {
	return decimal.NewFromBigInt(v.ToBig(), -Decimals)
}
