package swap

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// NativeDecimals is the base-unit exponent of SOL (1 SOL = 10^9 lamports).
const NativeDecimals = 9

const bpsDenominator = 10_000

var hundred = decimal.NewFromInt(100)

// ToBaseUnits converts whole native units to lamports, truncating toward zero.
func ToBaseUnits(amount decimal.Decimal) (uint64, error) {
	if amount.IsNegative() {
		return 0, NewError(KindInvalidAmount, fmt.Sprintf("amount must be non-negative, got %s", amount), nil)
	}
	return toUint64(amount.Shift(NativeDecimals).Truncate(0))
}

// ApplySlippage returns amount + floor(amount*bps/10000).
func ApplySlippage(amount uint64, bps int) (uint64, error) {
	if bps < 0 {
		return 0, NewError(KindInvalidAmount, fmt.Sprintf("slippage bps must be non-negative, got %d", bps), nil)
	}
	base := new(big.Int).SetUint64(amount)
	extra := new(big.Int).Mul(base, big.NewInt(int64(bps)))
	extra.Quo(extra, big.NewInt(bpsDenominator))
	total := extra.Add(extra, base)
	if !total.IsUint64() {
		return 0, NewError(KindInvalidAmount, fmt.Sprintf("amount %d with %d bps slippage overflows", amount, bps), nil)
	}
	return total.Uint64(), nil
}

// PercentOf returns floor(balance*pct/100) for pct in [0, 100].
func PercentOf(balance uint64, pct decimal.Decimal) (uint64, error) {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return 0, NewError(KindInvalidAmount, fmt.Sprintf("sell percentage must be within 0-100, got %s", pct), nil)
	}
	held := decimal.NewFromBigInt(new(big.Int).SetUint64(balance), 0)
	return toUint64(held.Mul(pct).Shift(-2).Floor())
}

func toUint64(d decimal.Decimal) (uint64, error) {
	bi := d.BigInt()
	if bi.Sign() < 0 || !bi.IsUint64() {
		return 0, NewError(KindInvalidAmount, fmt.Sprintf("amount %s out of range", d), nil)
	}
	return bi.Uint64(), nil
}
