// Package pricing converts between ledger units (US cents) and settlement-asset
// base units using exact integer ratios.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned when no trustworthy price can be produced.
var ErrUnavailable = errors.New("price unavailable")

// ErrOverflow is returned when a conversion does not fit in int64.
var ErrOverflow = errors.New("price conversion overflows int64")

// Source produces the current quote.
type Source interface {
	Quote(ctx context.Context) (Quote, error)
}

// Quote states that LedgerUnits ledger units are worth exactly BaseUnits base units.
type Quote struct {
	LedgerUnits int64
	BaseUnits   int64
	AsOf        time.Time
}

// Valid reports whether both sides of the ratio are positive.
func (q Quote) Valid() error {
	if q.LedgerUnits <= 0 || q.BaseUnits <= 0 {
		return fmt.Errorf("%w: non-positive quote %d/%d", ErrUnavailable, q.LedgerUnits, q.BaseUnits)
	}
	return nil
}

// ToBase converts ledger units to base units, rounding down.
func (q Quote) ToBase(units int64) (int64, error) {
	return q.convert(units, q.BaseUnits, q.LedgerUnits)
}

// ToLedger converts base units to ledger units, rounding down.
func (q Quote) ToLedger(base int64) (int64, error) {
	return q.convert(base, q.LedgerUnits, q.BaseUnits)
}

func (q Quote) convert(amount, num, den int64) (int64, error) {
	if err := q.Valid(); err != nil {
		return 0, err
	}
	if amount < 0 {
		return 0, fmt.Errorf("negative amount %d", amount)
	}
	n := new(big.Int).Mul(big.NewInt(amount), big.NewInt(num))
	n.Quo(n, big.NewInt(den))
	if !n.IsInt64() {
		return 0, ErrOverflow
	}
	return n.Int64(), nil
}

// FromUSDPrice builds a quote from the USD price of one whole asset, where one whole
// asset is baseUnitsPerAsset base units. Prices are kept to six decimals of a cent.
func FromUSDPrice(price decimal.Decimal, baseUnitsPerAsset int64, asOf time.Time) (Quote, error) {
	if !price.IsPositive() {
		return Quote{}, fmt.Errorf("%w: non-positive price %s", ErrUnavailable, price)
	}
	if baseUnitsPerAsset <= 0 {
		return Quote{}, fmt.Errorf("invalid base units per asset %d", baseUnitsPerAsset)
	}

	cents := price.Shift(2).Round(6)
	ledger := new(big.Int).Set(cents.Coefficient())
	base := big.NewInt(baseUnitsPerAsset)
	if exp := cents.Exponent(); exp >= 0 {
		ledger.Mul(ledger, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil))
	} else {
		base.Mul(base, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-exp)), nil))
	}

	gcd := new(big.Int).GCD(nil, nil, ledger, base)
	ledger.Quo(ledger, gcd)
	base.Quo(base, gcd)
	if !ledger.IsInt64() || !base.IsInt64() || ledger.Sign() <= 0 {
		return Quote{}, fmt.Errorf("%w: price %s out of range", ErrUnavailable, price)
	}

	return Quote{LedgerUnits: ledger.Int64(), BaseUnits: base.Int64(), AsOf: asOf}, nil
}
