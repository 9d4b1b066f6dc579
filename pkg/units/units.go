// Package units models ledger balances and the conversion between the
// smallest indivisible unit (Planck) and the display unit (DOT).
package units

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Unit identifies the denomination an Amount is expressed in.
type Unit int

const (
	// Planck is the base unit of the ledger.
	Planck Unit = iota
	// DOT is the display unit, PlanckPerDot base units.
	DOT
)

// DotDecimals is the number of decimal places between Planck and DOT.
const DotDecimals = 10

// PlanckPerDot is the fixed conversion factor 10^DotDecimals.
var PlanckPerDot = new(big.Int).Exp(big.NewInt(10), big.NewInt(DotDecimals), nil)

// maxU128 is the largest magnitude a ledger balance can hold.
var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

var ErrInvalidAmount = errors.New("invalid amount")

func (u Unit) String() string {
	switch u {
	case Planck:
		return "Planck"
	case DOT:
		return "DOT"
	default:
		return fmt.Sprintf("Unit(%d)", int(u))
	}
}

// Amount is an immutable balance value. The magnitude is never mutated after
// construction; all conversions return a new Amount.
type Amount struct {
	value *big.Int
	unit  Unit
}

func FromPlanck(v *big.Int) Amount {
	return Amount{value: copyOrZero(v), unit: Planck}
}

func FromDot(v *big.Int) Amount {
	return Amount{value: copyOrZero(v), unit: DOT}
}

func FromPlanckUint64(v uint64) Amount {
	return FromPlanck(new(big.Int).SetUint64(v))
}

func FromDotUint64(v uint64) Amount {
	return FromDot(new(big.Int).SetUint64(v))
}

// ParseDot parses a non-negative integer DOT amount, as found in config files
// and on the command line.
func ParseDot(s string) (Amount, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return Amount{}, errors.Wrapf(ErrInvalidAmount, "'%s' is not an integer", s)
	}
	if err := checkU128(v); err != nil {
		return Amount{}, err
	}
	return FromDot(v), nil
}

func checkU128(v *big.Int) error {
	if v.Sign() < 0 {
		return errors.Wrapf(ErrInvalidAmount, "negative amount %s", v.String())
	}
	if v.Cmp(maxU128) > 0 {
		return errors.Wrapf(ErrInvalidAmount, "amount %s overflows u128", v.String())
	}
	return nil
}

func copyOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// Value returns a copy of the magnitude.
func (a Amount) Value() *big.Int {
	return copyOrZero(a.value)
}

func (a Amount) Unit() Unit {
	return a.unit
}

// ToBase converts to Planck. DOT to Planck is an exact multiplication.
func (a Amount) ToBase() Amount {
	if a.unit == Planck {
		return FromPlanck(a.value)
	}
	return Amount{value: new(big.Int).Mul(copyOrZero(a.value), PlanckPerDot), unit: Planck}
}

// ToDisplay converts to DOT, truncating toward zero. ToBase(ToDisplay(x))
// only equals x when x is a multiple of PlanckPerDot; the fractional part
// is dropped on purpose. Use Decimal for a lossless display value.
func (a Amount) ToDisplay() Amount {
	if a.unit == DOT {
		return FromDot(a.value)
	}
	return Amount{value: new(big.Int).Quo(copyOrZero(a.value), PlanckPerDot), unit: DOT}
}

// Decimal returns the exact value in DOT including the fractional part.
func (a Amount) Decimal() decimal.Decimal {
	if a.unit == DOT {
		return decimal.NewFromBigInt(copyOrZero(a.value), 0)
	}
	return decimal.NewFromBigInt(copyOrZero(a.value), -DotDecimals)
}

// U128 returns the Planck magnitude, failing if it does not fit the ledger's
// balance type.
func (a Amount) U128() (*big.Int, error) {
	v := a.ToBase().value
	if err := checkU128(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (a Amount) IsZero() bool {
	return a.value == nil || a.value.Sign() == 0
}

// Cmp compares two amounts in base units.
func (a Amount) Cmp(b Amount) int {
	return a.ToBase().value.Cmp(b.ToBase().value)
}

func (a Amount) Equal(b Amount) bool {
	return a.unit == b.unit && copyOrZero(a.value).Cmp(copyOrZero(b.value)) == 0
}

func (a Amount) String() string {
	return fmt.Sprintf("%s %s", copyOrZero(a.value).String(), a.unit.String())
}
