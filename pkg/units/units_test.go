package units

import (
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func Test_Units(t *testing.T) {
	t.Run("Planck to DOT and back", func(t *testing.T) {
		planck := FromPlanckUint64(1_000_000_000_000)
		dot := planck.ToDisplay()
		assert.Equal(t, DOT, dot.Unit())
		assert.Equal(t, int64(100), dot.Value().Int64())

		back := FromDotUint64(100).ToBase()
		assert.Equal(t, Planck, back.Unit())
		assert.Equal(t, int64(1_000_000_000_000), back.Value().Int64())
	})
	t.Run("Display to base to display is exact", func(t *testing.T) {
		for _, n := range []uint64{0, 1, 7, 100, 100_000, 1 << 40, ^uint64(0)} {
			got := FromDotUint64(n).ToBase().ToDisplay()
			assert.Equal(t, new(big.Int).SetUint64(n).String(), got.Value().String())
		}
	})
	t.Run("Base to display truncates", func(t *testing.T) {
		assert.True(t, FromPlanckUint64(1).ToDisplay().IsZero())
		assert.Equal(t, int64(1), FromPlanckUint64(19_999_999_999).ToDisplay().Value().Int64())

		exact := FromPlanckUint64(30_000_000_000)
		assert.True(t, exact.ToDisplay().ToBase().Equal(exact))

		lossy := FromPlanckUint64(30_000_000_001)
		assert.False(t, lossy.ToDisplay().ToBase().Equal(lossy))
	})
	t.Run("Conversions do not mutate the receiver", func(t *testing.T) {
		v := big.NewInt(5)
		a := FromDot(v)
		v.SetInt64(9)
		_ = a.ToBase()
		assert.Equal(t, int64(5), a.Value().Int64())
		a.Value().SetInt64(11)
		assert.Equal(t, int64(5), a.Value().Int64())
	})
	t.Run("Decimal keeps the fraction", func(t *testing.T) {
		assert.Equal(t, "1.5", FromPlanckUint64(15_000_000_000).Decimal().String())
		assert.Equal(t, "0.0000000001", FromPlanckUint64(1).Decimal().String())
		assert.Equal(t, "42", FromDotUint64(42).Decimal().String())
	})
	t.Run("String", func(t *testing.T) {
		assert.Equal(t, "10 Planck", FromPlanckUint64(10).String())
		assert.Equal(t, "3 DOT", FromDotUint64(3).String())
	})
	t.Run("ParseDot", func(t *testing.T) {
		a, err := ParseDot("100000")
		assert.Nil(t, err)
		assert.True(t, a.Equal(FromDotUint64(100_000)))

		_, err = ParseDot("-1")
		assert.True(t, errors.Is(err, ErrInvalidAmount))

		_, err = ParseDot("1.5")
		assert.True(t, errors.Is(err, ErrInvalidAmount))
	})
	t.Run("U128 bounds", func(t *testing.T) {
		v, err := FromDotUint64(1).U128()
		assert.Nil(t, err)
		assert.Equal(t, PlanckPerDot.String(), v.String())

		huge := new(big.Int).Lsh(big.NewInt(1), 128)
		_, err = FromPlanck(huge).U128()
		assert.True(t, errors.Is(err, ErrInvalidAmount))
	})
	t.Run("Cmp across units", func(t *testing.T) {
		assert.Equal(t, 0, FromDotUint64(1).Cmp(FromPlanck(PlanckPerDot)))
		assert.Equal(t, -1, FromPlanckUint64(1).Cmp(FromDotUint64(1)))
	})
}
