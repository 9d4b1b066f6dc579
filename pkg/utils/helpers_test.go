package utils

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Helpers(t *testing.T) {
	t.Run("Should map with indexes", func(t *testing.T) {
		out := Map([]string{"a", "b"}, func(s string, i uint64) string {
			return s + strconv.FormatUint(i, 10)
		})
		assert.Equal(t, []string{"a0", "b1"}, out)
	})
	t.Run("Should filter", func(t *testing.T) {
		out := Filter([]int{1, 2, 3, 4}, func(i int) bool { return i%2 == 0 })
		assert.Equal(t, []int{2, 4}, out)
		assert.Equal(t, []int{}, Filter([]int{1}, func(i int) bool { return false }))
	})
	t.Run("Should snake case metric names", func(t *testing.T) {
		assert.Equal(t, "tx_finality_duration", SnakeCase("tx.finality-duration"))
		assert.Equal(t, "currentBlockHeight", SnakeCase("currentBlockHeight"))
	})
}
