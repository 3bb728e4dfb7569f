package xslices_test

import (
	"testing"

	"github.com/gradflow/gradflow/types/xslices"
	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	assert.Equal(t, []int{2, 4, 6}, xslices.Map([]int{1, 2, 3}, func(e int) int { return 2 * e }))
	assert.Equal(t, []string{"1", "2"}, xslices.Map([]byte{'1', '2'}, func(e byte) string { return string(e) }))
	assert.Empty(t, xslices.Map([]int(nil), func(e int) int { return e }))
}

func TestIota(t *testing.T) {
	assert.Equal(t, []int{5, 6, 7}, xslices.Iota(5, 3))
	assert.Equal(t, []float64{0, 1}, xslices.Iota(0.0, 2))
}
