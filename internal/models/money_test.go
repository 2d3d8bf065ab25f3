package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentOf(t *testing.T) {
	assert.Equal(t, 300.0, PercentOf(1000, 30))
	assert.Equal(t, 33.33, PercentOf(333.33, 10))
	assert.Equal(t, 0.0, PercentOf(1000, 0))
}

func TestAmountEqual_IgnoresFloatNoise(t *testing.T) {
	assert.True(t, AmountEqual(0.1+0.2, 0.3))
	assert.True(t, AmountEqual(SubAmounts(1000, 999.99), 0.01))
	assert.False(t, AmountEqual(0.01, 0.02))
}

func TestAmountGreaterThan(t *testing.T) {
	assert.False(t, AmountGreaterThan(0.1+0.2, 0.3))
	assert.True(t, AmountGreaterThan(0.31, 0.3))
}

func TestAddSubAmounts(t *testing.T) {
	assert.Equal(t, 0.3, AddAmounts(0.1, 0.2))
	assert.Equal(t, 99.99, SubAmounts(100, 0.01))
}
