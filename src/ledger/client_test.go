package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmountToUIAmount(t *testing.T) {
	assert.Equal(t, 0.0, AmountToUIAmount(0, 6))
	assert.Equal(t, 1.0, AmountToUIAmount(1_000_000, 6))
	assert.Equal(t, 2.5, AmountToUIAmount(2_500_000, 6))
	assert.Equal(t, 42.0, AmountToUIAmount(42, 0))
	assert.Equal(t, 0.000001, AmountToUIAmount(1, 6))
}
