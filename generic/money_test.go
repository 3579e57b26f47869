package generic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/payroll-engine/generic"
)

func TestToMoney_HalfUp(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"0.5", 1},
		{"1.49", 1},
		{"2.5", 3},
		{"-2.5", -3},
		{"681818.18181825", 681818},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, generic.ToMoney(generic.MustDecimal(tt.in)))
		})
	}
}

func TestDivScaled_SixPlaces(t *testing.T) {
	got := generic.DivScaled(generic.Money(20_000_000), generic.MustDecimal("22"))
	assert.Equal(t, "909090.909091", got.String())
}
