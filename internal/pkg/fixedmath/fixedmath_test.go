package fixedmath

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMulBps(t *testing.T) {
	tests := []struct {
		name    string
		x       uint64
		bps     uint64
		want    uint64
		wantErr bool
	}{
		{"daily rate on 1000", 1000, 3000, 300, false},
		{"max multiplier on 1000", 1000, 15000, 1500, false},
		{"truncates toward zero", 999, 1, 0, false},
		{"zero bps", 123456, 0, 0, false},
		{"identity", 42, BpsDenominator, 42, false},
		{"intermediate overflow", 1 << 63, 10000, 0, true},
		{"max times one", math.MaxUint64, 1, math.MaxUint64 / BpsDenominator, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MulBps(tt.x, tt.bps)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOverflow)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckedPrimitives(t *testing.T) {
	_, err := Add(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = Sub(1, 2)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = Mul(math.MaxUint32+1, math.MaxUint32+1)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = Div(10, 0)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = Add32(math.MaxUint32, 1)
	assert.ErrorIs(t, err, ErrOverflow)

	v, err := Div(7, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), v)

	assert.Equal(t, uint32(math.MaxUint32), SaturatingAdd32(math.MaxUint32-1, 5))
	assert.Equal(t, uint32(7), SaturatingAdd32(3, 4))
	assert.Equal(t, uint64(3), Min(3, 9))
}

// TestMulMatchesBigIntProperty checks Mul and MulBps against math/big.
func TestMulMatchesBigIntProperty(t *testing.T) {
	maxU64 := new(big.Int).SetUint64(math.MaxUint64)

	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Uint64().Draw(t, "a")
		b := rapid.Uint64().Draw(t, "b")

		want := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
		got, err := Mul(a, b)
		if want.Cmp(maxU64) > 0 {
			if err == nil {
				t.Fatalf("Mul(%d, %d) should overflow, got %d", a, b, got)
			}
		} else if err != nil || got != want.Uint64() {
			t.Fatalf("Mul(%d, %d) = %d, %v; want %s", a, b, got, err, want)
		}

		scaled, err := MulBps(a, b)
		if want.Cmp(maxU64) > 0 {
			if err == nil {
				t.Fatalf("MulBps(%d, %d) should overflow", a, b)
			}
			return
		}
		wantScaled := new(big.Int).Div(want, new(big.Int).SetUint64(BpsDenominator))
		if err != nil || scaled != wantScaled.Uint64() {
			t.Fatalf("MulBps(%d, %d) = %d, %v; want %s", a, b, scaled, err, wantScaled)
		}
	})
}

// TestAddSubProperty checks that Add and Sub agree with each other.
func TestAddSubProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Uint64().Draw(t, "a")
		b := rapid.Uint64Range(0, math.MaxUint64-a).Draw(t, "b")

		sum, err := Add(a, b)
		if err != nil {
			t.Fatalf("Add(%d, %d) unexpected overflow", a, b)
		}
		back, err := Sub(sum, b)
		if err != nil || back != a {
			t.Fatalf("Sub(Add(a, b), b) = %d, %v; want %d", back, err, a)
		}
	})
}
