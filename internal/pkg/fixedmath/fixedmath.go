// Package fixedmath provides checked unsigned 64-bit arithmetic with
// basis-point scaling. Every primitive either returns a value or ErrOverflow;
// there is no floating point anywhere.
package fixedmath

import (
	"errors"

	"github.com/holiman/uint256"
)

// BpsDenominator is the basis-point scale: 10 000 bps = 1.0.
const BpsDenominator uint64 = 10_000

// ErrOverflow is returned by every primitive whose result does not fit.
var ErrOverflow = errors.New("arithmetic overflow")

// Add returns a + b.
func Add(a, b uint64) (uint64, error) {
	sum, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow || !sum.IsUint64() {
		return 0, ErrOverflow
	}
	return sum.Uint64(), nil
}

// Sub returns a - b. Underflow is reported as ErrOverflow.
func Sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrOverflow
	}
	return a - b, nil
}

// Mul returns a * b. The product is formed in 256 bits and must fit in 64.
func Mul(a, b uint64) (uint64, error) {
	product, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow || !product.IsUint64() {
		return 0, ErrOverflow
	}
	return product.Uint64(), nil
}

// Div returns a / b truncated toward zero. Division by zero is ErrOverflow.
func Div(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, ErrOverflow
	}
	return a / b, nil
}

// MulBps returns x * bps / 10 000. The intermediate product x * bps is
// itself checked, so a product above 2^64-1 fails even when the scaled
// result would fit.
func MulBps(x, bps uint64) (uint64, error) {
	product, err := Mul(x, bps)
	if err != nil {
		return 0, err
	}
	return Div(product, BpsDenominator)
}

// Add32 returns a + b for 32-bit counters.
func Add32(a, b uint32) (uint32, error) {
	sum := a + b
	if sum < a {
		return 0, ErrOverflow
	}
	return sum, nil
}

// SaturatingAdd32 returns a + b clamped to the maximum uint32.
func SaturatingAdd32(a, b uint32) uint32 {
	sum := a + b
	if sum < a {
		return ^uint32(0)
	}
	return sum
}

// Min returns the smaller of a and b.
func Min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
