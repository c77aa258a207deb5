// Package timing converts master clock cycles into task periods with exact
// rational arithmetic and drives the tasks of a machine.
package timing

import (
	"errors"
	"fmt"
	"math/bits"
)

// Errors reported by rational arithmetic.
var (
	ErrZeroDenominator = errors.New("timing: zero denominator")
	ErrRatioOverflow   = errors.New("timing: ratio overflows 64 bits")
)

// A Ratio is an exact non-negative rational number. Ratios are always stored
// in lowest terms, so two equal ratios compare equal with ==.
type Ratio struct {
	num uint64
	den uint64
}

// NewRatio creates num/den in lowest terms.
func NewRatio(num, den uint64) (Ratio, error) {
	if den == 0 {
		return Ratio{}, fmt.Errorf("%w: %d/0", ErrZeroDenominator, num)
	}

	if num == 0 {
		return Ratio{num: 0, den: 1}, nil
	}

	g := gcd(num, den)

	return Ratio{num: num / g, den: den / g}, nil
}

// MustRatio is NewRatio for constants. It panics if den is 0.
func MustRatio(num, den uint64) Ratio {
	r, err := NewRatio(num, den)
	if err != nil {
		panic(err)
	}

	return r
}

// Num returns the numerator.
func (r Ratio) Num() uint64 {
	return r.num
}

// Den returns the denominator.
func (r Ratio) Den() uint64 {
	if r.den == 0 {
		return 1
	}

	return r.den
}

// IsZero tells if the ratio is 0.
func (r Ratio) IsZero() bool {
	return r.num == 0
}

// Mul returns r*o.
func (r Ratio) Mul(o Ratio) (Ratio, error) {
	if r.IsZero() || o.IsZero() {
		return Ratio{num: 0, den: 1}, nil
	}

	g1 := gcd(r.num, o.Den())
	g2 := gcd(o.num, r.Den())

	num, err := mul64(r.num/g1, o.num/g2)
	if err != nil {
		return Ratio{}, err
	}

	den, err := mul64(r.Den()/g2, o.Den()/g1)
	if err != nil {
		return Ratio{}, err
	}

	return Ratio{num: num, den: den}, nil
}

// Inv returns 1/r.
func (r Ratio) Inv() (Ratio, error) {
	if r.IsZero() {
		return Ratio{}, fmt.Errorf("%w: inverse of 0", ErrZeroDenominator)
	}

	return Ratio{num: r.Den(), den: r.num}, nil
}

// Div returns r/o.
func (r Ratio) Div(o Ratio) (Ratio, error) {
	inv, err := o.Inv()
	if err != nil {
		return Ratio{}, err
	}

	return r.Mul(inv)
}

// Cmp returns -1, 0 or 1 when r is less than, equal to or greater than o.
func (r Ratio) Cmp(o Ratio) int {
	lhsHi, lhsLo := bits.Mul64(r.num, o.Den())
	rhsHi, rhsLo := bits.Mul64(o.num, r.Den())

	switch {
	case lhsHi < rhsHi || (lhsHi == rhsHi && lhsLo < rhsLo):
		return -1
	case lhsHi == rhsHi && lhsLo == rhsLo:
		return 0
	default:
		return 1
	}
}

// Floor returns floor(n*r). The result saturates at the largest uint64.
func (r Ratio) Floor(n uint64) uint64 {
	hi, lo := bits.Mul64(n, r.num)
	if hi >= r.Den() {
		return ^uint64(0)
	}

	q, _ := bits.Div64(hi, lo, r.Den())

	return q
}

// Float64 returns the nearest float64 value.
func (r Ratio) Float64() float64 {
	return float64(r.num) / float64(r.Den())
}

func (r Ratio) String() string {
	if r.Den() == 1 {
		return fmt.Sprintf("%d", r.num)
	}

	return fmt.Sprintf("%d/%d", r.num, r.Den())
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}

	return a
}

func mul64(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d * %d", ErrRatioOverflow, a, b)
	}

	return lo, nil
}
