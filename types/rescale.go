// rescale.go implements exact timestamp conversion between time bases.

package types

import (
	"fmt"
	"math"
	"math/bits"
)

// NoPTSValue marks an absent timestamp; rescaling passes it through.
const NoPTSValue int64 = math.MinInt64

// Rounding selects how Rescale rounds an inexact quotient.
type Rounding int

const (
	RoundingZero    = Rounding(0)
	RoundingInf     = Rounding(1)
	RoundingDown    = Rounding(2)
	RoundingUp      = Rounding(3)
	RoundingNearInf = Rounding(5)

	// RoundingPassMinMax may be OR-ed with another mode to pass
	// math.MinInt64 and math.MaxInt64 through unchanged.
	RoundingPassMinMax = Rounding(8192)
)

func (r Rounding) String() string {
	var s string
	switch r &^ RoundingPassMinMax {
	case RoundingZero:
		s = "zero"
	case RoundingInf:
		s = "inf"
	case RoundingDown:
		s = "down"
	case RoundingUp:
		s = "up"
	case RoundingNearInf:
		s = "near_inf"
	default:
		return fmt.Sprintf("Rounding(%d)", int(r))
	}
	if r&RoundingPassMinMax != 0 {
		s += "|pass_minmax"
	}
	return s
}

// Rescale converts ts from the src time base to dst rounding to nearest,
// halfway cases away from zero. NoPTSValue passes through unchanged.
func Rescale(ts int64, src, dst Rational) int64 {
	return RescaleRnd(ts, src, dst, RoundingNearInf|RoundingPassMinMax)
}

// RescaleRnd is Rescale with an explicit rounding mode.
//
// The product is computed in 128 bits, so the result is exact whenever
// it fits into int64; on overflow it saturates.
func RescaleRnd(ts int64, src, dst Rational, rnd Rounding) int64 {
	if ts == NoPTSValue {
		return NoPTSValue
	}
	b := int64(src.Num) * int64(dst.Den)
	c := int64(dst.Num) * int64(src.Den)
	return rescaleRnd(ts, b, c, rnd)
}

// rescaleRnd computes a*b/c.
func rescaleRnd(a, b, c int64, rnd Rounding) int64 {
	if c <= 0 || b < 0 {
		return NoPTSValue
	}
	mode := rnd &^ RoundingPassMinMax
	if mode < 0 || mode > RoundingNearInf || mode == 4 {
		return NoPTSValue
	}
	if rnd&RoundingPassMinMax != 0 {
		if a == math.MinInt64 || a == math.MaxInt64 {
			return a
		}
		rnd = mode
	}

	if a < 0 {
		if a == math.MinInt64 {
			a = -math.MaxInt64
		}
		// Down and Up swap meaning for negative values.
		return -rescaleRnd(-a, b, c, rnd^((rnd>>1)&1))
	}

	var r uint64
	switch {
	case rnd == RoundingNearInf:
		r = uint64(c / 2)
	case rnd&1 != 0:
		r = uint64(c - 1)
	}

	hi, lo := bits.Mul64(uint64(a), uint64(b))
	var carry uint64
	lo, carry = bits.Add64(lo, r, 0)
	hi += carry
	if hi >= uint64(c) {
		return math.MaxInt64
	}
	q, _ := bits.Div64(hi, lo, uint64(c))
	if q > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(q)
}

// CompareTs returns -1, 0 or 1 when tsA in tbA is before, at or after
// tsB in tbB.
func CompareTs(tsA int64, tbA Rational, tsB int64, tbB Rational) int {
	a := int64(tbA.Num) * int64(tbB.Den)
	b := int64(tbB.Num) * int64(tbA.Den)
	if absU64(tsA)|uint64(a)|absU64(tsB)|uint64(b) <= math.MaxInt32 {
		l, r := tsA*a, tsB*b
		switch {
		case l < r:
			return -1
		case l > r:
			return 1
		}
		return 0
	}
	if rescaleRnd(tsA, a, b, RoundingDown) < tsB {
		return -1
	}
	if rescaleRnd(tsB, b, a, RoundingDown) < tsA {
		return 1
	}
	return 0
}

func absU64(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}
