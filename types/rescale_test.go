package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRescale(t *testing.T) {
	t.Parallel()

	ms := NewRational(1, 1000)
	us := TimeBaseMicroseconds
	for _, tc := range []struct {
		name string
		ts   int64
		src  Rational
		dst  Rational
		want int64
	}{
		{name: "ms_to_us", ts: 1, src: ms, dst: us, want: 1000},
		{name: "us_to_ms_half_up", ts: 1500, src: us, dst: ms, want: 2},
		{name: "us_to_ms_half_negative", ts: -1500, src: us, dst: ms, want: -2},
		{name: "us_to_ms_below_half", ts: 1499, src: us, dst: ms, want: 1},
		{name: "samples_to_us", ts: 1024, src: NewRational(1, 48000), dst: us, want: 21333},
		{name: "no_pts", ts: NoPTSValue, src: us, dst: ms, want: NoPTSValue},
		{name: "zero", ts: 0, src: ms, dst: us, want: 0},
		{name: "wide_product", ts: 1 << 62, src: NewRational(1, 48000), dst: NewRational(1, 90000), want: 15 << 59},
		{name: "saturate", ts: math.MaxInt64 - 1, src: NewRational(1, 1), dst: NewRational(1, 2), want: math.MaxInt64},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Rescale(tc.ts, tc.src, tc.dst))
		})
	}
}

func TestRescaleRnd(t *testing.T) {
	t.Parallel()

	us := TimeBaseMicroseconds
	ms := NewRational(1, 1000)
	for _, tc := range []struct {
		rnd  Rounding
		ts   int64
		want int64
	}{
		{RoundingZero, 1500, 1},
		{RoundingInf, 1500, 2},
		{RoundingDown, 1500, 1},
		{RoundingUp, 1500, 2},
		{RoundingNearInf, 1500, 2},
		{RoundingZero, -1500, -1},
		{RoundingInf, -1500, -2},
		{RoundingDown, -1500, -2},
		{RoundingUp, -1500, -1},
		{RoundingNearInf, -1500, -2},
		{RoundingNearInf, 1400, 1},
	} {
		require.Equal(t, tc.want, RescaleRnd(tc.ts, us, ms, tc.rnd), "%s(%d)", tc.rnd, tc.ts)
	}

	require.Equal(t, int64(math.MaxInt64), RescaleRnd(math.MaxInt64, us, ms, RoundingNearInf|RoundingPassMinMax))
	require.Equal(t, NoPTSValue, RescaleRnd(10, us, Rational{Num: 1, Den: 0}, RoundingNearInf))
}

func TestRescaleRoundTrip(t *testing.T) {
	t.Parallel()

	a := NewRational(1, 1000)
	b := NewRational(1, 48000)
	for ts := int64(-5000); ts <= 5000; ts += 7 {
		require.Equal(t, ts, Rescale(Rescale(ts, a, b), b, a))
	}
}

func TestCompareTs(t *testing.T) {
	t.Parallel()

	ms := NewRational(1, 1000)
	s48k := NewRational(1, 48000)
	require.Equal(t, 0, CompareTs(1, ms, 48, s48k))
	require.Equal(t, -1, CompareTs(1, ms, 49, s48k))
	require.Equal(t, 1, CompareTs(2, ms, 95, s48k))
	require.Equal(t, -1, CompareTs(-1, ms, 0, s48k))
	require.Equal(t, 1, CompareTs(1<<40, ms, 1<<40, s48k))
	require.Equal(t, 0, CompareTs(1<<40, ms, 48<<40, s48k))
}
