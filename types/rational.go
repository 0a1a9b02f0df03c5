// rational.go defines Rational, the exact fraction used for time bases and rates.

package types

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	dectofrac "github.com/av-elier/go-decimal-to-rational"
	"gopkg.in/yaml.v3"
)

// Rational is an exact fraction Num/Den. A time base is a Rational
// describing the duration of one timestamp tick in seconds.
type Rational struct {
	Num int32
	Den int32
}

var (
	// TimeBaseMicroseconds is the default time base of decoded frames.
	TimeBaseMicroseconds = Rational{Num: 1, Den: 1000000}
	TimeBaseMilliseconds = Rational{Num: 1, Den: 1000}
)

// NewRational returns num/den reduced to lowest terms with a positive
// denominator. A zero denominator is preserved as is.
func NewRational(num, den int32) Rational {
	return Rational{Num: num, Den: den}.Reduce()
}

func gcd64(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Reduce returns the fraction in lowest terms with a positive denominator.
func (r Rational) Reduce() Rational {
	if r.Den == 0 {
		return r
	}
	num, den := int64(r.Num), int64(r.Den)
	if den < 0 {
		num, den = -num, -den
	}
	if g := gcd64(num, den); g > 1 {
		num /= g
		den /= g
	}
	return Rational{Num: int32(num), Den: int32(den)}
}

// IsValid reports whether the denominator is positive.
func (r Rational) IsValid() bool {
	return r.Den > 0
}

func (r Rational) IsZero() bool {
	return r.Num == 0
}

// Invert swaps the numerator and the denominator.
func (r Rational) Invert() Rational {
	return Rational{Num: r.Den, Den: r.Num}.Reduce()
}

func (r Rational) Mul(other Rational) Rational {
	return fromInt64(int64(r.Num)*int64(other.Num), int64(r.Den)*int64(other.Den))
}

func (r Rational) Div(other Rational) Rational {
	return fromInt64(int64(r.Num)*int64(other.Den), int64(r.Den)*int64(other.Num))
}

// Equal compares the values, so 2/4 equals 1/2.
func (r Rational) Equal(other Rational) bool {
	return int64(r.Num)*int64(other.Den) == int64(other.Num)*int64(r.Den)
}

func fromInt64(num, den int64) Rational {
	if den < 0 {
		num, den = -num, -den
	}
	if g := gcd64(num, den); g > 1 {
		num /= g
		den /= g
	}
	for num > math.MaxInt32 || num < math.MinInt32 || den > math.MaxInt32 {
		num /= 2
		den /= 2
	}
	return Rational{Num: int32(num), Den: int32(den)}
}

func (r Rational) Float64() float64 {
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

func newNTSCRationalFromFloat64(f float64) *big.Rat {
	den := 1001
	num := math.Ceil(f) * 1000
	r := big.NewRat(int64(num), int64(den))
	confirmValue, _ := r.Float64()
	if math.Abs(f-confirmValue) < 1e-2 {
		return r
	}
	return nil
}

// RationalFromApproxFloat64 snaps rates like 29.97 to their NTSC fraction.
func RationalFromApproxFloat64(f float64) Rational {
	if float64(int64(f)) == f {
		return Rational{Num: int32(f), Den: 1}
	}
	if rat := newNTSCRationalFromFloat64(f); rat != nil {
		return fromInt64(rat.Num().Int64(), rat.Denom().Int64())
	}
	return fromInt64(int64(f*1000000), 1000000)
}

func RationalFromFloat64(f float64) Rational {
	if float64(int64(f)) == f {
		return Rational{Num: int32(f), Den: 1}
	}
	rat := dectofrac.NewRatP(f, 1e-6)
	return fromInt64(rat.Num().Int64(), rat.Denom().Int64())
}

// RationalFromString parses "N/D", a decimal, or "~decimal" (approximate).
func RationalFromString(s string) (*Rational, error) {
	var r Rational
	s = strings.TrimSpace(s)
	switch {
	case len(s) == 0:
		return nil, fmt.Errorf("unable to parse Rational from empty string")
	case strings.Contains(s, "/"):
		if _, err := fmt.Sscanf(s, "%d/%d", &r.Num, &r.Den); err != nil {
			return nil, fmt.Errorf("unable to parse Rational from %q: %w", s, err)
		}
	case s[0] == '~':
		f, err := strconv.ParseFloat(s[1:], 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse Rational from %q: %w", s, err)
		}
		r = RationalFromApproxFloat64(f)
	default:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse Rational from %q: %w", s, err)
		}
		r = RationalFromFloat64(f)
	}
	if r.Den == 0 {
		return nil, fmt.Errorf("denominator cannot be zero")
	}
	return &r, nil
}

func (r Rational) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Rational) UnmarshalText(b []byte) error {
	v, err := RationalFromString(string(b))
	if err != nil {
		return err
	}
	*r = *v
	return nil
}

func (r Rational) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Rational) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("unable to unmarshal Rational from JSON '%s': %w", b, err)
	}
	return r.UnmarshalText([]byte(s))
}

func (r Rational) MarshalYAML() (any, error) {
	return r.String(), nil
}

func (r *Rational) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("unable to decode Rational: %w", err)
	}
	return r.UnmarshalText([]byte(s))
}
