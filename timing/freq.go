package timing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrZeroFrequency is returned when a frequency of 0 Hz is used.
var ErrZeroFrequency = errors.New("timing: zero frequency")

// Freq is an exact frequency in Hz.
type Freq struct {
	Ratio
}

// Defines the unit of frequency.
const (
	KHzScale = 1_000
	MHzScale = 1_000_000
	GHzScale = 1_000_000_000
)

// Hz returns a frequency of n Hz.
func Hz(n uint64) Freq {
	return Freq{Ratio: MustRatio(n, 1)}
}

// KHz returns a frequency of n kHz.
func KHz(n uint64) Freq {
	return Hz(n * KHzScale)
}

// MHz returns a frequency of n MHz.
func MHz(n uint64) Freq {
	return Hz(n * MHzScale)
}

// FreqRatio returns a frequency of num/den Hz, e.g. the NTSC color burst
// 315000000/88.
func FreqRatio(num, den uint64) (Freq, error) {
	r, err := NewRatio(num, den)
	if err != nil {
		return Freq{}, err
	}

	return Freq{Ratio: r}, nil
}

// ParseFreq parses "60", "1789773", "315000000/88", or a value with a unit
// suffix such as "3.58MHz" or "48kHz".
func ParseFreq(s string) (Freq, error) {
	s = strings.TrimSpace(s)

	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseUint(strings.TrimSpace(num), 10, 64)
		if err != nil {
			return Freq{}, fmt.Errorf("timing: bad frequency %q: %w", s, err)
		}

		d, err := strconv.ParseUint(strings.TrimSpace(den), 10, 64)
		if err != nil {
			return Freq{}, fmt.Errorf("timing: bad frequency %q: %w", s, err)
		}

		return FreqRatio(n, d)
	}

	scale := uint64(1)
	lower := strings.ToLower(s)

	for _, unit := range []struct {
		suffix string
		scale  uint64
	}{
		{"ghz", GHzScale},
		{"mhz", MHzScale},
		{"khz", KHzScale},
		{"hz", 1},
	} {
		if strings.HasSuffix(lower, unit.suffix) {
			scale = unit.scale
			s = strings.TrimSpace(s[:len(s)-len(unit.suffix)])

			break
		}
	}

	whole, frac, _ := strings.Cut(s, ".")
	den := uint64(1)

	for range frac {
		den *= 10
	}

	n, err := strconv.ParseUint(whole+frac, 10, 64)
	if err != nil {
		return Freq{}, fmt.Errorf("timing: bad frequency %q: %w", s, err)
	}

	num, err := mul64(n, scale)
	if err != nil {
		return Freq{}, err
	}

	return FreqRatio(num, den)
}

func (f Freq) String() string {
	return f.Ratio.String() + " Hz"
}
