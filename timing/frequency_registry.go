package timing

import (
	"errors"
	"fmt"
	"math"
)

// Errors reported when converting between seconds and master cycles.
var (
	ErrTickPrecisionLoss = errors.New("timing: duration is not a whole number of cycles")
	ErrTickOverflow      = errors.New("timing: cycle count overflows")
)

// FrequencyRegistry relates every clock domain of a machine to its master
// clock.
type FrequencyRegistry struct {
	master  Freq
	domains map[Freq]*FreqDomain
	order   []*FreqDomain
}

// NewFrequencyRegistry builds a registry for the given master clock.
func NewFrequencyRegistry(master Freq) (*FrequencyRegistry, error) {
	if master.IsZero() {
		return nil, fmt.Errorf("%w: master clock", ErrZeroFrequency)
	}

	return &FrequencyRegistry{
		master:  master,
		domains: make(map[Freq]*FreqDomain),
	}, nil
}

// Master returns the master clock frequency.
func (r *FrequencyRegistry) Master() Freq {
	return r.master
}

// RegisterFrequency adds a clock domain and returns its descriptor. Every
// frequency maps to exactly one domain.
func (r *FrequencyRegistry) RegisterFrequency(freq Freq) (*FreqDomain, error) {
	if freq.IsZero() {
		return nil, ErrZeroFrequency
	}

	if domain, exists := r.domains[freq]; exists {
		return domain, nil
	}

	ratio, err := freq.Div(r.master.Ratio)
	if err != nil {
		return nil, fmt.Errorf("timing: frequency %s against master %s: %w",
			freq, r.master, err)
	}

	domain := &FreqDomain{
		freq:     freq,
		ratio:    ratio,
		registry: r,
	}
	r.domains[freq] = domain
	r.order = append(r.order, domain)

	return domain, nil
}

// Domains returns the registered domains in registration order.
func (r *FrequencyRegistry) Domains() []*FreqDomain {
	domains := make([]*FreqDomain, len(r.order))
	copy(domains, r.order)

	return domains
}

// CyclesToSeconds converts a number of master cycles to seconds.
func (r *FrequencyRegistry) CyclesToSeconds(cycles uint64) float64 {
	return float64(cycles) * float64(r.master.Den()) / float64(r.master.Num())
}

// SecondsToCycles converts a duration to a number of master cycles. The
// duration must be a whole number of cycles.
func (r *FrequencyRegistry) SecondsToCycles(sec float64) (uint64, error) {
	if sec < 0 || math.IsNaN(sec) {
		return 0, fmt.Errorf(
			"timing: negative durations are not supported: %.12g", sec)
	}

	scaled := sec * r.master.Float64()
	rounded := math.Round(scaled)
	tickDuration := 1.0 / r.master.Float64()

	if math.Abs(scaled-rounded) > cycleAlignmentTolerance(scaled) {
		return 0, fmt.Errorf(
			"%w: duration %.12g s exceeds cycle %.12g s",
			ErrTickPrecisionLoss,
			sec,
			tickDuration,
		)
	}

	if rounded > float64(math.MaxUint64) {
		return 0, ErrTickOverflow
	}

	return uint64(rounded), nil
}

func cycleAlignmentTolerance(scaled float64) float64 {
	return math.Max(1e-6, math.Abs(scaled)*1e-12)
}

// A FreqDomain is one clock of the machine.
type FreqDomain struct {
	freq     Freq
	ratio    Ratio
	registry *FrequencyRegistry
}

// Freq returns the frequency of the domain.
func (d *FreqDomain) Freq() Freq {
	return d.freq
}

// Ratio returns the number of domain periods per master cycle.
func (d *FreqDomain) Ratio() Ratio {
	return d.ratio
}

// PeriodsIn returns the whole number of domain periods that fit in the
// given number of master cycles, counted from cycle 0.
func (d *FreqDomain) PeriodsIn(cycles uint64) uint64 {
	return d.ratio.Floor(cycles)
}

func (d *FreqDomain) String() string {
	return fmt.Sprintf("%s (%s of master)", d.freq, d.ratio)
}
