package memory

import "fmt"

// A Range is an inclusive byte range [Start, End].
type Range struct {
	Start uint64
	End   uint64
}

// NewRange creates a range. It panics if end is before start.
func NewRange(start, end uint64) Range {
	if end < start {
		panic(fmt.Sprintf("memory: range end %#x before start %#x", end, start))
	}

	return Range{Start: start, End: end}
}

// RangeOf returns the range covered by n bytes starting at addr.
func RangeOf(addr uint64, n int) Range {
	return Range{Start: addr, End: addr + uint64(n) - 1}
}

// Len returns the number of bytes in the range. A range covering the whole
// 64-bit space reports 0.
func (r Range) Len() uint64 {
	return r.End - r.Start + 1
}

// Contains tells if the address is in the range.
func (r Range) Contains(addr uint64) bool {
	return addr >= r.Start && addr <= r.End
}

// ContainsRange tells if o is fully inside r.
func (r Range) ContainsRange(o Range) bool {
	return o.Start >= r.Start && o.End <= r.End
}

// Overlaps tells if the two ranges share at least one byte.
func (r Range) Overlaps(o Range) bool {
	return r.Start <= o.End && o.Start <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("%#x..=%#x", r.Start, r.End)
}
