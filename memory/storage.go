package memory

import (
	"errors"
	"fmt"
)

// ErrBeyondCapacity is returned when a Storage is accessed past its end.
var ErrBeyondCapacity = errors.New("memory: access beyond storage capacity")

// A Storage keeps the bytes of a memory device.
//
// The storage manages its content in units, similar to pages. Units that are
// never written are not allocated and read as the fill value.
type Storage struct {
	unitSize uint64
	capacity uint64
	fill     byte
	data     map[uint64][]byte
}

// NewStorage creates a storage object with the specified capacity.
func NewStorage(capacity uint64) *Storage {
	return NewStorageWithUnitSize(capacity, 4096)
}

// NewStorageWithUnitSize creates a storage object that allocates unitSize
// bytes at a time.
func NewStorageWithUnitSize(capacity, unitSize uint64) *Storage {
	if unitSize == 0 {
		panic("memory: storage unit size cannot be 0")
	}

	return &Storage{
		unitSize: unitSize,
		capacity: capacity,
		data:     make(map[uint64][]byte),
	}
}

// WithFill sets the value read from bytes that were never written.
func (s *Storage) WithFill(fill byte) *Storage {
	s.fill = fill
	return s
}

// Capacity returns the number of bytes the storage holds.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

func (s *Storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr

	return
}

func (s *Storage) checkBounds(offset uint64, n int) error {
	if offset >= s.capacity || uint64(n) > s.capacity-offset {
		return fmt.Errorf("%w: %d bytes at %#x, capacity %#x",
			ErrBeyondCapacity, n, offset, s.capacity)
	}

	return nil
}

// Read copies len(buf) bytes starting at offset into buf.
func (s *Storage) Read(offset uint64, buf []byte) error {
	if err := s.checkBounds(offset, len(buf)); err != nil {
		return err
	}

	curr := offset
	done := uint64(0)

	for done < uint64(len(buf)) {
		baseAddr, inUnitAddr := s.parseAddress(curr)
		n := min(s.unitSize-inUnitAddr, uint64(len(buf))-done)

		unit, ok := s.data[baseAddr]
		if ok {
			copy(buf[done:done+n], unit[inUnitAddr:inUnitAddr+n])
		} else {
			for i := done; i < done+n; i++ {
				buf[i] = s.fill
			}
		}

		done += n
		curr += n
	}

	return nil
}

// Write copies data into the storage starting at offset.
func (s *Storage) Write(offset uint64, data []byte) error {
	if err := s.checkBounds(offset, len(data)); err != nil {
		return err
	}

	curr := offset
	done := uint64(0)

	for done < uint64(len(data)) {
		baseAddr, inUnitAddr := s.parseAddress(curr)
		n := min(s.unitSize-inUnitAddr, uint64(len(data))-done)

		unit := s.unit(baseAddr)
		copy(unit[inUnitAddr:inUnitAddr+n], data[done:done+n])

		done += n
		curr += n
	}

	return nil
}

func (s *Storage) unit(baseAddr uint64) []byte {
	unit, ok := s.data[baseAddr]
	if !ok {
		unit = make([]byte, s.unitSize)
		if s.fill != 0 {
			for i := range unit {
				unit[i] = s.fill
			}
		}

		s.data[baseAddr] = unit
	}

	return unit
}

// Load replaces the whole content of the storage with image. Bytes past the
// end of image read as the fill value.
func (s *Storage) Load(image []byte) error {
	if uint64(len(image)) > s.capacity {
		return fmt.Errorf("%w: image of %d bytes, capacity %d",
			ErrBeyondCapacity, len(image), s.capacity)
	}

	s.data = make(map[uint64][]byte)
	if len(image) == 0 {
		return nil
	}

	return s.Write(0, image)
}

// Bytes returns a dense copy of the whole storage.
func (s *Storage) Bytes() []byte {
	out := make([]byte, s.capacity)
	if s.capacity > 0 {
		_ = s.Read(0, out)
	}

	return out
}
