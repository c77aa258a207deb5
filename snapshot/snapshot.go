// Package snapshot reads and writes saved machine states.
//
// A snapshot starts with the 8 byte magic "MEMUSNAP", followed by a length
// prefixed JSON header that maps every persisted component to the semantic
// version of its state format, followed by one length prefixed record per
// component. All lengths are big endian uint32.
package snapshot

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/kay-lambdadelta/multiemu-sub003/naming"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

// Magic identifies a snapshot file.
const Magic = "MEMUSNAP"

// Limits guarding against corrupted lengths.
const (
	MaxHeaderSize = 16 << 20
	MaxRecordSize = 256 << 20
)

// Errors reported when reading snapshots.
var (
	ErrBadMagic = errors.New("snapshot: not a snapshot")
	ErrCorrupt  = errors.New("snapshot: corrupted")
)

// Header describes a snapshot.
type Header struct {
	// Machine is the id of the machine instance that was saved.
	Machine string `json:"machine"`

	// Cycle is the master cycle the machine was saved at.
	Cycle uint64 `json:"cycle"`

	// Components maps every persisted component to its state version.
	Components map[naming.ID]string `json:"components"`

	// Scheduler is the progress of every task.
	Scheduler *timing.State `json:"scheduler,omitempty"`
}

// A Record is the saved state of one component.
type Record struct {
	ID   naming.ID
	Data []byte
}

// Write writes a snapshot. Every record must be listed in the header.
func Write(w io.Writer, h Header, records []Record) error {
	for _, r := range records {
		if _, ok := h.Components[r.ID]; !ok {
			return fmt.Errorf("snapshot: record %q has no version in header", r.ID)
		}
	}

	header, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("snapshot: encoding header: %w", err)
	}

	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(Magic); err != nil {
		return err
	}

	if err := writeChunk(bw, header); err != nil {
		return err
	}

	for _, r := range records {
		if err := writeChunk(bw, []byte(r.ID)); err != nil {
			return err
		}

		if err := writeChunk(bw, r.Data); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// ReadHeader reads the magic and the header of a snapshot. The reader is left
// at the first record.
func ReadHeader(r io.Reader) (Header, error) {
	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return Header{}, fmt.Errorf("%w: %w", ErrBadMagic, err)
	}

	if string(magic) != Magic {
		return Header{}, fmt.Errorf("%w: magic %q", ErrBadMagic, magic)
	}

	raw, err := readChunk(r, MaxHeaderSize)
	if err != nil {
		return Header{}, fmt.Errorf("%w: header: %w", ErrCorrupt, err)
	}

	var h Header
	if err := json.Unmarshal(raw, &h); err != nil {
		return Header{}, fmt.Errorf("%w: header: %w", ErrCorrupt, err)
	}

	if h.Components == nil {
		h.Components = make(map[naming.ID]string)
	}

	return h, nil
}

// Read reads a whole snapshot.
func Read(r io.Reader) (Header, []Record, error) {
	br := bufio.NewReader(r)

	h, err := ReadHeader(br)
	if err != nil {
		return Header{}, nil, err
	}

	var records []Record

	for {
		id, err := readChunk(br, MaxHeaderSize)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return Header{}, nil, fmt.Errorf("%w: record id: %w", ErrCorrupt, err)
		}

		data, err := readChunk(br, MaxRecordSize)
		if err != nil {
			return Header{}, nil, fmt.Errorf("%w: record %q: %w",
				ErrCorrupt, id, unexpected(err))
		}

		if _, ok := h.Components[naming.ID(id)]; !ok {
			return Header{}, nil, fmt.Errorf("%w: record %q not in header",
				ErrCorrupt, id)
		}

		records = append(records, Record{ID: naming.ID(id), Data: data})
	}

	return h, records, nil
}

func writeChunk(w io.Writer, data []byte) error {
	if len(data) > MaxRecordSize {
		return fmt.Errorf("snapshot: chunk of %d bytes is too large", len(data))
	}

	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(data)))

	if _, err := w.Write(size[:]); err != nil {
		return err
	}

	_, err := w.Write(data)

	return err
}

// readChunk returns io.EOF only if the stream ends cleanly before the chunk.
func readChunk(r io.Reader, limit int) ([]byte, error) {
	var size [4]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint32(size[:])
	if uint64(n) > uint64(limit) {
		return nil, fmt.Errorf("chunk of %d bytes exceeds %d", n, limit)
	}

	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, unexpected(err)
	}

	return data, nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}

	return err
}
