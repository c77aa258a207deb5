package memory

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kay-lambdadelta/multiemu-sub003/hooking"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
)

// HookPosAccessFault is invoked whenever an access returns an AccessError.
// The hook item is the *AccessError.
var HookPosAccessFault = &hooking.HookPos{Name: "Memory Access Fault"}

// A Synchronizer catches a component up to the current time before the table
// dispatches an access to it.
type Synchronizer interface {
	Synchronize(owner naming.ID)
}

// A TableBuilder stages address spaces and claims until Build validates them
// and freezes them into a Table.
type TableBuilder struct {
	spaces []Space
	claims []Claim
}

// NewTableBuilder creates an empty TableBuilder.
func NewTableBuilder() *TableBuilder {
	return &TableBuilder{}
}

// AddSpace stages an address space.
func (b *TableBuilder) AddSpace(s Space) *TableBuilder {
	b.spaces = append(b.spaces, s)
	return b
}

// AddClaim stages a claim.
func (b *TableBuilder) AddClaim(c Claim) *TableBuilder {
	b.claims = append(b.claims, c)
	return b
}

// Build validates everything that was staged. All faults are reported, joined,
// in an order that does not depend on the order of registration.
func (b *TableBuilder) Build() (*Table, error) {
	t := &Table{
		HookableBase: hooking.NewHookableBase(),
		spaces:       make(map[AddressSpaceID]*spaceTable),
	}

	errs := b.buildSpaces(t)

	claims := make([]Claim, len(b.claims))
	copy(claims, b.claims)
	sort.SliceStable(claims, func(i, j int) bool {
		return claims[i].less(claims[j])
	})

	valid := make([]Claim, 0, len(claims))
	for _, c := range claims {
		if err := t.validateClaim(c); err != nil {
			errs = append(errs, err)
			continue
		}

		valid = append(valid, c)
	}

	errs = append(errs, findOverlaps(valid)...)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for _, c := range valid {
		st := t.spaces[c.Space]
		st.lanes[c.Direction] = append(st.lanes[c.Direction], entry{
			rng:   c.Range,
			owner: c.Owner,
			read:  c.Read,
			write: c.Write,
		})
	}

	return t, nil
}

func (b *TableBuilder) buildSpaces(t *Table) []error {
	var errs []error

	for _, s := range b.spaces {
		if err := s.validate(); err != nil {
			errs = append(errs, err)
			continue
		}

		if _, dup := t.spaces[s.ID]; dup {
			errs = append(errs, fmt.Errorf(
				"memory: address space %d declared twice", s.ID))
			continue
		}

		t.spaces[s.ID] = &spaceTable{space: s}
		t.order = append(t.order, s.ID)
	}

	return errs
}

func (t *Table) validateClaim(c Claim) error {
	st, ok := t.spaces[c.Space]
	if !ok {
		return fmt.Errorf("%w %d in claim %s", ErrUnknownSpace, c.Space, c)
	}

	if c.Range.End < c.Range.Start {
		return fmt.Errorf("memory: inverted range in claim %s", c)
	}

	if !st.space.Range().ContainsRange(c.Range) {
		return fmt.Errorf("%w: claim %s exceeds %q",
			ErrAddressOverflow, c, st.space.Name)
	}

	if c.Owner == "" {
		return fmt.Errorf("memory: claim %s has no owner", c)
	}

	switch c.Direction {
	case Read:
		if c.Read == nil {
			return fmt.Errorf("memory: read claim %s has no read callback", c)
		}
	case Write:
		if c.Write == nil {
			return fmt.Errorf("memory: write claim %s has no write callback", c)
		}
	default:
		return fmt.Errorf("memory: claim %s has an invalid direction", c)
	}

	return nil
}

// findOverlaps reports every pair of overlapping claims. The claims must be
// sorted.
func findOverlaps(claims []Claim) []error {
	var errs []error

	for i := range claims {
		for j := i + 1; j < len(claims); j++ {
			if !claims[i].sameLane(claims[j]) ||
				claims[j].Range.Start > claims[i].Range.End {
				break
			}

			errs = append(errs, &OverlapError{
				First:  claims[i],
				Second: claims[j],
			})
		}
	}

	return errs
}

type entry struct {
	rng   Range
	owner naming.ID
	read  ReadFunc
	write WriteFunc
}

type spaceTable struct {
	space Space
	lanes [2][]entry
}

// A Table is the frozen memory translation table. It never changes after it
// is built. It is not safe for concurrent use; it belongs to the machine
// thread.
type Table struct {
	*hooking.HookableBase

	spaces map[AddressSpaceID]*spaceTable
	order  []AddressSpaceID
	sync   Synchronizer
}

// WithSynchronizer returns a table that shares the frozen claims of t and
// calls s before dispatching an access to an owner. The returned table starts
// with the hooks of t but keeps its own hook list.
func (t *Table) WithSynchronizer(s Synchronizer) *Table {
	clone := *t
	clone.sync = s
	clone.HookableBase = hooking.NewHookableBase()

	for _, h := range t.Hooks() {
		clone.AcceptHook(h)
	}

	return &clone
}

// Spaces returns the address spaces in declaration order.
func (t *Table) Spaces() []Space {
	spaces := make([]Space, 0, len(t.order))
	for _, id := range t.order {
		spaces = append(spaces, t.spaces[id].space)
	}

	return spaces
}

// Space returns the address space with the given id.
func (t *Table) Space(id AddressSpaceID) (Space, bool) {
	st, ok := t.spaces[id]
	if !ok {
		return Space{}, false
	}

	return st.space, true
}

// Claims returns every claim of a space and direction, ordered by address.
func (t *Table) Claims(space AddressSpaceID, dir Direction) []Claim {
	st, ok := t.spaces[space]
	if !ok || (dir != Read && dir != Write) {
		return nil
	}

	claims := make([]Claim, 0, len(st.lanes[dir]))
	for _, e := range st.lanes[dir] {
		claims = append(claims, Claim{
			Space:     space,
			Direction: dir,
			Range:     e.rng,
			Owner:     e.owner,
			Read:      e.read,
			Write:     e.write,
		})
	}

	return claims
}

// Owner returns the component that claims addr.
func (t *Table) Owner(
	space AddressSpaceID,
	dir Direction,
	addr uint64,
) (naming.ID, bool) {
	st, ok := t.spaces[space]
	if !ok || (dir != Read && dir != Write) {
		return "", false
	}

	entries := st.lanes[dir]
	i := search(entries, addr)

	if i < len(entries) && entries[i].rng.Contains(addr) {
		return entries[i].owner, true
	}

	return "", false
}

// Read fills buf with len(buf) bytes starting at addr.
func (t *Table) Read(space AddressSpaceID, addr uint64, buf []byte) error {
	return t.access(space, Read, addr, buf)
}

// Write stores buf at addr.
func (t *Table) Write(space AddressSpaceID, addr uint64, buf []byte) error {
	return t.access(space, Write, addr, buf)
}

func (t *Table) access(
	space AddressSpaceID,
	dir Direction,
	addr uint64,
	buf []byte,
) error {
	st, ok := t.spaces[space]
	if !ok {
		return fmt.Errorf("%w %d", ErrUnknownSpace, space)
	}

	if err := st.space.CheckAccess(addr, len(buf)); err != nil {
		return err
	}

	faults := t.resolve(st.lanes[dir], dir, addr, buf)
	if len(faults) == 0 {
		return nil
	}

	accessErr := &AccessError{
		Space:     space,
		Direction: dir,
		Address:   addr,
		Width:     len(buf),
		Faults:    faults,
	}

	if t.NumHooks() > 0 {
		t.InvokeHook(hooking.HookCtx{
			Domain: t,
			Pos:    HookPosAccessFault,
			Item:   accessErr,
		})
	}

	return accessErr
}

// resolve splits the access at claim boundaries and dispatches every claimed
// sub-range, collecting the sub-ranges that fail.
func (t *Table) resolve(
	entries []entry,
	dir Direction,
	addr uint64,
	buf []byte,
) []RangeFault {
	access := RangeOf(addr, len(buf))
	i := search(entries, addr)

	if i < len(entries) && entries[i].rng.ContainsRange(access) {
		if err := t.dispatch(entries[i], dir, addr, buf); err != nil {
			return []RangeFault{{
				Range: access,
				Cause: Faulted,
				Owner: entries[i].owner,
				Err:   err,
			}}
		}

		return nil
	}

	var faults []RangeFault

	cur := addr
	for {
		var end uint64

		if i >= len(entries) || entries[i].rng.Start > cur {
			end = access.End
			if i < len(entries) && entries[i].rng.Start-1 < end {
				end = entries[i].rng.Start - 1
			}

			faults = append(faults, RangeFault{
				Range: Range{Start: cur, End: end},
				Cause: Unclaimed,
			})
		} else {
			e := entries[i]
			end = min(e.rng.End, access.End)

			sub := buf[cur-addr : end-addr+1]
			if err := t.dispatch(e, dir, cur, sub); err != nil {
				faults = append(faults, RangeFault{
					Range: Range{Start: cur, End: end},
					Cause: Faulted,
					Owner: e.owner,
					Err:   err,
				})
			}

			i++
		}

		if end == access.End {
			return faults
		}

		cur = end + 1
	}
}

func (t *Table) dispatch(e entry, dir Direction, addr uint64, buf []byte) error {
	if t.sync != nil {
		t.sync.Synchronize(e.owner)
	}

	if dir == Read {
		return e.read(addr, buf)
	}

	return e.write(addr, buf)
}

// search returns the index of the first entry that ends at or after addr.
func search(entries []entry, addr uint64) int {
	return sort.Search(len(entries), func(i int) bool {
		return entries[i].rng.End >= addr
	})
}
