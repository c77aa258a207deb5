package machine_test

import (
	"bytes"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kay-lambdadelta/multiemu-sub003/builder"
	"github.com/kay-lambdadelta/multiemu-sub003/component"
	"github.com/kay-lambdadelta/multiemu-sub003/devices/ram"
	"github.com/kay-lambdadelta/multiemu-sub003/devices/timer"
	"github.com/kay-lambdadelta/multiemu-sub003/hooking"
	"github.com/kay-lambdadelta/multiemu-sub003/machine"
	"github.com/kay-lambdadelta/multiemu-sub003/memory"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
	"github.com/kay-lambdadelta/multiemu-sub003/snapshot"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

// pattern answers reads with the low byte of the address and remembers writes.
type pattern struct {
	*component.ComponentBase
	written map[uint64]byte
}

func patternFactory(dir memory.Direction, start, end uint64) builder.Factory {
	return func(a *builder.Assembly, id naming.ID) error {
		p := &pattern{
			ComponentBase: component.NewComponentBase(id),
			written:       make(map[uint64]byte),
		}

		cb, err := a.Component(p)
		if err != nil {
			return err
		}

		space, err := a.SpaceID("cpu")
		if err != nil {
			return err
		}

		rng := memory.NewRange(start, end)
		if dir == memory.Read {
			cb.MapRead(space, rng, func(addr uint64, buf []byte) error {
				for i := range buf {
					buf[i] = byte(addr + uint64(i))
				}

				return nil
			})
		} else {
			cb.MapWrite(space, rng, func(addr uint64, buf []byte) error {
				for i, b := range buf {
					p.written[addr+uint64(i)] = b
				}

				return nil
			})
		}

		return nil
	}
}

func apply(m *machine.Machine, msgs ...machine.Message) {
	for _, msg := range msgs {
		ExpectWithOffset(1, m.Apply(msg)).To(Succeed())
	}
}

var _ = Describe("Machine", func() {
	var (
		catalog *builder.Catalog
		m       *machine.Machine
	)

	BeforeEach(func() {
		catalog = builder.NewCatalog()
		Expect(catalog.Register("writer",
			patternFactory(memory.Write, 0x0000, 0x0fff))).To(Succeed())
		Expect(catalog.Register("reader",
			patternFactory(memory.Read, 0x1000, 0x1fff))).To(Succeed())
		Expect(catalog.Register("wram",
			ram.MakeBuilder().WithBase(0x2000).WithSize(0x100).Factory())).To(Succeed())
		Expect(catalog.Register("timer",
			timer.MakeBuilder().
				WithBase(0x3000).
				WithParticipation(timing.SchedulerDriven).
				Factory())).To(Succeed())

		m = machine.New(catalog, timing.MHz(1),
			machine.WithLogger(GinkgoLogr), machine.WithID("test"))

		_, err := m.Assembly().AddressSpace("cpu", 16)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should route accesses end to end", func() {
		apply(m,
			machine.ConstructComponent{ID: "writer"},
			machine.ConstructComponent{ID: "reader"},
			machine.FinalizeExternalMachine{},
		)
		Expect(m.State()).To(Equal(machine.StateRunning))

		buf := make([]byte, 2)
		Expect(m.Read(0, 0x1000, buf)).To(Succeed())
		Expect(buf).To(Equal([]byte{0x00, 0x01}))

		err := m.Write(0, 0x1000, []byte{0xaa})
		Expect(errors.Is(err, memory.ErrUnclaimed)).To(BeTrue())

		var accessErr *memory.AccessError
		Expect(errors.As(err, &accessErr)).To(BeTrue())
		Expect(accessErr.Causes()).To(Equal(map[memory.Range]memory.Cause{
			memory.NewRange(0x1000, 0x1000): memory.Unclaimed,
		}))

		Expect(m.Write(0, 0x0fff, []byte{0x11})).To(Succeed())
	})

	It("should follow its lifecycle", func() {
		err := m.Apply(machine.AdvanceMachine{Cycles: 1})
		Expect(errors.Is(err, machine.ErrNotRunning)).To(BeTrue())

		err = m.Apply(machine.ConstructComponent{ID: "nothing"})
		Expect(errors.Is(err, builder.ErrUnknownKind)).To(BeTrue())

		apply(m,
			machine.ConstructComponent{ID: "wram"},
			machine.FinalizeExternalMachine{},
		)

		err = m.Apply(machine.ConstructComponent{ID: "timer"})
		Expect(errors.Is(err, machine.ErrNotAssembling)).To(BeTrue())

		apply(m, machine.AdvanceMachine{Cycles: 100}, machine.Shutdown{})
		Expect(m.State()).To(Equal(machine.StateShutdown))
		Expect(m.Now()).To(Equal(uint64(100)))

		for _, msg := range []machine.Message{
			machine.AdvanceMachine{Cycles: 1},
			machine.Shutdown{},
			machine.InspectComponent{ID: "wram"},
		} {
			Expect(errors.Is(m.Apply(msg), machine.ErrShutdown)).To(BeTrue())
		}

		Expect(errors.Is(m.Read(0, 0x2000, make([]byte, 1)), machine.ErrShutdown)).
			To(BeTrue())
	})

	It("should reject overlapping components at finalization", func() {
		Expect(catalog.Register("shadow",
			ram.MakeBuilder().WithBase(0x20f0).WithSize(0x20).Factory())).To(Succeed())

		apply(m,
			machine.ConstructComponent{ID: "wram"},
			machine.ConstructComponent{ID: "shadow"},
		)

		err := m.Apply(machine.FinalizeExternalMachine{})
		var overlap *memory.OverlapError
		Expect(errors.As(err, &overlap)).To(BeTrue())
		Expect(m.State()).To(Equal(machine.StateAssembling))
	})

	It("should deliver replies", func() {
		reply := make(chan error, 1)

		Expect(m.Apply(machine.FinalizeExternalMachine{Reply: reply})).To(Succeed())
		Expect(<-reply).To(Succeed())

		_ = m.Apply(machine.ConstructComponent{ID: "wram", Reply: reply})
		Expect(errors.Is(<-reply, machine.ErrNotAssembling)).To(BeTrue())
	})

	It("should run components on request", func() {
		apply(m,
			machine.ConstructComponent{ID: "timer"},
			machine.FinalizeExternalMachine{},
		)

		Expect(m.Write(0, 0x3000, []byte{10, 0})).To(Succeed())
		Expect(m.Write(0, 0x3002, []byte{timer.ControlEnable})).To(Succeed())
		apply(m, machine.AdvanceMachine{Cycles: 4})

		counter := make([]byte, 1)
		Expect(m.Read(0, 0x3000, counter)).To(Succeed())
		Expect(counter[0]).To(Equal(byte(6)))

		apply(m, machine.RunComponent{ID: "timer", Periods: 1})
		Expect(m.Read(0, 0x3000, counter)).To(Succeed())
		Expect(counter[0]).To(Equal(byte(10)))

		apply(m, machine.RunComponent{ID: "timer", Task: builder.TickTask, Periods: 3})
		Expect(m.Read(0, 0x3000, counter)).To(Succeed())
		Expect(counter[0]).To(Equal(byte(7)))

		err := m.Apply(machine.RunComponent{ID: "ghost", Periods: 1})
		Expect(errors.Is(err, component.ErrUnknownComponent)).To(BeTrue())
	})

	It("should install a new memory table", func() {
		apply(m,
			machine.ConstructComponent{ID: "wram"},
			machine.FinalizeExternalMachine{},
		)

		table, err := memory.NewTableBuilder().
			AddSpace(memory.Space{ID: 0, Name: "cpu", Bits: 16}).
			Build()
		Expect(err).NotTo(HaveOccurred())

		m.AcceptHook(hooking.HookFunc(func(hooking.HookCtx) {}))
		apply(m, machine.SetMemoryTranslationTable{Table: table})
		Expect(m.Table().NumHooks()).To(Equal(1))
		Expect(table.NumHooks()).To(BeZero())

		err = m.Read(0, 0x2000, make([]byte, 1))
		Expect(errors.Is(err, memory.ErrUnclaimed)).To(BeTrue())

		err = m.Apply(machine.SetMemoryTranslationTable{})
		Expect(err).To(HaveOccurred())
	})

	Context("with persistent components", func() {
		BeforeEach(func() {
			apply(m,
				machine.ConstructComponent{ID: "wram"},
				machine.ConstructComponent{ID: "timer"},
				machine.FinalizeExternalMachine{},
			)

			Expect(m.Write(0, 0x2010, []byte{0x55})).To(Succeed())
			Expect(m.Write(0, 0x3000, []byte{10, 0})).To(Succeed())
			Expect(m.Write(0, 0x3002, []byte{timer.ControlEnable})).To(Succeed())
			apply(m, machine.AdvanceMachine{Cycles: 25})
		})

		It("should save and restore", func() {
			var saved bytes.Buffer
			apply(m, machine.SnapshotMachine{Destination: &saved})

			header, err := snapshot.ReadHeader(bytes.NewReader(saved.Bytes()))
			Expect(err).NotTo(HaveOccurred())
			Expect(header.Machine).To(Equal("test"))
			Expect(header.Cycle).To(Equal(uint64(25)))
			Expect(header.Components).To(Equal(map[naming.ID]string{
				"wram":  ram.StateVersion,
				"timer": timer.StateVersion,
			}))

			Expect(m.Write(0, 0x2010, []byte{0})).To(Succeed())
			apply(m, machine.AdvanceMachine{Cycles: 3})

			apply(m, machine.RestoreMachine{Source: &saved})
			Expect(m.Now()).To(Equal(uint64(25)))

			buf := make([]byte, 1)
			Expect(m.Read(0, 0x2010, buf)).To(Succeed())
			Expect(buf[0]).To(Equal(byte(0x55)))

			Expect(m.Read(0, 0x3000, buf)).To(Succeed())
			Expect(buf[0]).To(Equal(byte(5)))
		})

		It("should refuse incompatible snapshots", func() {
			var saved bytes.Buffer
			Expect(snapshot.Write(&saved, snapshot.Header{
				Machine: "other",
				Components: map[naming.ID]string{
					"wram":  "2.0.0",
					"timer": timer.StateVersion,
				},
			}, nil)).To(Succeed())

			err := m.Apply(machine.RestoreMachine{Source: &saved})

			var versionErr *snapshot.VersionError
			Expect(errors.As(err, &versionErr)).To(BeTrue())
			Expect(versionErr.ID).To(Equal(naming.ID("wram")))
			Expect(m.Now()).To(Equal(uint64(25)))
		})

		It("should leave the machine untouched when a record fails to load", func() {
			var saved bytes.Buffer
			apply(m, machine.SnapshotMachine{Destination: &saved})

			header, records, err := snapshot.Read(bytes.NewReader(saved.Bytes()))
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[0].ID).To(Equal(naming.ID("wram")))
			Expect(records[1].ID).To(Equal(naming.ID("timer")))
			records[1].Data = records[1].Data[:1]

			var broken bytes.Buffer
			Expect(snapshot.Write(&broken, header, records)).To(Succeed())

			Expect(m.Write(0, 0x2010, []byte{0x11})).To(Succeed())
			apply(m, machine.AdvanceMachine{Cycles: 3})

			counter := make([]byte, 1)
			Expect(m.Read(0, 0x3000, counter)).To(Succeed())

			err = m.Apply(machine.RestoreMachine{Source: &broken})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("loading timer"))
			Expect(m.Now()).To(Equal(uint64(28)))

			buf := make([]byte, 1)
			Expect(m.Read(0, 0x2010, buf)).To(Succeed())
			Expect(buf[0]).To(Equal(byte(0x11)))

			Expect(m.Read(0, 0x3000, buf)).To(Succeed())
			Expect(buf[0]).To(Equal(counter[0]))
		})

		It("should refuse snapshots with missing records", func() {
			var saved bytes.Buffer
			apply(m, machine.SnapshotMachine{Destination: &saved})

			header, records, err := snapshot.Read(bytes.NewReader(saved.Bytes()))
			Expect(err).NotTo(HaveOccurred())

			var empty bytes.Buffer
			Expect(snapshot.Write(&empty, header, nil)).To(Succeed())

			var partial bytes.Buffer
			Expect(snapshot.Write(&partial, header, records[:1])).To(Succeed())

			apply(m, machine.AdvanceMachine{Cycles: 3})

			err = m.Apply(machine.RestoreMachine{Source: &empty})
			Expect(errors.Is(err, machine.ErrIncompleteSnapshot)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("no record for timer"))
			Expect(err.Error()).To(ContainSubstring("no record for wram"))

			err = m.Apply(machine.RestoreMachine{Source: &partial})
			Expect(errors.Is(err, machine.ErrIncompleteSnapshot)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("no record for timer"))
			Expect(err.Error()).NotTo(ContainSubstring("no record for wram"))

			Expect(m.Now()).To(Equal(uint64(28)))
		})

		It("should refuse snapshots with duplicate records", func() {
			var saved bytes.Buffer
			apply(m, machine.SnapshotMachine{Destination: &saved})

			header, records, err := snapshot.Read(bytes.NewReader(saved.Bytes()))
			Expect(err).NotTo(HaveOccurred())

			var doubled bytes.Buffer
			Expect(snapshot.Write(&doubled, header,
				append(records, records[0]))).To(Succeed())

			err = m.Apply(machine.RestoreMachine{Source: &doubled})
			Expect(errors.Is(err, machine.ErrIncompleteSnapshot)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("duplicate record for wram"))
		})

		It("should inspect components", func() {
			var out bytes.Buffer
			apply(m, machine.InspectComponent{ID: "timer", Destination: &out})
			Expect(out.Len()).NotTo(BeZero())

			err := m.Apply(machine.InspectComponent{ID: "ghost", Destination: &out})
			Expect(errors.Is(err, component.ErrUnknownComponent)).To(BeTrue())
		})
	})

	It("should invoke hooks on messages", func() {
		var items []any
		m.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == machine.HookPosMessage {
				items = append(items, ctx.Item)
			}
		}))

		apply(m, machine.FinalizeExternalMachine{})
		Expect(items).To(Equal([]any{machine.FinalizeExternalMachine{}}))
	})
})
