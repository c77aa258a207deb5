package timer_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kay-lambdadelta/multiemu-sub003/builder"
	"github.com/kay-lambdadelta/multiemu-sub003/devices/timer"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

var _ = Describe("Timer", func() {
	var (
		cfg *builder.Config
		t   *timer.Comp
	)

	build := func(p timing.Participation) {
		a := builder.NewAssembly(timing.MHz(4))
		_, err := a.AddressSpace("cpu", 16)
		Expect(err).NotTo(HaveOccurred())

		t, err = timer.MakeBuilder().
			WithBase(0x4000).
			WithFreq(timing.MHz(1)).
			WithParticipation(p).
			Build(a, "timer")
		Expect(err).NotTo(HaveOccurred())

		cfg, err = a.Finalize()
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Table.Write(0, 0x4000, []byte{10, 0})).To(Succeed())
		Expect(cfg.Table.Write(0, 0x4002, []byte{timer.ControlEnable})).To(Succeed())
	}

	It("should count down when driven by the scheduler", func() {
		build(timing.SchedulerDriven)

		Expect(cfg.Scheduler.Advance(4 * 4)).To(Succeed())
		Expect(t.Counter()).To(Equal(uint32(6)))

		Expect(cfg.Scheduler.Advance(4 * 26)).To(Succeed())
		Expect(t.Expirations()).To(Equal(uint64(3)))
		Expect(t.Counter()).To(Equal(uint32(10)))

		status := make([]byte, 1)
		Expect(cfg.Table.Read(0, 0x4002, status)).To(Succeed())
		Expect(status[0] & timer.ControlExpired).NotTo(BeZero())

		Expect(cfg.Table.Write(0, 0x4002,
			[]byte{timer.ControlEnable | timer.ControlExpired})).To(Succeed())
		Expect(cfg.Table.Read(0, 0x4002, status)).To(Succeed())
		Expect(status[0]).To(Equal(timer.ControlEnable))
	})

	It("should catch up when its counter is read", func() {
		build(timing.OnDemand)

		Expect(cfg.Scheduler.Advance(4 * 3)).To(Succeed())
		Expect(t.Counter()).To(Equal(uint32(10)))

		buf := make([]byte, 2)
		Expect(cfg.Table.Read(0, 0x4000, buf)).To(Succeed())
		Expect(buf).To(Equal([]byte{7, 0}))
	})

	It("should restart on trigger", func() {
		build(timing.SchedulerDriven)

		Expect(cfg.Scheduler.Advance(4 * 5)).To(Succeed())
		Expect(cfg.Scheduler.Run("timer", builder.TriggerTask, 1)).To(Succeed())
		Expect(t.Counter()).To(Equal(uint32(10)))
	})

	It("should load states of older versions", func() {
		build(timing.SchedulerDriven)

		Expect(cfg.Scheduler.Advance(4 * 12)).To(Succeed())

		var buf bytes.Buffer
		Expect(t.SaveState(&buf)).To(Succeed())
		Expect(t.LoadState(&buf, timer.StateVersion)).To(Succeed())
		Expect(t.Expirations()).To(Equal(uint64(1)))

		old := []byte{0, 0, 0, 3, 0, 20, timer.ControlEnable}
		Expect(t.LoadState(bytes.NewReader(old), "1.0.0")).To(Succeed())
		Expect(t.Counter()).To(Equal(uint32(3)))
		Expect(t.Expirations()).To(BeZero())
	})

	It("should reject accesses past its registers", func() {
		build(timing.SchedulerDriven)

		Expect(t.ReadMemory(0, 0x4002, make([]byte, 2))).NotTo(Succeed())
	})
})
