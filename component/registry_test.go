package component_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/kay-lambdadelta/multiemu-sub003/component"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

var _ = Describe("Registry", func() {
	var (
		mockCtrl *gomock.Controller
		registry *component.Registry
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		registry = component.NewRegistry()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should keep registration order", func() {
		ids := []naming.ID{"cpu", "ppu", "cart.bank[0]"}
		for _, id := range ids {
			c := NewMockComponent(mockCtrl)
			c.EXPECT().ID().Return(id).AnyTimes()

			_, err := registry.Add(c, timing.SchedulerDriven)
			Expect(err).NotTo(HaveOccurred())
		}

		Expect(registry.Len()).To(Equal(3))

		entries := registry.Entries()
		for i, e := range entries {
			Expect(e.ID()).To(Equal(ids[i]))
			Expect(e.Participation).To(Equal(timing.SchedulerDriven))
		}
	})

	It("should reject duplicate ids", func() {
		a := &storageOnly{ComponentBase: component.NewComponentBase("ram")}
		b := &storageOnly{ComponentBase: component.NewComponentBase("ram")}

		_, err := registry.Add(a, timing.None)
		Expect(err).NotTo(HaveOccurred())

		_, err = registry.Add(b, timing.None)
		Expect(errors.Is(err, component.ErrDuplicateComponent)).To(BeTrue())
	})

	It("should reject invalid ids", func() {
		c := NewMockComponent(mockCtrl)
		c.EXPECT().ID().Return(naming.ID("bad..id"))

		_, err := registry.Add(c, timing.None)
		Expect(errors.Is(err, naming.ErrInvalidID)).To(BeTrue())
	})

	It("should look components up", func() {
		l := &latch{ComponentBase: component.NewComponentBase("io.latch")}
		_, err := registry.Add(l, timing.OnDemand)
		Expect(err).NotTo(HaveOccurred())
		_, err = registry.Add(&storageOnly{ComponentBase: component.NewComponentBase("rom")}, timing.None)
		Expect(err).NotTo(HaveOccurred())

		e, ok := registry.Get("io.latch")
		Expect(ok).To(BeTrue())
		Expect(e.Component).To(BeIdenticalTo(l))
		Expect(e.Capabilities.Has(component.CapTicker)).To(BeTrue())

		_, err = registry.MustGet("nope")
		Expect(errors.Is(err, component.ErrUnknownComponent)).To(BeTrue())

		readable := registry.WithCapability(component.CapReadable)
		Expect(readable).To(HaveLen(1))
		Expect(readable[0].ID()).To(Equal(naming.ID("io.latch")))
	})
})
