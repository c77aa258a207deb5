package component_test

import (
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/kay-lambdadelta/multiemu-sub003/component"
	"github.com/kay-lambdadelta/multiemu-sub003/memory"
)

type storageOnly struct {
	*component.ComponentBase
}

type latch struct {
	*component.ComponentBase
	value byte
	ticks uint64
}

func (l *latch) ReadMemory(_ memory.AddressSpaceID, _ uint64, buf []byte) error {
	for i := range buf {
		buf[i] = l.value
	}

	return nil
}

func (l *latch) WriteMemory(_ memory.AddressSpaceID, _ uint64, buf []byte) error {
	l.value = buf[len(buf)-1]
	return nil
}

func (l *latch) Tick(periods uint64) {
	l.ticks += periods
}

func (l *latch) StateVersion() string {
	return "1.0.0"
}

func (l *latch) SaveState(w io.Writer) error {
	_, err := w.Write([]byte{l.value})
	return err
}

func (l *latch) LoadState(r io.Reader, _ string) error {
	buf := make([]byte, 1)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}

	l.value = buf[0]

	return nil
}

var _ = Describe("Capabilities", func() {
	It("should find nothing on a component without capabilities", func() {
		caps := component.Discover(&storageOnly{ComponentBase: component.NewComponentBase("cart.rom")})

		Expect(caps.Set()).To(BeEmpty())
		Expect(caps.Has(component.CapReadable)).To(BeFalse())
		Expect(caps.String()).To(Equal("none"))
	})

	It("should discover every implemented capability", func() {
		l := &latch{ComponentBase: component.NewComponentBase("io.latch")}
		caps := component.Discover(l)

		Expect(caps.Set()).To(Equal([]component.Capability{
			component.CapReadable, component.CapWritable, component.CapTicker, component.CapPersistent,
		}))
		Expect(caps.Has(component.CapReadable | component.CapWritable)).To(BeTrue())
		Expect(caps.Has(component.CapTrigger)).To(BeFalse())
		Expect(caps.String()).To(Equal("readable|writable|ticker|persistent"))

		Expect(caps.Writable.WriteMemory(0, 0, []byte{0x42})).To(Succeed())
		buf := make([]byte, 2)
		Expect(caps.Readable.ReadMemory(0, 0, buf)).To(Succeed())
		Expect(buf).To(Equal([]byte{0x42, 0x42}))

		caps.Ticker.Tick(3)
		Expect(l.ticks).To(Equal(uint64(3)))
	})

	It("should keep the handles of a mock ticker", func() {
		ctrl := gomock.NewController(GinkgoT())
		ticker := NewMockTicker(ctrl)
		ticker.EXPECT().Tick(uint64(5))

		caps := component.Capabilities{Ticker: ticker}
		Expect(caps.Mask()).To(Equal(component.CapTicker))
		caps.Ticker.Tick(5)
	})

	It("should name capabilities", func() {
		Expect(component.CapTrigger.String()).To(Equal("trigger"))
		Expect(component.Capability(0x80).String()).To(Equal("Capability(128)"))
	})
})
