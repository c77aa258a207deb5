package ram

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kay-lambdadelta/multiemu-sub003/builder"
	"github.com/kay-lambdadelta/multiemu-sub003/component"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

var _ = Describe("RAM", func() {
	var (
		a   *builder.Assembly
		cfg *builder.Config
		c   *Comp
	)

	BeforeEach(func() {
		a = builder.NewAssembly(timing.MHz(1))
		_, err := a.AddressSpace("cpu", 16)
		Expect(err).NotTo(HaveOccurred())

		c, err = MakeBuilder().
			WithBase(0x8000).
			WithSize(0x100).
			WithFill(0xea).
			WithImage([]byte{1, 2}).
			Build(a, "wram")
		Expect(err).NotTo(HaveOccurred())

		cfg, err = a.Finalize()
		Expect(err).NotTo(HaveOccurred())
	})

	It("should be readable, writable and persistent", func() {
		caps := component.Discover(c)
		Expect(caps.Has(component.CapReadable | component.CapWritable |
			component.CapPersistent)).To(BeTrue())
	})

	It("should answer through the table", func() {
		buf := make([]byte, 4)
		Expect(cfg.Table.Read(0, 0x8000, buf)).To(Succeed())
		Expect(buf).To(Equal([]byte{1, 2, 0xea, 0xea}))

		Expect(cfg.Table.Write(0, 0x80ff, []byte{0x42})).To(Succeed())
		Expect(cfg.Table.Read(0, 0x80ff, buf[:1])).To(Succeed())
		Expect(buf[0]).To(Equal(byte(0x42)))
	})

	It("should leave the rest of the space unclaimed", func() {
		err := cfg.Table.Read(0, 0x80ff, make([]byte, 2))
		Expect(err).To(HaveOccurred())
	})

	It("should save and load its content", func() {
		Expect(c.WriteMemory(0, 0x8010, []byte{9})).To(Succeed())

		var buf bytes.Buffer
		Expect(c.SaveState(&buf)).To(Succeed())
		Expect(buf.Len()).To(Equal(0x100))

		Expect(c.WriteMemory(0, 0x8010, []byte{0})).To(Succeed())
		Expect(c.LoadState(&buf, StateVersion)).To(Succeed())

		b := make([]byte, 1)
		Expect(c.ReadMemory(0, 0x8010, b)).To(Succeed())
		Expect(b[0]).To(Equal(byte(9)))
	})

	It("should reject unknown spaces", func() {
		a := builder.NewAssembly(timing.MHz(1))
		_, err := MakeBuilder().WithSpace("video").Build(a, "vram")
		Expect(err).To(MatchError(ContainSubstring("video")))
	})
})
