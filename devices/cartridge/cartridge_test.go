package cartridge

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kay-lambdadelta/multiemu-sub003/builder"
	"github.com/kay-lambdadelta/multiemu-sub003/component"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

func bankedImage(banks, size int) []byte {
	image := make([]byte, banks*size)
	for i := range image {
		image[i] = byte(i / size)
	}

	return image
}

var _ = Describe("Cartridge", func() {
	var (
		cfg    *builder.Config
		cart   *Comp
		mapper *Mapper
	)

	BeforeEach(func() {
		a := builder.NewAssembly(timing.MHz(1))
		_, err := a.AddressSpace("cpu", 16)
		Expect(err).NotTo(HaveOccurred())

		cart, mapper, err = MakeBuilder().
			WithBase(0xc000).
			WithBankSize(0x1000).
			WithImage(bankedImage(3, 0x1000)).
			Build(a, "cart")
		Expect(err).NotTo(HaveOccurred())

		cfg, err = a.Finalize()
		Expect(err).NotTo(HaveOccurred())
	})

	It("should register the cartridge without capabilities", func() {
		e, err := cfg.Registry.MustGet("cart")
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Capabilities.Mask()).To(Equal(component.Capability(0)))

		_, ok := cfg.Registry.Get(naming.ID("cart.mapper"))
		Expect(ok).To(BeTrue())
	})

	It("should switch banks on writes", func() {
		buf := make([]byte, 1)
		Expect(cfg.Table.Read(0, 0xc000, buf)).To(Succeed())
		Expect(buf[0]).To(Equal(byte(0)))

		Expect(cfg.Table.Write(0, 0xc123, []byte{2})).To(Succeed())
		Expect(cfg.Table.Read(0, 0xcfff, buf)).To(Succeed())
		Expect(buf[0]).To(Equal(byte(2)))

		Expect(cfg.Table.Write(0, 0xc000, []byte{4})).To(Succeed())
		Expect(mapper.Bank()).To(Equal(1))
	})

	It("should persist the selected bank", func() {
		Expect(mapper.WriteMemory(0, 0xc000, []byte{2})).To(Succeed())

		var buf bytes.Buffer
		Expect(mapper.SaveState(&buf)).To(Succeed())
		Expect(mapper.WriteMemory(0, 0xc000, []byte{0})).To(Succeed())

		Expect(mapper.LoadState(&buf, MapperStateVersion)).To(Succeed())
		Expect(mapper.Bank()).To(Equal(2))

		err := mapper.LoadState(bytes.NewReader([]byte{7}), MapperStateVersion)
		Expect(err).To(HaveOccurred())
	})

	It("should pad the last bank", func() {
		c, err := newComp("small", []byte{1, 2, 3}, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Banks()).To(Equal(1))

		buf := make([]byte, 4)
		Expect(c.ReadBank(0, 0, buf)).To(Succeed())
		Expect(buf).To(Equal([]byte{1, 2, 3, 0xff}))

		Expect(cart.ReadBank(3, 0, buf)).NotTo(Succeed())
	})
})
