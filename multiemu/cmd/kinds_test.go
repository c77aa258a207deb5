package cmd

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kay-lambdadelta/multiemu-sub003/config"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
)

var _ = Describe("Kinds", func() {
	It("should list kinds in order", func() {
		Expect(KindNames()).To(Equal(
			[]string{"beeper", "cartridge", "ram", "rom", "timer"}))
	})

	It("should register a factory per component", func() {
		d := &config.MachineDescription{
			Components: []config.ComponentDescription{
				{ID: "wram", Kind: "ram", Params: config.Params{"size": "0x100"}},
				{ID: "timer", Kind: "timer", Params: config.Params{
					"base": 0x3000, "participation": "scheduler-driven",
				}},
			},
		}

		catalog, err := NewCatalog(d, ".")

		Expect(err).NotTo(HaveOccurred())
		Expect(catalog.IDs()).To(ConsistOf(naming.ID("wram"), naming.ID("timer")))
	})

	It("should report every malformed component", func() {
		d := &config.MachineDescription{
			Components: []config.ComponentDescription{
				{ID: "a", Kind: "flux"},
				{ID: "b", Kind: "ram", Params: config.Params{"size": "big"}},
				{ID: "c", Kind: "timer", Params: config.Params{"participation": "often"}},
				{ID: "d", Kind: "rom", Params: config.Params{"image": "missing.bin"}},
			},
		}

		_, err := NewCatalog(d, GinkgoT().TempDir())

		Expect(errors.Is(err, ErrUnknownKind)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("b:"))
		Expect(err.Error()).To(ContainSubstring("participation"))
		Expect(err.Error()).To(ContainSubstring("missing.bin"))
	})
})
