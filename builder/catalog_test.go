package builder

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kay-lambdadelta/multiemu-sub003/component"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

var _ = Describe("Catalog", func() {
	var catalog *Catalog

	BeforeEach(func() {
		catalog = NewCatalog()

		Expect(catalog.Register("timer", func(a *Assembly, id naming.ID) error {
			_, err := a.Component(&plain{ComponentBase: component.NewComponentBase(id)})
			return err
		})).To(Succeed())

		Expect(catalog.Register("lazy", func(*Assembly, naming.ID) error {
			return nil
		})).To(Succeed())
	})

	It("should list ids in registration order", func() {
		Expect(catalog.IDs()).To(Equal([]naming.ID{"timer", "lazy"}))
	})

	It("should reject duplicate and invalid ids", func() {
		Expect(catalog.Register("timer", nil)).NotTo(Succeed())
		Expect(catalog.Register("9lives", nil)).NotTo(Succeed())
	})

	It("should construct components", func() {
		asm := NewAssembly(timing.Hz(1))

		Expect(catalog.Construct(asm, "timer")).To(Succeed())
		Expect(asm.Has("timer")).To(BeTrue())

		err := catalog.Construct(asm, "ghost")
		Expect(errors.Is(err, ErrUnknownKind)).To(BeTrue())

		Expect(catalog.Construct(asm, "lazy")).
			To(MatchError(ContainSubstring("did not declare")))

		_, err = asm.Finalize()
		Expect(err).NotTo(HaveOccurred())
		Expect(catalog.Construct(asm, "timer")).To(MatchError(ErrFinalized))
	})
})
