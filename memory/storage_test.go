package memory_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kay-lambdadelta/multiemu-sub003/memory"
)

var _ = Describe("Storage", func() {
	It("should read and write in single unit", func() {
		storage := memory.NewStorage(4096)
		Expect(storage.Write(0, []byte{1, 2, 3, 4})).To(Succeed())

		res := make([]byte, 2)
		Expect(storage.Read(0, res)).To(Succeed())
		Expect(res).To(Equal([]byte{1, 2}))

		Expect(storage.Read(1, res)).To(Succeed())
		Expect(res).To(Equal([]byte{2, 3}))
	})

	It("should read and write across units", func() {
		storage := memory.NewStorage(8192)
		Expect(storage.Write(4094, []byte{1, 2, 3, 4})).To(Succeed())

		res := make([]byte, 4)
		Expect(storage.Read(4094, res)).To(Succeed())
		Expect(res).To(Equal([]byte{1, 2, 3, 4}))
	})

	It("should read untouched bytes as the fill value", func() {
		storage := memory.NewStorageWithUnitSize(64, 16).WithFill(0xff)
		Expect(storage.Write(20, []byte{7})).To(Succeed())

		res := make([]byte, 4)
		Expect(storage.Read(18, res)).To(Succeed())
		Expect(res).To(Equal([]byte{0xff, 0xff, 7, 0xff}))
	})

	It("should return error if accessing over the capacity", func() {
		storage := memory.NewStorage(4096)

		err := storage.Write(4096, []byte{1})
		Expect(errors.Is(err, memory.ErrBeyondCapacity)).To(BeTrue())

		err = storage.Read(4095, make([]byte, 2))
		Expect(errors.Is(err, memory.ErrBeyondCapacity)).To(BeTrue())
	})

	It("should load and dump images", func() {
		storage := memory.NewStorageWithUnitSize(8, 4)
		Expect(storage.Load([]byte{1, 2, 3, 4, 5})).To(Succeed())
		Expect(storage.Bytes()).To(Equal([]byte{1, 2, 3, 4, 5, 0, 0, 0}))

		Expect(storage.Load(make([]byte, 9))).NotTo(Succeed())
	})
})
