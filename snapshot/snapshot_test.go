package snapshot_test

import (
	"bytes"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kay-lambdadelta/multiemu-sub003/naming"
	"github.com/kay-lambdadelta/multiemu-sub003/snapshot"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

var _ = Describe("Snapshot", func() {
	var header snapshot.Header

	BeforeEach(func() {
		header = snapshot.Header{
			Machine: "nes-1",
			Cycle:   1234,
			Components: map[naming.ID]string{
				"ram": "1.2.0",
				"ppu": "0.3.1",
			},
			Scheduler: &timing.State{
				Now: 1234,
				Tasks: []timing.TaskState{
					{Owner: "ppu", Name: "tick", Phase: 1, Total: 300},
				},
			},
		}
	})

	It("should start with the magic tag", func() {
		var buf bytes.Buffer
		Expect(snapshot.Write(&buf, header, nil)).To(Succeed())
		Expect(buf.Bytes()[:8]).To(Equal([]byte("MEMUSNAP")))
	})

	It("should read back what was written", func() {
		records := []snapshot.Record{
			{ID: "ram", Data: []byte{1, 2, 3}},
			{ID: "ppu", Data: []byte{}},
		}

		var buf bytes.Buffer
		Expect(snapshot.Write(&buf, header, records)).To(Succeed())

		h, got, err := snapshot.Read(&buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(h).To(Equal(header))
		Expect(got).To(HaveLen(2))
		Expect(got[0].ID).To(Equal(naming.ID("ram")))
		Expect(got[0].Data).To(Equal([]byte{1, 2, 3}))
		Expect(got[1].Data).To(BeEmpty())
	})

	It("should read only the header", func() {
		var buf bytes.Buffer
		Expect(snapshot.Write(&buf, header,
			[]snapshot.Record{{ID: "ram", Data: []byte{9}}})).To(Succeed())

		h, err := snapshot.ReadHeader(&buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(h.Cycle).To(Equal(uint64(1234)))
	})

	It("should refuse records without a version", func() {
		var buf bytes.Buffer
		err := snapshot.Write(&buf, header,
			[]snapshot.Record{{ID: "apu", Data: []byte{1}}})
		Expect(err).To(HaveOccurred())
	})

	It("should reject foreign files", func() {
		_, err := snapshot.ReadHeader(bytes.NewReader([]byte("NESM\x1a\x01")))
		Expect(errors.Is(err, snapshot.ErrBadMagic)).To(BeTrue())

		_, err = snapshot.ReadHeader(bytes.NewReader([]byte("PK\x03\x04zipfile")))
		Expect(errors.Is(err, snapshot.ErrBadMagic)).To(BeTrue())
	})

	It("should reject truncated files", func() {
		var buf bytes.Buffer
		Expect(snapshot.Write(&buf, header,
			[]snapshot.Record{{ID: "ram", Data: []byte{1, 2, 3, 4}}})).To(Succeed())

		truncated := buf.Bytes()[:buf.Len()-2]
		_, _, err := snapshot.Read(bytes.NewReader(truncated))
		Expect(errors.Is(err, snapshot.ErrCorrupt)).To(BeTrue())
	})

	DescribeTable("version compatibility",
		func(saved, current string, ok bool) {
			err := snapshot.Compatible(saved, current)
			if ok {
				Expect(err).NotTo(HaveOccurred())
			} else {
				Expect(err).To(HaveOccurred())
			}
		},
		Entry("same version", "1.2.0", "1.2.0", true),
		Entry("newer minor", "1.2.0", "1.4.1", true),
		Entry("older minor", "1.2.0", "1.1.0", false),
		Entry("newer major", "1.2.0", "2.0.0", false),
		Entry("zero major patch", "0.3.1", "0.3.5", true),
		Entry("zero major minor", "0.3.1", "0.4.0", false),
		Entry("bad version", "1.2.0", "latest", false),
	)

	It("should check every component", func() {
		err := snapshot.CheckCompatibility(header, map[naming.ID]string{
			"ram": "1.3.0",
			"ppu": "0.3.1",
		})
		Expect(err).NotTo(HaveOccurred())

		err = snapshot.CheckCompatibility(header, map[naming.ID]string{
			"ram": "2.0.0",
			"apu": "1.0.0",
		})

		var versionErr *snapshot.VersionError
		Expect(errors.As(err, &versionErr)).To(BeTrue())
		Expect(versionErr.ID).To(Equal(naming.ID("apu")))
		Expect(err.Error()).To(ContainSubstring("ram state 1.2.0 cannot be loaded by version 2.0.0"))
		Expect(err.Error()).To(ContainSubstring("ppu (state 0.3.1) does not exist"))
	})
})
