package tracing

import (
	"context"
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kay-lambdadelta/multiemu-sub003/datarecording"
	"github.com/kay-lambdadelta/multiemu-sub003/memory"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

func mustRegistry() *timing.FrequencyRegistry {
	r, err := timing.NewFrequencyRegistry(timing.Hz(1))
	Expect(err).NotTo(HaveOccurred())

	return r
}

func sampleFault() *memory.AccessError {
	return &memory.AccessError{
		Direction: memory.Read,
		Address:   0x0fff,
		Width:     4,
		Faults: []memory.RangeFault{
			{Range: memory.NewRange(0x1000, 0x1001), Cause: memory.Unclaimed},
			{
				Range: memory.NewRange(0x1002, 0x1002),
				Cause: memory.Faulted,
				Owner: "ppu",
				Err:   errors.New("busy"),
			},
		},
	}
}

var _ = Describe("DBTracer", func() {
	It("should store task runs and faults", func() {
		path := filepath.Join(GinkgoT().TempDir(), "trace")
		recorder, err := datarecording.New(path)
		Expect(err).NotTo(HaveOccurred())
		defer recorder.Close()

		t, err := NewDBTracer(recorder, func(run timing.TaskRun) bool {
			return run.Task != "hidden"
		})
		Expect(err).NotTo(HaveOccurred())

		t.TaskRun(timing.TaskRun{Owner: "cpu", Task: "tick", Periods: 2, Now: 8})
		t.TaskRun(timing.TaskRun{Owner: "cpu", Task: "hidden", Periods: 1})
		t.AccessFault(sampleFault())
		Expect(t.Err()).NotTo(HaveOccurred())
		Expect(recorder.Flush()).To(Succeed())

		reader, err := datarecording.NewReader(path + ".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		reader.MapTable(TaskRunTable, TaskRunEntry{})
		reader.MapTable(AccessFaultTable, AccessFaultEntry{})

		runs, total, err := reader.Query(context.Background(), TaskRunTable,
			datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(1))
		Expect(runs[0]).To(Equal(&TaskRunEntry{
			Owner: "cpu", Task: "tick", Periods: 2, Now: 8,
		}))

		faults, _, err := reader.Query(context.Background(), AccessFaultTable,
			datarecording.QueryParams{OrderBy: "Start"})
		Expect(err).NotTo(HaveOccurred())
		Expect(faults).To(HaveLen(2))
		Expect(faults[1].(*AccessFaultEntry).Error).To(Equal("busy"))
		Expect(faults[1].(*AccessFaultEntry).Cause).To(Equal(memory.Faulted.String()))
	})
})

var _ = Describe("PeriodCountTracer", func() {
	It("should count runs and periods per task", func() {
		t := NewPeriodCountTracer(nil)

		t.TaskRun(timing.TaskRun{Owner: "apu", Task: "tick", Periods: 3})
		t.TaskRun(timing.TaskRun{Owner: "cpu", Task: "tick", Periods: 1})
		t.TaskRun(timing.TaskRun{Owner: "apu", Task: "tick", Periods: 5})
		t.AccessFault(sampleFault())

		apu := TaskKey{Owner: "apu", Task: "tick"}
		Expect(t.Tasks()).To(Equal([]TaskKey{apu, {Owner: "cpu", Task: "tick"}}))
		Expect(t.Runs(apu)).To(Equal(uint64(2)))
		Expect(t.Periods(apu)).To(Equal(uint64(8)))
		Expect(t.Faults(memory.Unclaimed)).To(Equal(uint64(1)))
		Expect(t.Faults(memory.Faulted)).To(Equal(uint64(1)))
	})
})
