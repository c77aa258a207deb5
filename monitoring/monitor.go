// Package monitoring turns a running machine into a web server that allows
// external monitoring and control of the emulation.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"

	"github.com/kay-lambdadelta/multiemu-sub003/component"
	"github.com/kay-lambdadelta/multiemu-sub003/idgen"
	"github.com/kay-lambdadelta/multiemu-sub003/machine"
	"github.com/kay-lambdadelta/multiemu-sub003/monitoring/web"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

// Monitor serves the state of a machine over HTTP. It never touches the
// machine directly: reads go through the published state of the Runner and
// every mutation is posted to the machine inbox.
type Monitor struct {
	inbox  chan<- machine.Message
	runner *machine.Runner
	logger logr.Logger

	components  []naming.ID
	portNumber  int
	openBrowser bool

	progressIDs      idgen.Generator
	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server *http.Server
}

// NewMonitor creates a monitor that posts messages to inbox, the inbox the
// runner consumes.
func NewMonitor(inbox chan<- machine.Message, runner *machine.Runner) *Monitor {
	return &Monitor{
		inbox:       inbox,
		runner:      runner,
		logger:      logr.Discard(),
		progressIDs: idgen.NewSequential("progress"),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithOpenBrowser makes StartServer open the monitor page in a browser.
func (m *Monitor) WithOpenBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// WithLogger sets the logger of the monitor.
func (m *Monitor) WithLogger(l logr.Logger) *Monitor {
	m.logger = l.WithName("monitor")
	return m
}

// RegisterComponents lists the components of registry on the monitor.
func (m *Monitor) RegisterComponents(registry *component.Registry) {
	for _, e := range registry.Entries() {
		m.components = append(m.components, e.ID())
	}
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bar.ID = m.progressIDs.Generate()
	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the handler that serves the monitor API and pages.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/now", m.now).Methods(http.MethodGet)
	r.HandleFunc("/api/advance/{cycles}", m.advance).Methods(http.MethodPost)
	r.HandleFunc("/api/run/{id}", m.run).Methods(http.MethodPost)
	r.HandleFunc("/api/shutdown", m.shutdown).Methods(http.MethodPost)
	r.HandleFunc("/api/snapshot", m.snapshot).Methods(http.MethodGet)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{id}", m.listComponentDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns the port it
// listens on.
func (m *Monitor) StartServer() (int, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return 0, fmt.Errorf("monitoring: %w", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	url := fmt.Sprintf("http://localhost:%d", port)

	fmt.Fprintf(os.Stderr, "Monitoring emulation with %s\n", url)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if !errors.Is(err, http.ErrServerClosed) {
			dieOnErr(err)
		}
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			m.logger.Error(err, "cannot open browser", "url", url)
		}
	}

	return port, nil
}

// StopServer shuts the web server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

// post sends a message built around a fresh reply channel and waits for its
// outcome.
func (m *Monitor) post(ctx context.Context, build func(reply chan<- error) machine.Message) error {
	reply := make(chan error, 1)
	msg := build(reply)

	select {
	case m.inbox <- msg:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type nowRsp struct {
	Now   uint64 `json:"now"`
	State string `json:"state"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, nowRsp{
		Now:   m.runner.Now(),
		State: m.runner.State().String(),
	})
}

func (m *Monitor) advance(w http.ResponseWriter, r *http.Request) {
	cycles, err := strconv.ParseUint(mux.Vars(r)["cycles"], 10, 64)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = m.post(r.Context(), func(reply chan<- error) machine.Message {
		return machine.AdvanceMachine{Cycles: cycles, Reply: reply}
	})
	if err != nil {
		m.writeError(w, err)
		return
	}

	m.now(w, r)
}

func (m *Monitor) run(w http.ResponseWriter, r *http.Request) {
	id := naming.ID(mux.Vars(r)["id"])
	task := r.URL.Query().Get("task")

	periods := uint64(1)
	if p := r.URL.Query().Get("periods"); p != "" {
		var err error

		periods, err = strconv.ParseUint(p, 10, 64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	err := m.post(r.Context(), func(reply chan<- error) machine.Message {
		return machine.RunComponent{
			ID: id, Task: task, Periods: periods, Reply: reply,
		}
	})
	if err != nil {
		m.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) shutdown(w http.ResponseWriter, r *http.Request) {
	err := m.post(r.Context(), func(reply chan<- error) machine.Message {
		return machine.Shutdown{Reply: reply}
	})
	if err != nil {
		m.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) snapshot(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer

	err := m.post(r.Context(), func(reply chan<- error) machine.Message {
		return machine.SnapshotMachine{Destination: &buf, Reply: reply}
	})
	if err != nil {
		m.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"snapshot-%d.bin\"", m.runner.Now()))

	_, err = buf.WriteTo(w)
	dieOnErr(err)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	ids := make([]string, 0, len(m.components))
	for _, id := range m.components {
		ids = append(ids, string(id))
	}

	writeJSON(w, ids)
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	id := naming.ID(mux.Vars(r)["id"])
	m.inspect(w, r, id, "")
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.inspect(w, r, naming.ID(req.CompName), req.FieldName)
}

func (m *Monitor) inspect(
	w http.ResponseWriter,
	r *http.Request,
	id naming.ID,
	field string,
) {
	var buf bytes.Buffer

	err := m.post(r.Context(), func(reply chan<- error) machine.Message {
		return machine.InspectComponent{
			ID:          id,
			Field:       field,
			Depth:       1,
			Destination: &buf,
			Reply:       reply,
		}
	})
	if err != nil {
		m.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	_, err = buf.WriteTo(w)
	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	now := time.Now()

	statuses := make([]progressStatus, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		statuses = append(statuses, b.status(now))
	}

	writeJSON(w, statuses)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

// writeError maps the outcome of a machine message to a status code.
func (m *Monitor) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, component.ErrUnknownComponent),
		errors.Is(err, timing.ErrUnknownTask):
		status = http.StatusNotFound
	case errors.Is(err, machine.ErrShutdown),
		errors.Is(err, machine.ErrNotRunning):
		status = http.StatusConflict
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}

	m.logger.V(1).Info("request failed", "status", status, "error", err.Error())

	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
