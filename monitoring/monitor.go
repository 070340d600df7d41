// Package monitoring serves the state of a running machine over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"reflect"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/rvcore/cpu"
	"github.com/sarchlab/rvcore/machine"
	"github.com/sarchlab/rvcore/mem/vm/mmu"
	"github.com/sarchlab/rvcore/mem/vm/tlb"
)

// Monitor turns a machine into a server that allows external monitoring and
// controlling of the emulation.
type Monitor struct {
	machine    *machine.Machine
	portNumber int
	port       int

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor for m.
func NewMonitor(m *machine.Machine) *Monitor {
	return &Monitor{machine: m}
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

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

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

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseMachine)
	r.HandleFunc("/api/continue", m.continueMachine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/cores", m.listCores)
	r.HandleFunc("/api/core/{id}", m.coreDetails)
	r.HandleFunc("/api/core/{id}/field/{field}", m.coreField)
	r.HandleFunc("/api/stats/{id}", m.coreStats)
	r.HandleFunc("/api/tlb/{id}/{side}", m.dumpTLB)
	r.HandleFunc("/api/pagetable/{id}", m.dumpPageTable)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	return r
}

// StartServer starts the monitor as a web server and returns the port it
// listens on.
func (m *Monitor) StartServer() int {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	m.port = listener.Addr().(*net.TCPAddr).Port

	fmt.Fprintf(
		os.Stderr,
		"Monitoring %s with http://localhost:%d/api/cores\n",
		m.machine.Name(), m.port)

	r := m.router()

	go func() {
		err := http.Serve(listener, r)
		dieOnErr(err)
	}()

	return m.port
}

// OpenBrowser shows the core list of a started server in a browser.
func (m *Monitor) OpenBrowser() error {
	return browser.OpenURL(fmt.Sprintf("http://localhost:%d/api/cores", m.port))
}

func (m *Monitor) pauseMachine(w http.ResponseWriter, _ *http.Request) {
	m.machine.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueMachine(w http.ResponseWriter, _ *http.Request) {
	m.machine.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	var now uint64

	m.machine.Inspect(func() {
		now = m.machine.Clock().CurrentTime()
	})

	fmt.Fprintf(w, "{\"now\":%d}", now)
}

type coreRsp struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	PC        uint64 `json:"pc"`
	Privilege string `json:"privilege"`
	Retired   uint64 `json:"retired"`
}

func (m *Monitor) listCores(w http.ResponseWriter, _ *http.Request) {
	rsp := make([]coreRsp, m.machine.NumCores())

	m.machine.Inspect(func() {
		for i := range rsp {
			c := m.machine.Core(i)
			rsp[i] = coreRsp{
				ID:        c.ID(),
				Name:      c.Name(),
				PC:        c.State().PC,
				Privilege: c.State().Privilege().String(),
				Retired:   c.Stats().Retired,
			}
		}
	})

	writeJSON(w, rsp)
}

func (m *Monitor) findCoreOr404(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id < 0 || id >= m.machine.NumCores() {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Core not found"))
		dieOnErr(err)

		return 0, false
	}

	return id, true
}

// coreState is the architectural state of a core as the serializer sees it.
// The serializer walks slices but not arrays, so the registers are copied.
type coreState struct {
	Name      string
	Privilege string
	VMMode    string
	PC        uint64
	XPR       []uint64
	MStatus   uint64
	MIE       uint64
	MIP       uint64
	MTVec     uint64
	MScratch  uint64
	MEPC      uint64
	MCause    uint64
	MBadAddr  uint64
	SPTBR     uint64
	MInstret  uint64
}

func snapshot(c *cpu.Core) *coreState {
	s := c.State()

	return &coreState{
		Name:      c.Name(),
		Privilege: s.Privilege().String(),
		VMMode:    s.VMMode().String(),
		PC:        s.PC,
		XPR:       append([]uint64(nil), s.XPR[:]...),
		MStatus:   s.MStatus,
		MIE:       s.MIE,
		MIP:       s.MIP,
		MTVec:     s.MTVec,
		MScratch:  s.MScratch,
		MEPC:      s.MEPC,
		MCause:    s.MCause,
		MBadAddr:  s.MBadAddr,
		SPTBR:     s.SPTBR,
		MInstret:  s.MInstret,
	}
}

func (m *Monitor) coreDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := m.findCoreOr404(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer

	m.machine.Inspect(func() {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(snapshot(m.machine.Core(id)))
		serializer.SetMaxDepth(1)
		err := serializer.Serialize(&buf)
		dieOnErr(err)
	})

	_, err := w.Write(buf.Bytes())
	dieOnErr(err)
}

func (m *Monitor) coreField(w http.ResponseWriter, r *http.Request) {
	id, ok := m.findCoreOr404(w, r)
	if !ok {
		return
	}

	var (
		value string
		err   error
	)

	m.machine.Inspect(func() {
		var elem reflect.Value

		elem, err = m.walkFields(m.machine.Core(id).State(), mux.Vars(r)["field"])
		if err == nil {
			value = fmt.Sprint(elem)
		}
	})

	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	writeJSON(w, map[string]string{"value": value})
}

type statsRsp struct {
	Core cpu.Stats `json:"core"`
	MMU  mmu.Stats `json:"mmu"`
}

func (m *Monitor) coreStats(w http.ResponseWriter, r *http.Request) {
	id, ok := m.findCoreOr404(w, r)
	if !ok {
		return
	}

	var rsp statsRsp

	m.machine.Inspect(func() {
		c := m.machine.Core(id)
		rsp = statsRsp{Core: c.Stats(), MMU: c.MMU().Stats()}
	})

	writeJSON(w, rsp)
}

func (m *Monitor) dumpTLB(w http.ResponseWriter, r *http.Request) {
	id, ok := m.findCoreOr404(w, r)
	if !ok {
		return
	}

	t := m.machine.TLB(id)
	if t == nil {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "Core has no TLB")

		return
	}

	var side tlb.Side

	switch strings.ToLower(mux.Vars(r)["side"]) {
	case "i":
		side = tlb.SideInsn
	case "d":
		side = tlb.SideData
	default:
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "Side must be i or d")

		return
	}

	var buf bytes.Buffer

	m.machine.Inspect(func() {
		dieOnErr(t.Dump(&buf, side))
	})

	_, err := w.Write(buf.Bytes())
	dieOnErr(err)
}

func (m *Monitor) dumpPageTable(w http.ResponseWriter, r *http.Request) {
	id, ok := m.findCoreOr404(w, r)
	if !ok {
		return
	}

	walker := m.machine.Walker(id)
	if walker == nil {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "Core does not walk page tables")

		return
	}

	var (
		buf bytes.Buffer
		err error
	)

	m.machine.Inspect(func() {
		err = walker.Dump(&buf)
	})

	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	_, err = w.Write(buf.Bytes())
	dieOnErr(err)
}

type fieldFormatError struct {
	field string
}

func (e fieldFormatError) Error() string {
	return fmt.Sprintf("cannot walk into %q", e.field)
}

func (m *Monitor) walkFields(
	comp interface{},
	fields string,
) (reflect.Value, error) {
	elem := reflect.ValueOf(comp)

	fieldNames := strings.Split(fields, ".")

	for len(fieldNames) > 0 {
		switch elem.Kind() {
		case reflect.Ptr, reflect.Interface:
			elem = elem.Elem()
		case reflect.Struct:
			elem = elem.FieldByName(fieldNames[0])
			if !elem.IsValid() {
				return elem, fieldFormatError{field: fieldNames[0]}
			}

			fieldNames = fieldNames[1:]
		case reflect.Slice, reflect.Array:
			index, err := strconv.Atoi(fieldNames[0])
			if err != nil || index < 0 || index >= elem.Len() {
				return elem, fieldFormatError{field: fieldNames[0]}
			}

			elem = elem.Index(index)
			fieldNames = fieldNames[1:]
		default:
			return elem, fieldFormatError{field: fieldNames[0]}
		}
	}

	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}

	return elem, nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	rsp := make([]ProgressStatus, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		rsp = append(rsp, b.Status())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, rsp)
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

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	writeJSON(w, rsp)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
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
