package vsp

import (
	"sync"

	"golang.org/x/sys/cpu"

	"github.com/silvanoneto/sil-core/internal/bytesil"
	"github.com/silvanoneto/sil-core/internal/silstate"
)

// Backend is the narrow trait every accelerator (CPU, GPU, NPU, FPGA) must
// provide (spec.md §4.3 V.Backend, §9 "Polymorphic backends"). The
// executor dispatches GRAD/EMERGE/FENCE through this interface only; every
// other opcode runs on the CPU path directly.
type Backend interface {
	Name() string
	ProcessorType() string
	IsAvailable() bool
	ComputeGradient(s silstate.SilState, mode GradMode) [silstate.NumLayers]Gradient
	Emergence(s silstate.SilState) silstate.SilState
	Fence()
}

// cpuBackend is the always-available reference backend. Its
// ComputeGradient implementation is the spec-mandated reference semantics:
// for each slot i, the forward difference of the raw Rho and Theta fields
// from slot i to slot (i+1) mod 16 (spec.md §4.3 "CPU backend, with
// explicit reference semantics for GRAD").
type cpuBackend struct {
	features string
}

func newCPUBackend() *cpuBackend {
	return &cpuBackend{features: cpuFeatureString()}
}

// cpuFeatureString reports detected host SIMD capability, purely for
// backend identity/diagnostics (golang.org/x/sys/cpu, grounded on
// ajroetker-goat's use of the same package for host feature detection). It
// never changes numeric results.
func cpuFeatureString() string {
	switch {
	case cpu.X86.HasAVX512F:
		return "x86/avx512"
	case cpu.X86.HasAVX2:
		return "x86/avx2"
	case cpu.ARM64.HasASIMD:
		return "arm64/asimd"
	default:
		return "generic"
	}
}

func (c *cpuBackend) Name() string          { return "cpu" }
func (c *cpuBackend) ProcessorType() string { return "cpu:" + c.features }
func (c *cpuBackend) IsAvailable() bool     { return true }
func (c *cpuBackend) Fence()                {}

func (c *cpuBackend) ComputeGradient(s silstate.SilState, mode GradMode) [silstate.NumLayers]Gradient {
	var g [silstate.NumLayers]Gradient
	for i := 0; i < silstate.NumLayers; i++ {
		next := (i + 1) % silstate.NumLayers
		a, b := s.Get(i), s.Get(next)
		g[i].DRho = float64(b.Rho) - float64(a.Rho)
		switch mode {
		case GradNaive:
			g[i].DTheta = float64(b.Theta) - float64(a.Theta)
		default: // GradCircular
			g[i].DTheta = circularDelta(a.Theta, b.Theta)
		}
	}
	return g
}

// circularDelta returns the shortest signed path from a to b on a mod-16
// ring, resolving the §9 open question in favor of distance-preserving
// wrap-around (documented in DESIGN.md).
func circularDelta(a, b byte) float64 {
	d := int(b) - int(a)
	d = ((d+8)%16 + 16) % 16 - 8
	return float64(d)
}

// Emergence applies the spec's abstractly-specified routine: "XOR of the
// two emergence-group layers written back to the first of them" (L11, L12
// per the §3 grouping).
func (c *cpuBackend) Emergence(s silstate.SilState) silstate.SilState {
	const l11, l12 = 11, 12
	combined := bytesil.Xor(s.Get(l11), s.Get(l12))
	return s.WithLayer(l11, combined)
}

// unavailableBackend models a GPU/NPU/FPGA device backend. Device drivers
// are an explicit spec non-goal; this stub always reports unavailable so
// BackendSelector's CPU-fallback path is real and testable without
// hardware (see SPEC_FULL.md §3).
type unavailableBackend struct {
	name          string
	processorType string
}

func (u *unavailableBackend) Name() string          { return u.name }
func (u *unavailableBackend) ProcessorType() string  { return u.processorType }
func (u *unavailableBackend) IsAvailable() bool      { return false }
func (u *unavailableBackend) Fence()                 {}
func (u *unavailableBackend) ComputeGradient(s silstate.SilState, mode GradMode) [silstate.NumLayers]Gradient {
	panic("vsp: unavailable backend invoked; BackendSelector must not dispatch to it")
}
func (u *unavailableBackend) Emergence(s silstate.SilState) silstate.SilState {
	panic("vsp: unavailable backend invoked; BackendSelector must not dispatch to it")
}

// BackendSelector holds an ordered [CPU, GPU?, NPU?, FPGA?] backend list
// and picks the first available preferred backend for GRAD/EMERGE,
// falling back to CPU (spec.md §4.3, §9). Each selector builds its own
// backend objects; they are not shared between VSP instances. Selection
// itself is guarded by a mutex even though each individual backend is
// expected to be internally synchronized.
type BackendSelector struct {
	mu       sync.Mutex
	cpu      Backend
	preferred []Backend // GPU, NPU, FPGA, in that preference order
	batch    *batchState
}

type batchState struct {
	n       int
	pending []func()
}

// NewBackendSelector builds a selector for the given config. GPU/NPU/FPGA
// backends are always the unavailable stubs of SPEC_FULL.md §3; the
// selector has no way to register another backend.
func NewBackendSelector(cfg Config) *BackendSelector {
	sel := &BackendSelector{cpu: newCPUBackend()}
	if cfg.EnableGPU {
		sel.preferred = append(sel.preferred, &unavailableBackend{name: "gpu", processorType: "gpu"})
	}
	if cfg.EnableNPU {
		sel.preferred = append(sel.preferred, &unavailableBackend{name: "npu", processorType: "npu"})
	}
	if cfg.EnableFPGA {
		sel.preferred = append(sel.preferred, &unavailableBackend{name: "fpga", processorType: "fpga"})
	}
	return sel
}

// CPU returns the always-available CPU backend.
func (s *BackendSelector) CPU() Backend { return s.cpu }

// Pick returns the backend that should service a GRAD/EMERGE request: the
// first preferred (GPU/NPU/FPGA) backend that reports available, else CPU.
// BackendUnavailable never surfaces to the caller — it is the recoverable
// error category of spec.md §4.3/§7, downgraded silently here.
func (s *BackendSelector) Pick() Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.preferred {
		if b.IsAvailable() {
			return b
		}
	}
	return s.cpu
}

// BeginBatch opens a batch window of n GRAD/EMERGE operations whose
// results are not observable until EndBatch or FENCE (spec.md §5).
func (s *BackendSelector) BeginBatch(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batch = &batchState{n: n}
}

// InBatch reports whether a batch window is currently open.
func (s *BackendSelector) InBatch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batch != nil
}

// Defer queues fn to run at EndBatch/FENCE time if a batch window is open;
// otherwise it runs fn immediately.
func (s *BackendSelector) Defer(fn func()) {
	s.mu.Lock()
	if s.batch != nil {
		s.batch.pending = append(s.batch.pending, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn()
}

// EndBatch blocks until all queued GRAD/EMERGE operations in the current
// batch window have observably completed, then closes the window.
func (s *BackendSelector) EndBatch() {
	s.mu.Lock()
	b := s.batch
	s.batch = nil
	s.mu.Unlock()
	if b == nil {
		return
	}
	for _, fn := range b.pending {
		fn()
	}
}

// Fence forces a batch flush (if any) and fences every registered backend,
// the only opcode-level operation that can do so mid-program (spec.md §5).
func (s *BackendSelector) Fence() {
	s.EndBatch()
	s.cpu.Fence()
	for _, b := range s.preferred {
		b.Fence()
	}
}
