// Package engine provides batched PBKDF2-HMAC-SHA1 derivation behind a single
// lifecycle-managed interface, backed by either a Vulkan compute pipeline or a
// multi-core CPU fallback. Both backends produce byte-identical PMKs for the
// same input.
package engine

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"
)

// State is the engine lifecycle: Uninitialized -> Initializing -> Ready ->
// {Error | Shutdown}. Derivation calls are accepted only while Ready.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateError
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

var (
	ErrNotInitialized   = errors.New("engine not initialized")
	ErrInInitialization = errors.New("engine is initializing")
	ErrInErrorState     = errors.New("engine is in error state")
	ErrShutdown         = errors.New("engine has been shut down")
)

// stateError maps a non-Ready state to its contract-violation error.
func stateError(s State) error {
	switch s {
	case StateUninitialized:
		return ErrNotInitialized
	case StateInitializing:
		return ErrInInitialization
	case StateError:
		return ErrInErrorState
	case StateShutdown:
		return ErrShutdown
	default:
		return nil
	}
}

// backend is the closed set of derivation implementations: gpuBackend and
// cpuBackend. Conformance tests run the same vectors against both.
type backend interface {
	init() error
	derive(passwords []string, ssid string) ([][]byte, error)
	name() string
	release()
}

// Options configures engine construction.
type Options struct {
	// ForceCPU skips GPU probing entirely.
	ForceCPU bool
	// ShaderPath points at the compiled SPIR-V for the PBKDF2 compute
	// pipeline. Empty means the default asset location.
	ShaderPath string
	// Workers overrides the CPU worker count (defaults to NumCPU).
	Workers int
	Verbose int
}

// GPUBatchSize is the number of candidates dispatched per compute-shader
// invocation; it matches the shader's workgroup size.
const GPUBatchSize = 64

// ComputeEngine derives PMK batches on the GPU when a Vulkan compute device
// is usable, and on the CPU otherwise. All GPU access is serialized behind a
// mutex; native compute contexts are not reentrant. CPU derivation runs fully
// parallel without it.
type ComputeEngine struct {
	mu          sync.Mutex
	state       State
	gpu         backend
	cpu         backend
	accelerated bool
	verbose     int
}

// New constructs an engine in the Uninitialized state. The caller owns the
// instance: initialize it before use, shut it down after, and build a fresh
// one for subsequent work.
func New(opts Options) *ComputeEngine {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	e := &ComputeEngine{
		state:   StateUninitialized,
		cpu:     newCPUBackend(workers),
		verbose: opts.Verbose,
	}
	if !opts.ForceCPU {
		e.gpu = newGPUBackend(opts.ShaderPath)
	}
	return e
}

// Initialize brings the engine to Ready and reports whether derivation is
// GPU-accelerated. A GPU that fails to come up is not an error: the engine
// falls back to the CPU backend, logs the reason, and reports false.
// Repeated calls while Ready are no-ops returning the cached result.
func (e *ComputeEngine) Initialize() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateReady:
		return e.accelerated, nil
	case StateShutdown:
		return false, ErrShutdown
	case StateInitializing:
		return false, ErrInInitialization
	}

	e.state = StateInitializing

	if e.gpu != nil {
		if err := e.gpu.init(); err != nil {
			if e.verbose > 0 {
				log.Printf("GPU unavailable, falling back to CPU: %v", err)
			}
			e.gpu.release()
			e.gpu = nil
		} else {
			e.accelerated = true
			if e.verbose > 0 {
				log.Printf("GPU compute pipeline ready: %s", e.gpu.name())
			}
		}
	}

	if err := e.cpu.init(); err != nil {
		// The CPU backend has nothing to probe; failure here is fatal.
		e.state = StateError
		return false, fmt.Errorf("cpu backend: %w", err)
	}

	e.state = StateReady
	return e.accelerated, nil
}

// DerivePMKBatch computes one 32-byte PMK per password, in input order. A GPU
// failure mid-batch is caught, logged, and downgraded: the batch reruns on the
// CPU and the engine stays CPU-only for the rest of the session.
func (e *ComputeEngine) DerivePMKBatch(passwords []string, ssid string) ([][]byte, error) {
	e.mu.Lock()

	if err := stateError(e.state); err != nil {
		e.mu.Unlock()
		return nil, err
	}

	if e.accelerated {
		pmks, err := e.gpu.derive(passwords, ssid)
		if err == nil {
			e.mu.Unlock()
			return pmks, nil
		}
		log.Printf("GPU batch failed, downgrading to CPU for this session: %v", err)
		e.gpu.release()
		e.gpu = nil
		e.accelerated = false
	}
	e.mu.Unlock()

	// CPU derivation is internally parallel and needs no engine-level lock.
	return e.cpu.derive(passwords, ssid)
}

// DerivePMK derives a single PMK through the batch path.
func (e *ComputeEngine) DerivePMK(password, ssid string) ([]byte, error) {
	pmks, err := e.DerivePMKBatch([]string{password}, ssid)
	if err != nil {
		return nil, err
	}
	return pmks[0], nil
}

// BatchSize returns the candidate count the orchestrator should submit per
// derivation call: one workgroup for the GPU, one candidate per core for CPU.
func (e *ComputeEngine) BatchSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.accelerated {
		return GPUBatchSize
	}
	return e.cpu.(*cpuBackend).workers
}

// Accelerated reports whether the GPU path is active.
func (e *ComputeEngine) Accelerated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.accelerated
}

// Mode returns a short label for progress reporting.
func (e *ComputeEngine) Mode() string {
	if e.Accelerated() {
		return "GPU"
	}
	return "CPU"
}

// DeviceName names the active compute device.
func (e *ComputeEngine) DeviceName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.accelerated {
		return e.gpu.name()
	}
	return e.cpu.name()
}

// State returns the current lifecycle state.
func (e *ComputeEngine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// benchmarkCandidates is the fixed set used by Benchmark; realistic lengths,
// all within WPA passphrase bounds.
var benchmarkCandidates = []string{
	"password123", "qwerty12345", "letmein2024", "admin12345",
	"welcome123", "monkey1234", "dragon2024", "master123",
}

// Benchmark derives the fixed candidate set for the given number of rounds
// and reports the sustained rate in hashes per second. The engine must be
// Ready.
func (e *ComputeEngine) Benchmark(rounds int) (float64, error) {
	if err := stateError(e.State()); err != nil {
		return 0, err
	}

	// Warm up once so pipeline compilation is not billed to the rate.
	if _, err := e.DerivePMKBatch(benchmarkCandidates[:1], "benchmark"); err != nil {
		return 0, err
	}

	start := time.Now()
	total := 0
	for i := 0; i < rounds; i++ {
		if _, err := e.DerivePMKBatch(benchmarkCandidates, "benchmark"); err != nil {
			return 0, err
		}
		total += len(benchmarkCandidates)
	}
	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		return 0, nil
	}
	return float64(total) / elapsed, nil
}

// Shutdown releases all native resources. The instance is unusable afterward;
// construct a fresh engine for subsequent work. Safe to call more than once.
func (e *ComputeEngine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateShutdown {
		return
	}
	if e.gpu != nil {
		e.gpu.release()
		e.gpu = nil
	}
	e.accelerated = false
	e.state = StateShutdown
}
