// Package profiling captures CPU and heap profiles around a CLI run.
package profiling

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
)

// Profiler manages the profiles requested for one run.
type Profiler struct {
	cpuPath  string
	heapPath string
	cpuFile  *os.File
}

// NewProfiler creates a Profiler. Either path may be empty to skip that
// profile.
func NewProfiler(cpuPath, heapPath string) *Profiler {
	return &Profiler{cpuPath: cpuPath, heapPath: heapPath}
}

// Enabled reports whether any profile was requested.
func (p *Profiler) Enabled() bool {
	return p.cpuPath != "" || p.heapPath != ""
}

// Start begins CPU profiling if requested.
func (p *Profiler) Start() error {
	if p.cpuPath == "" {
		return nil
	}
	f, err := os.Create(p.cpuPath)
	if err != nil {
		return fmt.Errorf("failed to create CPU profile file: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to start CPU profile: %w", err)
	}
	p.cpuFile = f
	return nil
}

// Stop flushes the CPU profile and writes the heap profile. Safe to call
// without Start.
func (p *Profiler) Stop() error {
	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		_ = p.cpuFile.Close()
		p.cpuFile = nil
	}
	if p.heapPath == "" {
		return nil
	}
	return writeHeap(p.heapPath)
}

func writeHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create heap profile file: %w", err)
	}
	defer func() { _ = f.Close() }()

	// Collect first so the profile shows live objects only.
	runtime.GC()

	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("failed to write heap profile: %w", err)
	}
	return nil
}
