package profiling

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"time"

	"go.uber.org/zap"
)

// Profiler writes CPU and heap profiles of one scan.
type Profiler struct {
	cpuProfile  *os.File
	memProfile  string
	profileDir  string
	commandName string
	enabled     bool
	logger      *zap.Logger
}

// Config holds profiling configuration
type Config struct {
	// Enable CPU profiling
	CPUProfile bool
	// Enable memory profiling
	MemProfile bool
	// Directory to store profiles
	ProfileDir string
	// Command name for profile naming
	CommandName string
}

// NewProfiler starts the profiles selected by cfg. A profiler that fails to
// start logs the failure and behaves like a disabled one.
func NewProfiler(cfg Config, logger *zap.Logger) *Profiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.CPUProfile && !cfg.MemProfile {
		return &Profiler{logger: logger}
	}

	p := &Profiler{
		profileDir:  cfg.ProfileDir,
		commandName: cfg.CommandName,
		enabled:     true,
		logger:      logger,
	}

	if p.profileDir == "" {
		p.profileDir = "profiles"
	}
	if err := os.MkdirAll(p.profileDir, 0755); err != nil {
		logger.Warn("Failed to create profile directory", zap.String("dir", p.profileDir), zap.Error(err))
		p.enabled = false
		return p
	}

	if cfg.CPUProfile {
		p.startCPUProfile()
	}
	if cfg.MemProfile {
		p.memProfile = p.profilePath("mem")
	}

	return p
}

func (p *Profiler) profilePath(kind string) string {
	timestamp := time.Now().Format("20060102_150405")
	return filepath.Join(p.profileDir, fmt.Sprintf("%s_%s_%s.prof", p.commandName, kind, timestamp))
}

func (p *Profiler) startCPUProfile() {
	path := p.profilePath("cpu")

	f, err := os.Create(path)
	if err != nil {
		p.logger.Warn("Failed to create CPU profile file", zap.Error(err))
		return
	}

	if err := pprof.StartCPUProfile(f); err != nil {
		p.logger.Warn("Failed to start CPU profile", zap.Error(err))
		f.Close()
		return
	}

	p.cpuProfile = f
	p.logger.Info("Started CPU profiling", zap.String("path", path))
}

// Stop stops all profiling and writes profiles to disk
func (p *Profiler) Stop() {
	if !p.enabled {
		return
	}

	if p.cpuProfile != nil {
		pprof.StopCPUProfile()
		p.cpuProfile.Close()
		p.cpuProfile = nil
		p.logger.Info("Stopped CPU profiling")
	}

	if p.memProfile != "" {
		p.writeHeapProfile(p.memProfile, "heap")
		p.writeHeapProfile(p.profilePath("alloc"), "allocs")
	}
}

func (p *Profiler) writeHeapProfile(path, profile string) {
	f, err := os.Create(path)
	if err != nil {
		p.logger.Warn("Failed to create profile file", zap.String("profile", profile), zap.Error(err))
		return
	}
	defer f.Close()

	runtime.GC()
	if err := pprof.Lookup(profile).WriteTo(f, 0); err != nil {
		p.logger.Warn("Failed to write profile", zap.String("profile", profile), zap.Error(err))
		return
	}

	p.logger.Info("Wrote profile", zap.String("profile", profile), zap.String("path", path))
}

// Snapshot writes a heap profile labelled label at any point of the run.
func (p *Profiler) Snapshot(label string) {
	if !p.enabled || p.memProfile == "" {
		return
	}
	p.writeHeapProfile(p.profilePath("snapshot_"+label), "heap")
}

// ProfileMetrics captures and returns current runtime metrics
type ProfileMetrics struct {
	// Memory statistics
	Alloc        uint64    // Bytes allocated and still in use
	TotalAlloc   uint64    // Bytes allocated (even if freed)
	Sys          uint64    // Bytes obtained from system
	NumGC        uint32    // Number of completed GC cycles
	LastGC       time.Time // Time of last GC
	PauseTotalNs uint64    // Total GC pause time in nanoseconds

	NumGoroutine int
	NumCPU       int
}

// GetMetrics returns current runtime metrics
func GetMetrics() ProfileMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return ProfileMetrics{
		Alloc:        m.Alloc,
		TotalAlloc:   m.TotalAlloc,
		Sys:          m.Sys,
		NumGC:        m.NumGC,
		LastGC:       time.Unix(0, int64(m.LastGC)),
		PauseTotalNs: m.PauseTotalNs,
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
	}
}

// LogMetrics logs current runtime metrics
func (p *Profiler) LogMetrics(label string) {
	if !p.enabled {
		return
	}

	m := GetMetrics()
	p.logger.Info("Profile metrics",
		zap.String("label", label),
		zap.Uint64("alloc", m.Alloc),
		zap.Uint64("total_alloc", m.TotalAlloc),
		zap.Uint64("sys", m.Sys),
		zap.Uint32("num_gc", m.NumGC),
		zap.Duration("gc_pause", time.Duration(m.PauseTotalNs)),
		zap.Int("goroutines", m.NumGoroutine))
}
