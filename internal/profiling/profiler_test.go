package profiling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func globProfiles(t *testing.T, dir, pattern string) []string {
	t.Helper()

	profiles, err := filepath.Glob(filepath.Join(dir, pattern))
	require.NoError(t, err)
	for _, profile := range profiles {
		info, err := os.Stat(profile)
		require.NoError(t, err)
		assert.NotZero(t, info.Size(), "profile %s is empty", profile)
	}
	return profiles
}

func TestProfiler(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("DisabledProfiler", func(t *testing.T) {
		p := NewProfiler(Config{ProfileDir: tmpDir, CommandName: "test"}, nil)
		assert.False(t, p.enabled)

		p.Stop()
		p.Snapshot("test")
		p.LogMetrics("test")

		assert.Empty(t, globProfiles(t, tmpDir, "test_*.prof"))
	})

	t.Run("CPUProfileOnly", func(t *testing.T) {
		p := NewProfiler(Config{CPUProfile: true, ProfileDir: tmpDir, CommandName: "testcpu"}, nil)
		require.True(t, p.enabled)

		doWork(100)
		p.Stop()

		assert.NotEmpty(t, globProfiles(t, tmpDir, "testcpu_cpu_*.prof"))
	})

	t.Run("MemProfileOnly", func(t *testing.T) {
		p := NewProfiler(Config{MemProfile: true, ProfileDir: tmpDir, CommandName: "testmem"}, nil)
		require.True(t, p.enabled)

		allocateMemory()
		p.Stop()

		assert.NotEmpty(t, globProfiles(t, tmpDir, "testmem_mem_*.prof"))
		assert.NotEmpty(t, globProfiles(t, tmpDir, "testmem_alloc_*.prof"))
	})

	t.Run("Snapshot", func(t *testing.T) {
		p := NewProfiler(Config{MemProfile: true, ProfileDir: tmpDir, CommandName: "testsnap"}, nil)

		p.Snapshot("before")
		allocateMemory()
		p.Snapshot("after")
		p.Stop()

		assert.NotEmpty(t, globProfiles(t, tmpDir, "testsnap_snapshot_before_*.prof"))
		assert.NotEmpty(t, globProfiles(t, tmpDir, "testsnap_snapshot_after_*.prof"))
	})

	t.Run("LogsToZap", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		p := NewProfiler(Config{MemProfile: true, ProfileDir: tmpDir, CommandName: "testlog"}, zap.New(core))

		p.LogMetrics("start")
		p.Stop()

		assert.Equal(t, 1, logs.FilterMessage("Profile metrics").Len())
		assert.Equal(t, 2, logs.FilterMessage("Wrote profile").Len())
	})

	t.Run("UnwritableDirectory", func(t *testing.T) {
		blocker := filepath.Join(tmpDir, "blocker")
		require.NoError(t, os.WriteFile(blocker, nil, 0644))

		core, logs := observer.New(zap.WarnLevel)
		p := NewProfiler(Config{CPUProfile: true, ProfileDir: filepath.Join(blocker, "sub")}, zap.New(core))

		assert.False(t, p.enabled)
		assert.Equal(t, 1, logs.Len())
		p.Stop()
	})
}

func TestGetMetrics(t *testing.T) {
	m := GetMetrics()

	assert.Positive(t, m.NumCPU)
	assert.Positive(t, m.NumGoroutine)
	assert.NotZero(t, m.Alloc)
}

func TestFlags(t *testing.T) {
	f := Flags{}
	assert.False(t, f.Enabled())

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs, &f)
	require.NoError(t, fs.Parse([]string{"--profile", "--profiledir", "/tmp/p"}))

	assert.True(t, f.Enabled())
	cfg := f.ToConfig("gzscan")
	assert.Equal(t, "gzscan", cfg.CommandName)
	assert.Equal(t, "/tmp/p", cfg.ProfileDir)
	assert.True(t, cfg.CPUProfile)
	assert.True(t, cfg.MemProfile)
}

func doWork(iterations int) {
	result := 0
	for i := 0; i < iterations*1000; i++ {
		for j := 0; j < 100; j++ {
			result += i * j
		}
	}
	_ = result
}

func allocateMemory() [][]byte {
	const numAllocs = 100
	const allocSize = 1024 * 1024

	allocations := make([][]byte, numAllocs)
	for i := range allocations {
		allocations[i] = make([]byte, allocSize)
		for j := 0; j < allocSize; j += 4096 {
			allocations[i][j] = byte(i)
		}
	}
	return allocations
}
