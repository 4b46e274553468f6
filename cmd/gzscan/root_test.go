package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimecast/gzscan/internal/config"
	"github.com/mimecast/gzscan/internal/constants"
	"github.com/mimecast/gzscan/internal/testutil"
	"github.com/mimecast/gzscan/internal/version"
)

type invocation struct {
	code   int
	stdout string
	stderr string
}

func invoke(t *testing.T, stdin string, args ...string) invocation {
	t.Helper()

	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--log-format", "json"}, args...), strings.NewReader(stdin), &stdout, &stderr)
	return invocation{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestScanFromStdin(t *testing.T) {
	dir := t.TempDir()
	a := testutil.GzipFile(t, dir, "a.csv.gz", "id,val\nx,9\n")
	b := testutil.GzipFile(t, dir, "b.csv.gz", "x,1\ny,2\n")

	res := invoke(t, testutil.PathList(a, "  "+b+"  "), "-r", "x", "-w", "2")

	assert.Equal(t, 0, res.code)
	assert.Equal(t, []string{"x,1\n", "x,9\n"}, testutil.SortedLines(res.stdout))
	assert.Contains(t, res.stderr, "Scan finished")
	assert.NotContains(t, res.stderr, "x,9")
}

func TestScanFromInputFile(t *testing.T) {
	dir := t.TempDir()
	a := testutil.ZstdFile(t, dir, "a.csv.zst", "id,val\r\nx,9\r\n")
	list := testutil.RawFile(t, dir, "paths.txt", []byte(testutil.PathList(a)))

	res := invoke(t, "", "--input", list, "--compression", "auto", "--strip-terminators", "--decode-strategy", "buffer")

	assert.Equal(t, 0, res.code)
	assert.Equal(t, "id,valx,9", res.stdout)
}

func TestFileErrorsExitCode(t *testing.T) {
	dir := t.TempDir()
	valid := testutil.GzipFile(t, dir, "valid.csv.gz", "x,9\n")
	stdin := testutil.PathList(filepath.Join(dir, "missing.csv.gz"), valid)

	res := invoke(t, stdin)
	assert.Equal(t, 0, res.code)
	assert.Equal(t, "x,9\n", res.stdout)
	assert.Contains(t, res.stderr, "Unable to process file")
	assert.Contains(t, res.stderr, "missing.csv.gz")

	res = invoke(t, stdin, "--fail-on-file-error")
	assert.Equal(t, 1, res.code)
	assert.Equal(t, "x,9\n", res.stdout)
}

func TestEnvironmentConfig(t *testing.T) {
	path := testutil.GzipFile(t, t.TempDir(), "a.csv.gz", "id,val\nx,9\n")
	t.Setenv("GZSCAN_RECORD_SUBSTRING", "id")

	res := invoke(t, testutil.PathList(path))
	assert.Equal(t, "id,val\n", res.stdout)

	res = invoke(t, testutil.PathList(path), "--record-substring", "9")
	assert.Equal(t, "x,9\n", res.stdout)
}

func TestConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero channel bound", []string{"-c", "0"}},
		{"unknown compression", []string{"--compression", "lz4"}},
		{"unknown flag", []string{"--nope"}},
		{"positional argument", []string{"file.gz"}},
		{"missing config file", []string{"--config", "/nonexistent/gzscan.yaml"}},
		{"missing path list", []string{"--input", "/nonexistent/paths.txt"}},
		{"bad log level", []string{"--log-level", "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := invoke(t, "", tt.args...)
			assert.Equal(t, 2, res.code)
			assert.Empty(t, res.stdout)
			assert.NotEmpty(t, res.stderr)
		})
	}
}

func TestEmptyInput(t *testing.T) {
	res := invoke(t, "", "--log-level", "none")

	assert.Equal(t, 0, res.code)
	assert.Empty(t, res.stdout)
	assert.Empty(t, res.stderr)
}

func TestMetricsServer(t *testing.T) {
	path := testutil.GzipFile(t, t.TempDir(), "a.csv.gz", "x\n")

	res := invoke(t, testutil.PathList(path), "--metrics-addr", "127.0.0.1:0")

	require.Equal(t, 0, res.code)
	assert.Equal(t, "x\n", res.stdout)
	assert.Contains(t, res.stderr, "Starting prometheus metrics server")
}

func TestVersion(t *testing.T) {
	res := invoke(t, "", "--version")

	assert.Equal(t, 0, res.code)
	assert.Equal(t, version.String()+"\n", res.stdout)
}

func TestCancelWithOpenStdin(t *testing.T) {
	path := testutil.GzipFile(t, t.TempDir(), "a.csv.gz", "x,9\n")

	stdin, feed := io.Pipe()
	t.Cleanup(func() { feed.Close() })
	written := make(chan struct{})
	go func() {
		defer close(written)
		feed.Write([]byte(testutil.PathList(path)))
	}()

	var stdout, stderr bytes.Buffer
	a := &app{stdin: stdin, stdout: &stdout, stderr: &stderr}
	cfg := config.DefaultConfig()
	cfg.LogLevel = "none"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() {
		done <- a.scan(ctx, cfg)
	}()

	<-written
	cancel()

	// stdin stays open: the path list reader never sees EOF.
	select {
	case code := <-done:
		assert.Equal(t, constants.ExitFatal, code)
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not return after cancellation while stdin is open")
	}
}

func TestOverlongPathEntry(t *testing.T) {
	valid := testutil.GzipFile(t, t.TempDir(), "valid.csv.gz", "x,9\n")
	long := "/" + strings.Repeat("x", 64*1024+1)

	res := invoke(t, testutil.PathList(valid, long, valid), "-w", "1")

	assert.Equal(t, 0, res.code)
	assert.Equal(t, "x,9\nx,9\n", res.stdout)
	assert.Contains(t, res.stderr, "Unable to process file")
	assert.Contains(t, res.stderr, `"op":"open"`)
}
