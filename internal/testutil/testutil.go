// Package testutil holds fixtures shared by the package tests: compressed
// input files, path lists and generated CSV rows.
package testutil

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/DataDog/zstd"
)

// GzipFile writes content gzip-compressed to name inside dir and returns the
// full path.
func GzipFile(t testing.TB, dir, name, content string) string {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(content)); err != nil {
		t.Fatalf("failed to gzip content: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}

	return RawFile(t, dir, name, buf.Bytes())
}

// MultiMemberGzipFile writes every part as its own gzip member, concatenated
// into one file.
func MultiMemberGzipFile(t testing.TB, dir, name string, parts ...string) string {
	t.Helper()

	var buf bytes.Buffer
	for _, part := range parts {
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write([]byte(part)); err != nil {
			t.Fatalf("failed to gzip content: %v", err)
		}
		if err := gz.Close(); err != nil {
			t.Fatalf("failed to close gzip writer: %v", err)
		}
	}

	return RawFile(t, dir, name, buf.Bytes())
}

// ZstdFile writes content zstd-compressed to name inside dir.
func ZstdFile(t testing.TB, dir, name, content string) string {
	t.Helper()

	compressed, err := zstd.Compress(nil, []byte(content))
	if err != nil {
		t.Fatalf("failed to zstd content: %v", err)
	}

	return RawFile(t, dir, name, compressed)
}

// TruncatedGzipFile writes a gzip stream cut off after keep bytes.
func TruncatedGzipFile(t testing.TB, dir, name, content string, keep int) string {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte(content))
	gz.Close()

	data := buf.Bytes()
	if keep > len(data) {
		keep = len(data)
	}
	return RawFile(t, dir, name, data[:keep])
}

// RawFile writes data uncompressed to name inside dir.
func RawFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	return path
}

// PathList joins paths into a newline separated path list.
func PathList(paths ...string) string {
	if len(paths) == 0 {
		return ""
	}
	return strings.Join(paths, "\n") + "\n"
}

// GenerateCSV generates a CSV document with a header and rows data rows.
// Every tenth row contains the marker "ERROR".
func GenerateCSV(rows int) string {
	var builder strings.Builder
	builder.WriteString("timestamp,level,host,message\n")

	levels := []string{"INFO", "WARN", "DEBUG", "INFO", "INFO", "WARN", "DEBUG", "INFO", "INFO"}
	for i := 0; i < rows; i++ {
		level := levels[i%len(levels)]
		if i%10 == 9 {
			level = "ERROR"
		}
		fmt.Fprintf(&builder, "2024-01-15T10:%02d:%02d,%s,host%03d,request %d completed\n",
			(i/60)%60, i%60, level, i%100, i)
	}

	return builder.String()
}

// SortedLines splits s after every newline and sorts the result, so that
// outputs with nondeterministic cross-file interleaving can be compared.
func SortedLines(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	sort.Strings(lines)
	return lines
}

// MatchingLines returns the lines of content containing substring, with
// their terminators, in file order.
func MatchingLines(content, substring string) []string {
	var out []string
	for _, line := range strings.SplitAfter(content, "\n") {
		if line != "" && strings.Contains(line, substring) {
			out = append(out, line)
		}
	}
	return out
}
