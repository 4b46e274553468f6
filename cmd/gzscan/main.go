// Package main provides gzscan, which reads a list of compressed CSV files
// from stdin, scans them in parallel and writes every line containing the
// record substring to stdout.
//
// Usage:
//
//	find /data -name '*.csv.gz' | gzscan -r ERROR > errors.csv
//
// Per-file failures are logged to stderr and do not stop the scan. The exit
// status is 0 on completion, 1 if --fail-on-file-error is set and a file
// failed, and 2 on configuration, write or interruption errors.
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
