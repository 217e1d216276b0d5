package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/alloc"
)

// runCommand executes heapctl with args and returns its stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		verbose, quiet, jsonOut, configPath = false, false, false, ""
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// newTestHeap creates a small heap for command tests.
func newTestHeap(t *testing.T) *alloc.Heap {
	t.Helper()

	h, err := alloc.New(&alloc.Config{ReserveBytes: 16 << 20, CommitChunkBytes: 256 << 10})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}
