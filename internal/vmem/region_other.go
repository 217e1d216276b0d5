//go:build !linux && !darwin && !freebsd

package vmem

import "os"

func pageSize() int { return os.Getpagesize() }

// reserveMemory allocates the reservation from the Go heap when mmap is not
// available. The slice is never resized, so offsets into it stay valid.
func reserveMemory(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func commitMemory([]byte) error { return nil }

func releaseMemory([]byte) error { return nil }
