//go:build linux || darwin || freebsd

package vmem

import (
	"errors"

	"golang.org/x/sys/unix"
)

func pageSize() int { return unix.Getpagesize() }

// reserveMemory maps size bytes of inaccessible anonymous memory.
// PROT_NONE mappings are not charged against the commit limit until they are
// made writable by commitMemory.
func reserveMemory(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
}

// commitMemory makes b readable and writable.
func commitMemory(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Mprotect(b, unix.PROT_READ|unix.PROT_WRITE)
}

func releaseMemory(b []byte) error {
	err := unix.Munmap(b)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}
