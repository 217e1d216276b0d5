package alloc

import "errors"

var (
	// ErrDoubleRelease indicates a release of a block that is already free.
	ErrDoubleRelease = errors.New("alloc: double release")

	// ErrHeapExhausted indicates the heap could not be extended to satisfy an allocation.
	ErrHeapExhausted = errors.New("alloc: heap exhausted")

	// ErrInvalidPointer indicates a released pointer that does not address a payload in this heap.
	ErrInvalidPointer = errors.New("alloc: pointer not allocated from this heap")

	// ErrNoThreadID indicates the OS thread identity is not available on this platform.
	ErrNoThreadID = errors.New("alloc: thread id not available on this platform")

	// ErrCorrupt indicates that Verify found a broken heap or free-list invariant.
	ErrCorrupt = errors.New("alloc: heap corrupt")
)
