package main

import "unsafe"

// sliceStart returns the address of b's first byte.
func sliceStart(b []byte) unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(b))
}
