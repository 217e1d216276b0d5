//go:build !linux

package alloc

func threadID() (uint64, error) {
	return 0, ErrNoThreadID
}
