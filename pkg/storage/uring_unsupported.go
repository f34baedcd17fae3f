//go:build !linux

package storage

import (
	"fmt"
)

func OpenUring(path string, blockSize int, totalBlocks uint64, entries uint, direct, writable bool) (Device, error) {
	return nil, fmt.Errorf("uring engine is only supported on Linux")
}
