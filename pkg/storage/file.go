package storage

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// FileDevice serves block transfers from a file or raw device with
// synchronous pread/pwrite.
type FileDevice struct {
	f         *os.File
	blocks    uint64
	blockSize int
}

// OpenFile opens the target. With totalBlocks == 0 the addressable range
// is derived from the target's size. writable must be set when the
// workload includes writes; direct bypasses the page cache.
func OpenFile(path string, blockSize int, totalBlocks uint64, direct, writable bool) (*FileDevice, error) {
	flags := os.O_RDONLY
	if writable {
		flags = os.O_RDWR
	}
	if direct {
		flags |= syscall.O_DIRECT
	}

	f, err := os.OpenFile(path, flags, 0666)
	if err != nil {
		return nil, err
	}

	if totalBlocks == 0 {
		size, err := f.Seek(0, io.SeekEnd)
		if err != nil {
			f.Close()
			return nil, err
		}
		totalBlocks = uint64(size / int64(blockSize))
	}
	if totalBlocks == 0 {
		f.Close()
		return nil, fmt.Errorf("target %s too small for block size %d", path, blockSize)
	}

	return &FileDevice{f: f, blocks: totalBlocks, blockSize: blockSize}, nil
}

func (d *FileDevice) ReadBlocks(buf []byte, lba uint64, count int) error {
	n := count * d.blockSize
	m, err := unix.Pread(int(d.f.Fd()), buf[:n], int64(lba)*int64(d.blockSize))
	if err != nil {
		return err
	}
	if m != n {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func (d *FileDevice) WriteBlocks(buf []byte, lba uint64, count int) error {
	n := count * d.blockSize
	m, err := unix.Pwrite(int(d.f.Fd()), buf[:n], int64(lba)*int64(d.blockSize))
	if err != nil {
		return err
	}
	if m != n {
		return io.ErrShortWrite
	}
	return nil
}

func (d *FileDevice) Blocks() uint64 { return d.blocks }

func (d *FileDevice) BlockSize() int { return d.blockSize }

func (d *FileDevice) Close() error { return d.f.Close() }
