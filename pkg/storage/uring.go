//go:build linux

package storage

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/iceber/iouring-go"
)

// UringDevice serves block transfers through io_uring. Submission is
// goroutine-safe, so one ring is shared by every in-flight request; each
// call blocks on its own completion channel, keeping the Device contract
// synchronous.
type UringDevice struct {
	iour      *iouring.IOURing
	f         *os.File
	blocks    uint64
	blockSize int
}

func OpenUring(path string, blockSize int, totalBlocks uint64, entries uint, direct, writable bool) (*UringDevice, error) {
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

	iour, err := iouring.New(entries)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to setup io_uring: %w", err)
	}

	return &UringDevice{iour: iour, f: f, blocks: totalBlocks, blockSize: blockSize}, nil
}

func (d *UringDevice) submit(req iouring.PrepRequest, n int) error {
	ch := make(chan iouring.Result, 1)
	if _, err := d.iour.SubmitRequest(req, ch); err != nil {
		return err
	}
	res := <-ch
	if err := res.Err(); err != nil {
		return err
	}
	m, _ := res.ReturnInt()
	if m != n {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func (d *UringDevice) ReadBlocks(buf []byte, lba uint64, count int) error {
	n := count * d.blockSize
	return d.submit(iouring.Pread(int(d.f.Fd()), buf[:n], uint64(lba)*uint64(d.blockSize)), n)
}

func (d *UringDevice) WriteBlocks(buf []byte, lba uint64, count int) error {
	n := count * d.blockSize
	return d.submit(iouring.Pwrite(int(d.f.Fd()), buf[:n], uint64(lba)*uint64(d.blockSize)), n)
}

func (d *UringDevice) Blocks() uint64 { return d.blocks }

func (d *UringDevice) BlockSize() int { return d.blockSize }

func (d *UringDevice) Close() error {
	err := d.iour.Close()
	if cerr := d.f.Close(); err == nil {
		err = cerr
	}
	return err
}
