package storage

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Device is the storage collaborator: a synchronous block read/write
// primitive. A nil error means the operation completed and the measured
// latency is valid; any error excludes the sample from the results.
type Device interface {
	ReadBlocks(buf []byte, lba uint64, count int) error
	WriteBlocks(buf []byte, lba uint64, count int) error
	Blocks() uint64 // addressable block count
	BlockSize() int // bytes per block
	Close() error
}

// BufferPool hands out fixed-size transfer buffers, one per in-flight
// request. Buffers are page-aligned when the platform allows it, which
// O_DIRECT transfers require.
type BufferPool struct {
	size int
	pool sync.Pool
}

func NewBufferPool(size int) *BufferPool {
	p := &BufferPool{size: size}
	p.pool.New = func() interface{} {
		b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
		if err != nil {
			// Buffered I/O has no alignment requirement.
			return make([]byte, size)
		}
		return b
	}
	return p
}

func (p *BufferPool) Get() []byte {
	return p.pool.Get().([]byte)
}

func (p *BufferPool) Put(b []byte) {
	if len(b) == p.size {
		p.pool.Put(b)
	}
}

// MemDevice is an in-memory Device used by tests, dry runs, and the "mem"
// engine type. Reads and writes copy through a backing slice under a
// read-write lock; overlapping writes are last-writer-wins, which is fine
// for a benchmark target.
type MemDevice struct {
	mu        sync.RWMutex
	data      []byte
	blockSize int
}

func NewMemDevice(blocks uint64, blockSize int) *MemDevice {
	return &MemDevice{
		data:      make([]byte, blocks*uint64(blockSize)),
		blockSize: blockSize,
	}
}

func (d *MemDevice) span(buf []byte, lba uint64, count int) (int64, int, error) {
	n := count * d.blockSize
	if len(buf) < n {
		return 0, 0, fmt.Errorf("buffer too small: %d < %d", len(buf), n)
	}
	off := int64(lba) * int64(d.blockSize)
	if off+int64(n) > int64(len(d.data)) {
		return 0, 0, fmt.Errorf("transfer past end of device: lba=%d count=%d", lba, count)
	}
	return off, n, nil
}

func (d *MemDevice) ReadBlocks(buf []byte, lba uint64, count int) error {
	off, n, err := d.span(buf, lba, count)
	if err != nil {
		return err
	}
	d.mu.RLock()
	copy(buf[:n], d.data[off:])
	d.mu.RUnlock()
	return nil
}

func (d *MemDevice) WriteBlocks(buf []byte, lba uint64, count int) error {
	off, n, err := d.span(buf, lba, count)
	if err != nil {
		return err
	}
	d.mu.Lock()
	copy(d.data[off:], buf[:n])
	d.mu.Unlock()
	return nil
}

func (d *MemDevice) Blocks() uint64 {
	return uint64(len(d.data) / d.blockSize)
}

func (d *MemDevice) BlockSize() int { return d.blockSize }

func (d *MemDevice) Close() error { return nil }
