// Package block implements the fixed-geometry block device contract that the
// Simple File System is layered on: reads and writes of whole, contiguous
// blocks against a backing stream.
package block

import (
	"fmt"
	"io"
	"os"

	"github.com/xaionaro-go/bytesextra"
)

// ID identifies a block by its index from the start of the device.
type ID uint

// Device is a fixed-geometry block device backed by an io.ReadWriteSeeker.
// The exposed fields are informational; they must not be changed directly.
type Device struct {
	BlockSize   uint
	TotalBlocks uint
	stream      io.ReadWriteSeeker
}

// New wraps an existing stream as a block device of the given geometry.
func New(stream io.ReadWriteSeeker, totalBlocks, blockSize uint) *Device {
	return &Device{BlockSize: blockSize, TotalBlocks: totalBlocks, stream: stream}
}

// NewMemory creates a block device backed entirely by memory, sized exactly
// totalBlocks*blockSize. Useful for tests and for mounting a filesystem that
// doesn't need to persist past process exit.
func NewMemory(totalBlocks, blockSize uint) *Device {
	buf := make([]byte, totalBlocks*blockSize)
	return New(bytesextra.NewReadWriteSeeker(buf), totalBlocks, blockSize)
}

// NewFile creates (or truncates, if fresh is true) a file of the given size
// and wraps it as a block device. When fresh is false the file must already
// exist and be at least totalBlocks*blockSize bytes long.
func NewFile(path string, totalBlocks, blockSize uint, fresh bool) (*Device, error) {
	flags := os.O_RDWR
	if fresh {
		flags |= os.O_CREATE | os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}

	size := int64(totalBlocks) * int64(blockSize)
	if fresh {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, err
		}
	}

	return New(f, totalBlocks, blockSize), nil
}

func (d *Device) blockOffset(index ID) (int64, error) {
	if uint(index) >= d.TotalBlocks {
		return -1, fmt.Errorf("invalid block index %d: not in range [0, %d)", index, d.TotalBlocks)
	}
	return int64(index) * int64(d.BlockSize), nil
}

func (d *Device) checkBounds(index ID, byteLength uint) error {
	if uint(index) >= d.TotalBlocks {
		return fmt.Errorf("invalid block index %d: not in range [0, %d)", index, d.TotalBlocks)
	}
	if byteLength%d.BlockSize != 0 {
		return fmt.Errorf(
			"data must be a whole multiple of the block size (%d B), got %d",
			d.BlockSize, byteLength,
		)
	}
	count := byteLength / d.BlockSize
	if uint(index)+count > d.TotalBlocks {
		return fmt.Errorf("block %d plus %d blocks of data extends past the end of the device", index, count)
	}
	return nil
}

func (d *Device) seekToBlock(index ID) error {
	offset, err := d.blockOffset(index)
	if err != nil {
		return err
	}
	_, err = d.stream.Seek(offset, io.SeekStart)
	return err
}

// ReadBlock reads count contiguous blocks starting at index into out. out
// must be exactly count*BlockSize bytes long.
func (d *Device) ReadBlock(index ID, count uint, out []byte) error {
	if err := d.checkBounds(index, count*d.BlockSize); err != nil {
		return err
	}
	if uint(len(out)) != count*d.BlockSize {
		return fmt.Errorf("buffer is %d bytes, expected %d", len(out), count*d.BlockSize)
	}
	if err := d.seekToBlock(index); err != nil {
		return err
	}
	n, err := io.ReadFull(d.stream, out)
	if err != nil {
		return err
	}
	if uint(n) != count*d.BlockSize {
		return fmt.Errorf("short read: got %d of %d bytes", n, count*d.BlockSize)
	}
	return nil
}

// WriteBlock writes data to the device starting at index. data's length must
// be a whole multiple of BlockSize.
func (d *Device) WriteBlock(index ID, data []byte) error {
	if err := d.checkBounds(index, uint(len(data))); err != nil {
		return err
	}
	if err := d.seekToBlock(index); err != nil {
		return err
	}
	_, err := d.stream.Write(data)
	return err
}
