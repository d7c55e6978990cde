package sfs

import (
	"github.com/dargueta/sfs/block"
	"github.com/noxer/bytewriter"
)

// writePartialBlock writes data (which must fit within one block) into the
// physical block identified by target, starting at offsetInBlock.
//
// The two branches are deliberately asymmetric (spec.md §4.6, §9): a write
// starting at offset 0 assembles a whole fresh block in memory and discards
// whatever was there before, while a write at a nonzero offset must read the
// existing block first so bytes outside [offsetInBlock, offsetInBlock+len)
// survive. This mirrors the original implementation's behavior exactly
// rather than "fixing" it into a single uniform read-modify-write. A
// zero-offset write that's shorter than a full block therefore leaves zeros
// in the rest of that block, including over bytes written there earlier
// (for example after a Seek back to the start of a written block); the
// file's recorded size is not reduced.
func writePartialBlock(dev *block.Device, target block.ID, offsetInBlock int, data []byte) error {
	buf := make([]byte, BlockSize)

	if offsetInBlock == 0 {
		writer := bytewriter.New(buf)
		if _, err := writer.Write(data); err != nil {
			return err
		}
	} else {
		if err := dev.ReadBlock(target, 1, buf); err != nil {
			return err
		}
		copy(buf[offsetInBlock:], data)
	}

	return dev.WriteBlock(target, buf)
}

// readPartialBlock reads len(out) bytes from the physical block target,
// starting at offsetInBlock, into out.
func readPartialBlock(dev *block.Device, target block.ID, offsetInBlock int, out []byte) error {
	buf := make([]byte, BlockSize)
	if err := dev.ReadBlock(target, 1, buf); err != nil {
		return err
	}
	copy(out, buf[offsetInBlock:offsetInBlock+len(out)])
	return nil
}

// readAt reads up to len(buf) bytes from the file's inode starting at
// offset, clamped to the file's recorded size. It returns the number of
// bytes actually read.
func (fs *FileSystem) readAt(ino *Inode, offset int, buf []byte) (int, error) {
	remaining := int(ino.Size) - offset
	if remaining <= 0 {
		return 0, nil
	}
	toRead := len(buf)
	if toRead > remaining {
		toRead = remaining
	}

	read := 0
	for read < toRead {
		blockIndex := (offset + read) / BlockSize
		offsetInBlock := (offset + read) % BlockSize

		resolution, err := fs.resolveBlock(ino, blockIndex, false)
		if err != nil {
			return read, err
		}

		chunk := BlockSize - offsetInBlock
		if chunk > toRead-read {
			chunk = toRead - read
		}

		if err := readPartialBlock(fs.device, resolution.PhysicalBlock, offsetInBlock, buf[read:read+chunk]); err != nil {
			return read, err
		}
		read += chunk
	}

	return read, nil
}

// writeAt writes all of data into the file's inode starting at offset,
// allocating new direct/indirect blocks as needed and growing ino.Size when
// the write extends past the current end of file. It flushes every block
// and indirect pointer it touches as it goes (spec.md §4.7: "a crash between
// writes must never leave the file looking larger than its allocated
// blocks").
func (fs *FileSystem) writeAt(ino *Inode, offset int, data []byte) (int, error) {
	if offset+len(data) > MaxFileSize {
		return 0, NewDriverError(EFBIG)
	}

	written := 0
	for written < len(data) {
		blockIndex := (offset + written) / BlockSize
		offsetInBlock := (offset + written) % BlockSize

		resolution, err := fs.resolveBlock(ino, blockIndex, true)
		if err != nil {
			return written, err
		}

		chunk := BlockSize - offsetInBlock
		if chunk > len(data)-written {
			chunk = len(data) - written
		}

		if err := writePartialBlock(fs.device, resolution.PhysicalBlock, offsetInBlock, data[written:written+chunk]); err != nil {
			return written, err
		}
		written += chunk

		if newSize := offset + written; newSize > int(ino.Size) {
			ino.Size = int32(newSize)
		}
	}

	return written, nil
}
