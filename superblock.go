package sfs

import (
	"bytes"
	"encoding/binary"

	"github.com/dargueta/sfs/block"
)

// rawSuperblock is the fixed-width on-disk encoding of the superblock
// (spec.md §3): magic number, block size, total filesystem size in bytes,
// inode-table length in inodes, and the root directory's inode index.
type rawSuperblock struct {
	Magic            int32
	BlockSize        int32
	FileSystemSize   int32
	InodeTableLength int32
	RootDirectory    int32
}

// Superblock is the in-memory form of rawSuperblock. It is written once at
// format time and never modified afterward (spec.md §3, §4.1): a non-fresh
// mount does not reread it.
type Superblock struct {
	Magic            int32
	BlockSize        int32
	FileSystemSize   int32
	InodeTableLength int32
	RootDirectory    int32
}

func newSuperblock() Superblock {
	return Superblock{
		Magic:            superblockMagic,
		BlockSize:        BlockSize,
		FileSystemSize:   TotalBlocks * BlockSize,
		InodeTableLength: MaxInodes,
		RootDirectory:    RootDirectoryInodeIndex,
	}
}

func (s Superblock) raw() rawSuperblock {
	return rawSuperblock{
		Magic:            s.Magic,
		BlockSize:        s.BlockSize,
		FileSystemSize:   s.FileSystemSize,
		InodeTableLength: s.InodeTableLength,
		RootDirectory:    s.RootDirectory,
	}
}

func fromRawSuperblock(r rawSuperblock) Superblock {
	return Superblock{
		Magic:            r.Magic,
		BlockSize:        r.BlockSize,
		FileSystemSize:   r.FileSystemSize,
		InodeTableLength: r.InodeTableLength,
		RootDirectory:    r.RootDirectory,
	}
}

// writeSuperblock serializes sb and writes it to block 0.
func writeSuperblock(dev *block.Device, sb Superblock) error {
	buf := make([]byte, BlockSize)
	var scratch bytes.Buffer
	if err := binary.Write(&scratch, binary.LittleEndian, sb.raw()); err != nil {
		return err
	}
	copy(buf, scratch.Bytes())
	return dev.WriteBlock(block.ID(SuperblockBlock), buf)
}

// readSuperblock reads block 0 back off the device. Note that Mount(fresh =
// false) deliberately does not call this (spec.md §4.1); within this module
// only the tests call it, to inspect the on-disk copy directly.
func readSuperblock(dev *block.Device) (Superblock, error) {
	buf := make([]byte, BlockSize)
	if err := dev.ReadBlock(block.ID(SuperblockBlock), 1, buf); err != nil {
		return Superblock{}, err
	}
	var raw rawSuperblock
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &raw); err != nil {
		return Superblock{}, err
	}
	return fromRawSuperblock(raw), nil
}
