package sfs

import (
	"bytes"
	"encoding/binary"

	"github.com/dargueta/sfs/block"
)

// blockResolution is the result of mapping a byte offset within a file to a
// physical location on the device.
type blockResolution struct {
	PhysicalBlock block.ID
	OffsetInBlock int
}

// indirectBlock is the in-memory form of a single indirect block: a flat
// array of data-block pointers, zero meaning unallocated.
type indirectBlock struct {
	Pointers [IndirectCapacity]int32
}

func readIndirectBlock(dev *block.Device, id block.ID) (*indirectBlock, error) {
	buf := make([]byte, BlockSize)
	if err := dev.ReadBlock(id, 1, buf); err != nil {
		return nil, err
	}
	ib := &indirectBlock{}
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &ib.Pointers); err != nil {
		return nil, err
	}
	return ib, nil
}

func writeIndirectBlock(dev *block.Device, id block.ID, ib *indirectBlock) error {
	var scratch bytes.Buffer
	if err := binary.Write(&scratch, binary.LittleEndian, ib.Pointers); err != nil {
		return err
	}
	buf := make([]byte, BlockSize)
	copy(buf, scratch.Bytes())
	return dev.WriteBlock(id, buf)
}

// resolveBlock maps a logical block number within a file to its physical
// block, allocating as it goes if allocate is true. blockIndex is the logical
// block number (offset / BlockSize) within the file: values in
// [0, DirectPointerCount) live in the inode's direct pointers; values in
// [DirectPointerCount, MaxFileBlocks) live in the indirect block (spec.md
// §4.5, §9). The returned OffsetInBlock is always 0; callers compute the
// offset within the block themselves.
//
// The indirect-region bounds check is strictly >=, not >: the original
// implementation this is ported from used a plain > here, which let a write
// one slot past the last indirect slot read one pointer past the end of the
// block. This version closes that off (documented in DESIGN.md).
func (fs *FileSystem) resolveBlock(ino *Inode, blockIndex int, allocate bool) (blockResolution, error) {
	if blockIndex < 0 || blockIndex >= MaxFileBlocks {
		return blockResolution{}, NewDriverError(EFBIG)
	}

	if blockIndex < DirectPointerCount {
		ptr := ino.Direct[blockIndex]
		if ptr == 0 {
			if !allocate {
				return blockResolution{}, NewDriverError(EUCLEAN)
			}
			newPtr, err := fs.allocateDataBlock()
			if err != nil {
				return blockResolution{}, err
			}
			ino.Direct[blockIndex] = newPtr
			ptr = newPtr
		}
		return blockResolution{PhysicalBlock: block.ID(ptr)}, nil
	}

	indirectIndex := blockIndex - DirectPointerCount
	if indirectIndex >= IndirectCapacity {
		return blockResolution{}, NewDriverError(EFBIG)
	}

	if ino.Indirect == 0 {
		if !allocate {
			return blockResolution{}, NewDriverError(EUCLEAN)
		}
		newPtr, err := fs.allocateDataBlock()
		if err != nil {
			return blockResolution{}, err
		}
		ino.Indirect = newPtr
		if err := writeIndirectBlock(fs.device, block.ID(newPtr), &indirectBlock{}); err != nil {
			return blockResolution{}, err
		}
	}

	ib, err := readIndirectBlock(fs.device, block.ID(ino.Indirect))
	if err != nil {
		return blockResolution{}, err
	}

	ptr := ib.Pointers[indirectIndex]
	if ptr == 0 {
		if !allocate {
			return blockResolution{}, NewDriverError(EUCLEAN)
		}
		newPtr, err := fs.allocateDataBlock()
		if err != nil {
			return blockResolution{}, err
		}
		ib.Pointers[indirectIndex] = newPtr
		if err := writeIndirectBlock(fs.device, block.ID(ino.Indirect), ib); err != nil {
			return blockResolution{}, err
		}
		ptr = newPtr
	}

	return blockResolution{PhysicalBlock: block.ID(ptr)}, nil
}
