package sfs

import (
	"bytes"
	"encoding/binary"

	"github.com/dargueta/sfs/block"
)

// rawInode is the fixed-width on-disk encoding of one inode record
// (spec.md §3): mode, link count, uid, gid, size, twelve direct pointers,
// one indirect pointer. All fields are packed integers; a pointer value of 0
// means unallocated.
type rawInode struct {
	Mode      int32
	LinkCount int32
	UID       int32
	GID       int32
	Size      int32
	Direct    [DirectPointerCount]int32
	Indirect  int32
}

// Inode is the in-memory form of an inode. Mode 1 means "file", mode 0 means
// "free" (or, for index 0, reserved).
type Inode struct {
	Mode      int32
	LinkCount int32
	UID       int32
	GID       int32
	Size      int32
	Direct    [DirectPointerCount]int32
	Indirect  int32
}

func (ino *Inode) isAllocated() bool {
	return ino.Mode != 0
}

func (ino *Inode) raw() rawInode {
	r := rawInode{
		Mode:      ino.Mode,
		LinkCount: ino.LinkCount,
		UID:       ino.UID,
		GID:       ino.GID,
		Size:      ino.Size,
		Indirect:  ino.Indirect,
	}
	r.Direct = ino.Direct
	return r
}

func inodeFromRaw(r rawInode) Inode {
	ino := Inode{
		Mode:      r.Mode,
		LinkCount: r.LinkCount,
		UID:       r.UID,
		GID:       r.GID,
		Size:      r.Size,
		Indirect:  r.Indirect,
	}
	ino.Direct = r.Direct
	return ino
}

// inodeTable is the fixed array of inode records, mirrored to disk on every
// mutation. Index 0 is reserved; index RootDirectoryInodeIndex (1) is the
// root directory.
type inodeTable struct {
	entries [MaxInodes]Inode
}

func newInodeTable() *inodeTable {
	return &inodeTable{}
}

// findFreeSlot scans from index 1 (0 is reserved) for the first inode whose
// Mode is 0, per spec.md §4.3. Returns -1 if the table is full.
func (t *inodeTable) findFreeSlot() int {
	for i := 1; i < MaxInodes; i++ {
		if t.entries[i].Mode == 0 {
			return i
		}
	}
	return -1
}

func (t *inodeTable) get(index int) *Inode {
	return &t.entries[index]
}

// writeInodeTable serializes the whole table and flushes it to its fixed
// region (blocks 1..9).
func writeInodeTable(dev *block.Device, t *inodeTable) error {
	var scratch bytes.Buffer
	for i := range t.entries {
		if err := binary.Write(&scratch, binary.LittleEndian, t.entries[i].raw()); err != nil {
			return err
		}
	}

	buf := make([]byte, InodeTableBlockCount*BlockSize)
	copy(buf, scratch.Bytes())
	return dev.WriteBlock(block.ID(InodeTableStartBlock), buf)
}

// readInodeTable loads the inode table region back from disk.
func readInodeTable(dev *block.Device) (*inodeTable, error) {
	buf := make([]byte, InodeTableBlockCount*BlockSize)
	if err := dev.ReadBlock(block.ID(InodeTableStartBlock), InodeTableBlockCount, buf); err != nil {
		return nil, err
	}

	t := newInodeTable()
	reader := bytes.NewReader(buf)
	for i := range t.entries {
		var r rawInode
		if err := binary.Read(reader, binary.LittleEndian, &r); err != nil {
			return nil, err
		}
		t.entries[i] = inodeFromRaw(r)
	}
	return t, nil
}
