package sfs

import (
	"bytes"
	"encoding/binary"

	"github.com/dargueta/sfs/block"
)

// rawDirectoryEntry is the fixed-width on-disk encoding of one directory
// entry (spec.md §3): a filename, up to MaxNameLength bytes, plus an inode
// index. The filename field is zero-padded; an entry is free iff its
// filename is empty.
type rawDirectoryEntry struct {
	Name         [MaxNameLength]byte
	InodePointer int32
}

// DirectoryEntry is the in-memory form of a directory entry.
type DirectoryEntry struct {
	Name         string
	InodePointer int32
}

func (e DirectoryEntry) isFree() bool {
	return e.Name == ""
}

func (e DirectoryEntry) raw() rawDirectoryEntry {
	var r rawDirectoryEntry
	copy(r.Name[:], e.Name)
	r.InodePointer = e.InodePointer
	return r
}

func directoryEntryFromRaw(r rawDirectoryEntry) DirectoryEntry {
	// Name is a fixed byte array; trim the zero padding.
	n := bytes.IndexByte(r.Name[:], 0)
	var name string
	if n < 0 {
		name = string(r.Name[:])
	} else {
		name = string(r.Name[:n])
	}
	return DirectoryEntry{Name: name, InodePointer: r.InodePointer}
}

// directoryTable is the fixed array of (filename, inode-index) entries, flat
// and rooted. Slot 0 is reserved for the root sentinel, whose inode pointer
// is -1 and which is never returned by enumeration.
type directoryTable struct {
	entries [MaxInodes]DirectoryEntry
}

func newDirectoryTable() *directoryTable {
	t := &directoryTable{}
	t.entries[0] = DirectoryEntry{Name: rootSentinelName, InodePointer: -1}
	return t
}

// findFreeSlot scans from index 0 for the first entry with an empty
// filename, per spec.md §4.3.
func (t *directoryTable) findFreeSlot() int {
	for i := 0; i < MaxInodes; i++ {
		if t.entries[i].isFree() {
			return i
		}
	}
	return -1
}

// findByName performs an exact-match linear scan for name. It returns -1 if
// there is no match; a match at index 0 (the reserved root sentinel) is
// never returned because the scan starts at index 1 (spec.md §9 deviation:
// the original overloads index 0 to mean both "root" and "not found" since
// its search index starts at 0; this implementation uses a distinct
// sentinel).
func (t *directoryTable) findByName(name string) int {
	for i := 1; i < MaxInodes; i++ {
		if t.entries[i].Name == name {
			return i
		}
	}
	return -1
}

func (t *directoryTable) get(index int) *DirectoryEntry {
	return &t.entries[index]
}

func writeDirectoryTable(dev *block.Device, t *directoryTable) error {
	var scratch bytes.Buffer
	for i := range t.entries {
		if err := binary.Write(&scratch, binary.LittleEndian, t.entries[i].raw()); err != nil {
			return err
		}
	}

	buf := make([]byte, DirectoryTableBlockCount*BlockSize)
	copy(buf, scratch.Bytes())
	return dev.WriteBlock(block.ID(DirectoryTableStartBlock), buf)
}

func readDirectoryTable(dev *block.Device) (*directoryTable, error) {
	buf := make([]byte, DirectoryTableBlockCount*BlockSize)
	if err := dev.ReadBlock(block.ID(DirectoryTableStartBlock), DirectoryTableBlockCount, buf); err != nil {
		return nil, err
	}

	t := &directoryTable{}
	reader := bytes.NewReader(buf)
	for i := range t.entries {
		var r rawDirectoryEntry
		if err := binary.Read(reader, binary.LittleEndian, &r); err != nil {
			return nil, err
		}
		t.entries[i] = directoryEntryFromRaw(r)
	}
	return t, nil
}
