package sfs

// openFileEntry tracks one open file: which inode it refers to, and the
// independent read/write cursors the spec requires (spec.md §4.4). An entry
// is free iff InodeIndex is 0, which can never be a real file's inode since
// index 0 is reserved.
type openFileEntry struct {
	InodeIndex  int
	ReadCursor  int
	WriteCursor int
}

func (e openFileEntry) isFree() bool {
	return e.InodeIndex == 0
}

// openFileTable is the fixed array of open-file entries. Its indices are
// shared 1:1 with directoryTable's indices: opening directory slot i always
// produces handle i (spec.md §9 design note), so this table never performs
// its own independent slot assignment — filesystem.go drives both tables
// from the same index.
type openFileTable struct {
	entries [MaxInodes]openFileEntry
}

func newOpenFileTable() *openFileTable {
	return &openFileTable{}
}

func (t *openFileTable) get(handle int) *openFileEntry {
	return &t.entries[handle]
}

func (t *openFileTable) isOpen(handle int) bool {
	if handle < 0 || handle >= MaxInodes {
		return false
	}
	return !t.entries[handle].isFree()
}

func (t *openFileTable) open(handle int, inodeIndex int) {
	t.entries[handle] = openFileEntry{InodeIndex: inodeIndex}
}

func (t *openFileTable) close(handle int) {
	t.entries[handle] = openFileEntry{}
}
