package sfs

import (
	"fmt"
	"io"

	"github.com/dargueta/sfs/block"
	"github.com/hashicorp/go-multierror"
)

// FileSystem is a mounted Simple File System: a single, flat directory of
// up to MaxInodes-2 files layered over a fixed-geometry block device
// (spec.md §2). Inode 0 is reserved and inode RootDirectoryInodeIndex is
// held by the root directory, so one of the MaxInodes-1 usable directory
// slots can never be given an inode. The zero value is not usable;
// construct one with Mount.
//
// Diagnostics, if set, receives informational messages about allocation and
// I/O decisions as they happen. It is never required and is nil-safe,
// mirroring the original implementation's diagnostic fprintf calls to
// stderr (spec.md §9).
type FileSystem struct {
	Diagnostics io.Writer

	device    *block.Device
	super     Superblock
	inodes    *inodeTable
	dirs      *directoryTable
	openFiles *openFileTable
	inodeMap  *bitAllocator
	dataMap   *bitAllocator

	// nextFilenameCursor drives GetNextFilename's stateful, process-wide
	// enumeration (spec.md §4.4, §6): it starts at 1 (index 0 is the
	// reserved root sentinel), advances on every call, and wraps back to 1
	// once it runs past the end of the directory table. Every Mount returns
	// a new FileSystem whose cursor starts at 1.
	nextFilenameCursor int
}

func (fs *FileSystem) logf(format string, args ...interface{}) {
	if fs.Diagnostics == nil {
		return
	}
	fmt.Fprintf(fs.Diagnostics, format, args...)
}

// Mount attaches fs to dev. If fresh is true, every on-disk region is
// initialized from scratch (equivalent to formatting a blank image); a
// non-fresh Mount only finds usable state on a device that was mounted fresh
// before (spec.md §4.1). A non-fresh Mount does not check the on-disk
// superblock, so it also succeeds on a device that was never formatted.
func Mount(dev *block.Device, fresh bool) (*FileSystem, error) {
	fs := &FileSystem{device: dev, openFiles: newOpenFileTable(), nextFilenameCursor: 1}

	if fresh {
		if err := fs.formatFresh(); err != nil {
			return nil, err
		}
		return fs, nil
	}

	inodes, err := readInodeTable(dev)
	if err != nil {
		return nil, err
	}
	dirs, err := readDirectoryTable(dev)
	if err != nil {
		return nil, err
	}

	inodeMapBytes := make([]byte, InodeBitmapBlockCount*BlockSize)
	if err := dev.ReadBlock(block.ID(InodeBitmapStartBlock), InodeBitmapBlockCount, inodeMapBytes); err != nil {
		return nil, err
	}
	dataMapBytes := make([]byte, DataBitmapBlockCount*BlockSize)
	if err := dev.ReadBlock(block.ID(DataBitmapStartBlock), DataBitmapBlockCount, dataMapBytes); err != nil {
		return nil, err
	}

	fs.super = newSuperblock()
	fs.inodes = inodes
	fs.dirs = dirs
	fs.inodeMap = loadBitAllocator(MaxInodes, inodeMapBytes)
	fs.dataMap = loadBitAllocator(TotalBlocks, dataMapBytes)
	return fs, nil
}

// formatFresh initializes every on-disk region of a blank device: the
// superblock, empty inode table, empty directory table (with its root
// sentinel), and both allocation bitmaps with their reserved ranges marked
// used. Errors from the individual region flushes are accumulated rather
// than returned on the first failure, so a caller sees every region that
// failed to write instead of only the first (spec.md §9: formatting touches
// several independent regions and a partial failure should be diagnosable
// as a whole).
func (fs *FileSystem) formatFresh() error {
	fs.super = newSuperblock()
	fs.inodes = newInodeTable()
	fs.dirs = newDirectoryTable()
	fs.inodeMap = newBitAllocator(MaxInodes)
	fs.dataMap = newBitAllocator(TotalBlocks)

	// Index 0 is reserved in both the inode and directory tables.
	fs.inodeMap.set(0, true)

	// The root directory occupies inode RootDirectoryInodeIndex.
	root := fs.inodes.get(RootDirectoryInodeIndex)
	root.Mode = 1
	root.LinkCount = 1
	fs.inodeMap.set(RootDirectoryInodeIndex, true)

	for i := 0; i < FirstDataBlock; i++ {
		fs.dataMap.set(i, true)
	}

	var result *multierror.Error
	if err := writeSuperblock(fs.device, fs.super); err != nil {
		result = multierror.Append(result, err)
	}
	if err := fs.flushInodes(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := fs.flushDirectory(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := fs.flushBitmaps(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func (fs *FileSystem) flushInodes() error {
	return writeInodeTable(fs.device, fs.inodes)
}

func (fs *FileSystem) flushDirectory() error {
	return writeDirectoryTable(fs.device, fs.dirs)
}

func (fs *FileSystem) flushBitmaps() error {
	var result *multierror.Error
	inodeBuf := make([]byte, InodeBitmapBlockCount*BlockSize)
	copy(inodeBuf, fs.inodeMap.bytes())
	if err := fs.device.WriteBlock(block.ID(InodeBitmapStartBlock), inodeBuf); err != nil {
		result = multierror.Append(result, err)
	}

	dataBuf := make([]byte, DataBitmapBlockCount*BlockSize)
	copy(dataBuf, fs.dataMap.bytes())
	if err := fs.device.WriteBlock(block.ID(DataBitmapStartBlock), dataBuf); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func (fs *FileSystem) allocateDataBlock() (int32, error) {
	idx := fs.dataMap.findFree()
	if idx < 0 {
		return 0, NewDriverError(ENOSPC)
	}
	fs.dataMap.set(idx, true)
	if err := fs.flushBitmaps(); err != nil {
		return 0, err
	}
	return int32(idx), nil
}

// Open returns a handle for name, creating an empty file in the root
// directory if it doesn't already exist. Opening a file that's already open
// is idempotent: it returns the same handle rather than failing (spec.md
// §4.4 case 1, original `sfs_fopen` case 3, §8 scenario 4). It returns -1
// on failure. The returned handle is the same index used internally by the
// directory and open-file tables (spec.md §9), so closing and reopening a
// file yields the same handle for as long as the file exists.
func (fs *FileSystem) Open(name string) int {
	if len(name) == 0 || len(name) > MaxNameLength {
		fs.logf("open: invalid filename %q\n", name)
		return -1
	}

	if existing := fs.dirs.findByName(name); existing >= 0 {
		if fs.openFiles.isOpen(existing) {
			return existing
		}
		fs.openFiles.open(existing, int(fs.dirs.get(existing).InodePointer))
		return existing
	}

	slot := fs.dirs.findFreeSlot()
	if slot < 0 {
		fs.logf("open: directory is full\n")
		return -1
	}
	inodeIdx := fs.inodes.findFreeSlot()
	if inodeIdx < 0 {
		fs.logf("open: inode table is full\n")
		return -1
	}

	*fs.dirs.get(slot) = DirectoryEntry{Name: name, InodePointer: int32(inodeIdx)}
	*fs.inodes.get(inodeIdx) = Inode{Mode: 1, LinkCount: 1}
	fs.inodeMap.set(inodeIdx, true)

	if err := fs.flushDirectory(); err != nil {
		fs.logf("open: failed to flush directory table: %v\n", err)
		return -1
	}
	if err := fs.flushInodes(); err != nil {
		fs.logf("open: failed to flush inode table: %v\n", err)
		return -1
	}

	fs.openFiles.open(slot, inodeIdx)
	return slot
}

// Close releases handle so it can be reused by a later Open. It returns 0 on
// success, -1 if handle isn't currently open.
func (fs *FileSystem) Close(handle int) int {
	if !fs.openFiles.isOpen(handle) {
		fs.logf("close: handle %d is not open\n", handle)
		return -1
	}
	fs.openFiles.close(handle)
	return 0
}

// Read copies up to length bytes from handle's current read cursor into
// buf, advances the cursor by the number of bytes actually read, and
// returns that count, or -1 if handle isn't open (spec.md §6).
func (fs *FileSystem) Read(handle int, buf []byte, length int) int {
	if !fs.openFiles.isOpen(handle) {
		fs.logf("read: handle %d is not open\n", handle)
		return -1
	}
	entry := fs.openFiles.get(handle)
	ino := fs.inodes.get(entry.InodeIndex)

	if length > len(buf) {
		length = len(buf)
	}
	n, err := fs.readAt(ino, entry.ReadCursor, buf[:length])
	if err != nil {
		fs.logf("read: handle %d: %v\n", handle, err)
		return -1
	}
	entry.ReadCursor += n
	return n
}

// Write writes length bytes from buf to handle's current write cursor,
// growing the file and allocating new blocks as needed, advances the
// cursor, and returns the number of bytes written, or -1 on failure
// (spec.md §6).
func (fs *FileSystem) Write(handle int, buf []byte, length int) int {
	if !fs.openFiles.isOpen(handle) {
		fs.logf("write: handle %d is not open\n", handle)
		return -1
	}
	entry := fs.openFiles.get(handle)
	ino := fs.inodes.get(entry.InodeIndex)

	if length > len(buf) {
		length = len(buf)
	}
	n, err := fs.writeAt(ino, entry.WriteCursor, buf[:length])
	if err != nil {
		fs.logf("write: handle %d: %v\n", handle, err)
		return -1
	}
	entry.WriteCursor += n

	if err := fs.flushInodes(); err != nil {
		fs.logf("write: failed to flush inode table: %v\n", err)
		return -1
	}
	return n
}

// Seek repositions handle's read AND write cursors to loc, per spec.md §6
// (the original exposes a single cursor concept to callers even though
// reads and writes are tracked independently internally). It returns 1 on
// success, 0 if handle isn't open. Negative or out-of-file offsets are not
// validated here; callers are expected to supply valid offsets (spec.md
// §4.4, mirroring the original `sfs_fseek`).
func (fs *FileSystem) Seek(handle int, loc int) int {
	if !fs.openFiles.isOpen(handle) {
		fs.logf("seek: handle %d is not open\n", handle)
		return 0
	}
	entry := fs.openFiles.get(handle)
	entry.ReadCursor = loc
	entry.WriteCursor = loc
	return 1
}

// GetFileSize returns the size in bytes of the named file, or 0 if it
// doesn't exist (spec.md §4.4, §6, §7).
func (fs *FileSystem) GetFileSize(name string) int {
	idx := fs.dirs.findByName(name)
	if idx < 0 {
		return 0
	}
	ino := fs.inodes.get(int(fs.dirs.get(idx).InodePointer))
	return int(ino.Size)
}

// Remove deletes the named file, scrubbing its data blocks and indirect
// block with zeros before freeing them, then freeing its inode. Removing a
// file that's currently open is allowed: the open-file slot at the same
// index is simply cleared along with it (spec.md §4.8 step 3; the original
// `sfs_remove` has no open-file guard either). Returns 0 on success, -1 on
// failure.
func (fs *FileSystem) Remove(name string) int {
	idx := fs.dirs.findByName(name)
	if idx < 0 {
		fs.logf("remove: %q does not exist\n", name)
		return -1
	}

	entry := fs.dirs.get(idx)
	ino := fs.inodes.get(int(entry.InodePointer))

	var result *multierror.Error
	zero := make([]byte, BlockSize)
	for _, ptr := range ino.Direct {
		if ptr != 0 {
			if err := fs.device.WriteBlock(block.ID(ptr), zero); err != nil {
				result = multierror.Append(result, err)
			}
			fs.dataMap.set(int(ptr), false)
		}
	}
	if ino.Indirect != 0 {
		ib, err := readIndirectBlock(fs.device, block.ID(ino.Indirect))
		if err != nil {
			result = multierror.Append(result, err)
		} else {
			for _, ptr := range ib.Pointers {
				if ptr != 0 {
					if err := fs.device.WriteBlock(block.ID(ptr), zero); err != nil {
						result = multierror.Append(result, err)
					}
					fs.dataMap.set(int(ptr), false)
				}
			}
		}
		if err := fs.device.WriteBlock(block.ID(ino.Indirect), zero); err != nil {
			result = multierror.Append(result, err)
		}
		fs.dataMap.set(int(ino.Indirect), false)
	}

	fs.inodeMap.set(int(entry.InodePointer), false)
	*ino = Inode{}
	*entry = DirectoryEntry{}
	fs.openFiles.close(idx)

	if err := fs.flushInodes(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := fs.flushDirectory(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := fs.flushBitmaps(); err != nil {
		result = multierror.Append(result, err)
	}

	if err := result.ErrorOrNil(); err != nil {
		fs.logf("remove: %q: %v\n", name, err)
		return -1
	}
	return 0
}

// GetNextFilename writes the next filename in directory-table order into
// *out and returns 1, or returns 0 once the cursor has run past the last
// entry. The cursor lives on FileSystem, not the caller: it starts at 1
// (index 0 is the reserved root sentinel), advances with every call, and
// wraps back to 1 whenever it runs off the end, so the enumeration repeats
// from the beginning on the next call (spec.md §4.4, §6, §8 scenario 5).
// Each Mount returns a new FileSystem whose cursor starts at 1.
func (fs *FileSystem) GetNextFilename(out *string) int {
	for fs.nextFilenameCursor < MaxInodes {
		entry := fs.dirs.get(fs.nextFilenameCursor)
		fs.nextFilenameCursor++
		if !entry.isFree() {
			*out = entry.Name
			return 1
		}
	}
	fs.nextFilenameCursor = 1
	return 0
}

// Stat summarizes the mounted filesystem's geometry and current usage. It
// is an addition over the original API surface (spec.md §9 allows
// additive, read-only inspection methods).
type Stat struct {
	BlockSize   int
	TotalBlocks int
	MaxInodes   int
	InodesInUse int
	BlocksInUse int
}

func (fs *FileSystem) Stat() Stat {
	s := Stat{BlockSize: BlockSize, TotalBlocks: TotalBlocks, MaxInodes: MaxInodes}
	for i := 0; i < MaxInodes; i++ {
		if fs.inodeMap.get(i) {
			s.InodesInUse++
		}
	}
	for i := 0; i < TotalBlocks; i++ {
		if fs.dataMap.get(i) {
			s.BlocksInUse++
		}
	}
	return s
}
