package sfs

// Fixed geometry. An implementation must honor these exactly; none of them
// are configurable (spec.md §3).
const (
	BlockSize     = 1024 // bytes per block
	TotalBlocks   = 1024 // blocks in the whole image
	MaxInodes     = 128  // inode table capacity
	MaxNameLength = 32   // max filename length, in bytes

	DirectPointerCount = 12                     // direct block pointers per inode
	pointerSize        = 4                      // bytes per stored block pointer
	IndirectCapacity   = BlockSize / pointerSize // pointers per indirect block
	MaxFileBlocks      = DirectPointerCount + IndirectCapacity
	MaxFileSize        = MaxFileBlocks * BlockSize
)

// On-disk region layout, by block index (spec.md §3).
const (
	SuperblockBlock = 0

	InodeTableStartBlock = 1
	InodeTableBlockCount = 9

	InodeBitmapStartBlock = 10
	InodeBitmapBlockCount = 4

	DataBitmapStartBlock = 14
	DataBitmapBlockCount = 4

	DirectoryTableStartBlock = 18
	DirectoryTableBlockCount = 5

	// FirstDataBlock is the first block index available for file data. Every
	// block below this is part of the fixed metadata regions and is marked
	// permanently occupied in the data bitmap.
	FirstDataBlock = 23

	RootDirectoryInodeIndex = 1
)

const superblockMagic = 0x53465331 // "SFS1"

// rootSentinelName is the reserved name stored in directory slot 0. It is
// never returned by enumeration and never matches a real lookup.
const rootSentinelName = "root"
