package sfs

import (
	"github.com/gocarina/gocsv"
)

// DirectoryEntryReport is one row of a directory listing report: a
// filename, its inode index, and the file's size in bytes.
type DirectoryEntryReport struct {
	Name      string `csv:"name"`
	Inode     int    `csv:"inode"`
	SizeBytes int    `csv:"size_bytes"`
}

// DirectoryReportCSV renders the current directory listing as CSV, one row
// per file (the reserved root sentinel is never included).
func (fs *FileSystem) DirectoryReportCSV() (string, error) {
	var rows []DirectoryEntryReport
	for i := 1; i < MaxInodes; i++ {
		entry := fs.dirs.get(i)
		if entry.isFree() {
			continue
		}
		ino := fs.inodes.get(int(entry.InodePointer))
		rows = append(rows, DirectoryEntryReport{
			Name:      entry.Name,
			Inode:     int(entry.InodePointer),
			SizeBytes: int(ino.Size),
		})
	}
	return gocsv.MarshalString(&rows)
}

// AllocationReportRow is one row of a block-allocation report: a block
// index and whether it's currently claimed by the data bitmap.
type AllocationReportRow struct {
	Block int  `csv:"block"`
	InUse bool `csv:"in_use"`
}

// AllocationReportCSV renders the current data-block bitmap as CSV, one row
// per block in the data region (spec.md §4.2).
func (fs *FileSystem) AllocationReportCSV() (string, error) {
	rows := make([]AllocationReportRow, 0, TotalBlocks-FirstDataBlock)
	for i := FirstDataBlock; i < TotalBlocks; i++ {
		rows = append(rows, AllocationReportRow{Block: i, InUse: fs.dataMap.get(i)})
	}
	return gocsv.MarshalString(&rows)
}
