package sfs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/sfs/block"
)

func TestMountFreshInitializesRootSentinel(t *testing.T) {
	fs := newTestFileSystem(t)
	assert.Equal(t, rootSentinelName, fs.dirs.get(0).Name)
}

func TestOpenCreatesNewFile(t *testing.T) {
	fs := newTestFileSystem(t)
	handle := fs.Open("hello.txt")
	require.GreaterOrEqual(t, handle, 0)
	assert.True(t, fs.openFiles.isOpen(handle))
	assert.Equal(t, 0, fs.GetFileSize("hello.txt"))
}

func TestOpenExistingFileReopensSameSlot(t *testing.T) {
	fs := newTestFileSystem(t)
	handle := fs.Open("hello.txt")
	require.Equal(t, 0, fs.Close(handle))

	reopened := fs.Open("hello.txt")
	assert.Equal(t, handle, reopened)
}

func TestOpenAlreadyOpenFileIsIdempotent(t *testing.T) {
	fs := newTestFileSystem(t)
	handle := fs.Open("hello.txt")
	reopened := fs.Open("hello.txt")
	assert.Equal(t, handle, reopened)
}

func TestOpenRejectsNameTooLong(t *testing.T) {
	fs := newTestFileSystem(t)
	longName := ""
	for i := 0; i < MaxNameLength+1; i++ {
		longName += "a"
	}
	assert.Equal(t, -1, fs.Open(longName))
}

func TestWriteReadRoundTripThroughPublicAPI(t *testing.T) {
	fs := newTestFileSystem(t)
	handle := fs.Open("data.bin")
	require.GreaterOrEqual(t, handle, 0)

	payload := []byte("the quick brown fox")
	n := fs.Write(handle, payload, len(payload))
	assert.Equal(t, len(payload), n)
	assert.Equal(t, len(payload), fs.GetFileSize("data.bin"))

	require.Equal(t, 1, fs.Seek(handle, 0))
	out := make([]byte, len(payload))
	n = fs.Read(handle, out, len(out))
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, out)
}

func TestReadWriteOnClosedHandleFails(t *testing.T) {
	fs := newTestFileSystem(t)
	buf := make([]byte, 10)
	assert.Equal(t, -1, fs.Read(99, buf, 10))
	assert.Equal(t, -1, fs.Write(99, buf, 10))
	assert.Equal(t, 0, fs.Seek(99, 0))
	assert.Equal(t, -1, fs.Close(99))
}

func TestSeekOnOpenHandleSucceeds(t *testing.T) {
	fs := newTestFileSystem(t)
	handle := fs.Open("f.txt")
	assert.Equal(t, 1, fs.Seek(handle, 0))
}

func TestGetFileSizeMissingFileReturnsZero(t *testing.T) {
	fs := newTestFileSystem(t)
	assert.Equal(t, 0, fs.GetFileSize("nope.txt"))
}

func TestRemoveFreesInodeAndDirectorySlot(t *testing.T) {
	fs := newTestFileSystem(t)
	handle := fs.Open("doomed.txt")
	require.Equal(t, 0, fs.Close(handle))

	assert.Equal(t, 0, fs.Remove("doomed.txt"))
	assert.Equal(t, 0, fs.GetFileSize("doomed.txt"))

	reopened := fs.Open("doomed.txt")
	assert.Equal(t, handle, reopened, "freed slot should be reusable")
}

func TestRemoveWhileOpenSucceedsAndClearsHandle(t *testing.T) {
	fs := newTestFileSystem(t)
	handle := fs.Open("busy.txt")
	require.Equal(t, 0, fs.Remove("busy.txt"))
	assert.False(t, fs.openFiles.isOpen(handle))
}

func TestRemoveZeroesFreedDataBlocks(t *testing.T) {
	fs := newTestFileSystem(t)
	handle := fs.Open("big.bin")
	payload := bytes.Repeat([]byte{0xFF}, BlockSize*2)
	fs.Write(handle, payload, len(payload))

	ino := fs.inodes.get(fs.openFiles.get(handle).InodeIndex)
	freedBlock := block.ID(ino.Direct[0])

	require.Equal(t, 0, fs.Close(handle))
	require.Equal(t, 0, fs.Remove("big.bin"))

	out := make([]byte, BlockSize)
	require.NoError(t, fs.device.ReadBlock(freedBlock, 1, out))
	assert.Equal(t, make([]byte, BlockSize), out)
}

func TestRemoveFreesDataBlocks(t *testing.T) {
	fs := newTestFileSystem(t)
	handle := fs.Open("big.bin")
	payload := make([]byte, BlockSize*2)
	fs.Write(handle, payload, len(payload))
	before := fs.Stat().BlocksInUse

	require.Equal(t, 0, fs.Close(handle))
	require.Equal(t, 0, fs.Remove("big.bin"))

	after := fs.Stat().BlocksInUse
	assert.Less(t, after, before)
}

func TestGetNextFilenameEnumeratesAllFiles(t *testing.T) {
	fs := newTestFileSystem(t)
	fs.Open("a.txt")
	fs.Open("b.txt")
	fs.Open("c.txt")

	seen := map[string]bool{}
	var name string
	for fs.GetNextFilename(&name) == 1 {
		seen[name] = true
	}

	assert.True(t, seen["a.txt"])
	assert.True(t, seen["b.txt"])
	assert.True(t, seen["c.txt"])
	assert.False(t, seen[rootSentinelName])
}

func TestGetNextFilenameWrapsAroundAfterExhaustion(t *testing.T) {
	fs := newTestFileSystem(t)
	fs.Open("a.txt")
	fs.Open("b.txt")

	var name string
	require.Equal(t, 1, fs.GetNextFilename(&name))
	require.Equal(t, 1, fs.GetNextFilename(&name))
	assert.Equal(t, 0, fs.GetNextFilename(&name), "exhausted cursor returns 0")

	// The cursor wraps back to 1, so the next call restarts the enumeration.
	assert.Equal(t, 1, fs.GetNextFilename(&name))
	assert.Equal(t, "a.txt", name)
}

func TestMountNonFreshRoundTripsState(t *testing.T) {
	dev := block.NewMemory(TotalBlocks, BlockSize)
	fs, err := Mount(dev, true)
	require.NoError(t, err)

	handle := fs.Open("persisted.txt")
	payload := []byte("state survives a remount")
	fs.Write(handle, payload, len(payload))
	require.Equal(t, 0, fs.Close(handle))

	remounted, err := Mount(dev, false)
	require.NoError(t, err)

	assert.Equal(t, len(payload), remounted.GetFileSize("persisted.txt"))

	h := remounted.Open("persisted.txt")
	out := make([]byte, len(payload))
	n := remounted.Read(h, out, len(out))
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, out)
}

func TestStatReflectsUsage(t *testing.T) {
	fs := newTestFileSystem(t)
	before := fs.Stat().InodesInUse

	fs.Open("x.txt")
	after := fs.Stat().InodesInUse
	assert.Equal(t, before+1, after)
}
