package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/sfs"
	"github.com/dargueta/sfs/block"
	"github.com/dargueta/sfs/utilities/compression"
)

func main() {
	app := cli.App{
		Usage: "Inspect and manipulate Simple File System disk images",
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "Create or wipe a disk image",
				ArgsUsage: "IMAGE_FILE",
				Action:    formatCommand,
			},
			{
				Name:      "ls",
				Usage:     "List the files on a disk image",
				ArgsUsage: "IMAGE_FILE",
				Action:    lsCommand,
			},
			{
				Name:      "cat",
				Usage:     "Print a file's contents",
				ArgsUsage: "IMAGE_FILE FILENAME",
				Action:    catCommand,
			},
			{
				Name:      "put",
				Usage:     "Copy a file from the host into a disk image",
				ArgsUsage: "IMAGE_FILE HOST_FILE SFS_FILENAME",
				Action:    putCommand,
			},
			{
				Name:      "rm",
				Usage:     "Remove a file from a disk image",
				ArgsUsage: "IMAGE_FILE FILENAME",
				Action:    rmCommand,
			},
			{
				Name:      "stat",
				Usage:     "Show usage statistics for a disk image",
				ArgsUsage: "IMAGE_FILE",
				Action:    statCommand,
			},
			{
				Name:      "report",
				Usage:     "Print a CSV allocation report for a disk image",
				ArgsUsage: "IMAGE_FILE",
				Action:    reportCommand,
			},
			{
				Name:      "pack",
				Usage:     "Compress a disk image for storage or transfer",
				ArgsUsage: "IMAGE_FILE OUTPUT_FILE",
				Action:    packCommand,
			},
			{
				Name:      "unpack",
				Usage:     "Decompress a disk image produced by pack",
				ArgsUsage: "INPUT_FILE IMAGE_FILE",
				Action:    unpackCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err)
	}
}

func mountExisting(path string) (*sfs.FileSystem, error) {
	dev, err := block.NewFile(path, sfs.TotalBlocks, sfs.BlockSize, false)
	if err != nil {
		return nil, err
	}
	return sfs.Mount(dev, false)
}

func formatCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("missing IMAGE_FILE argument")
	}
	dev, err := block.NewFile(path, sfs.TotalBlocks, sfs.BlockSize, true)
	if err != nil {
		return err
	}
	_, err = sfs.Mount(dev, true)
	return err
}

func lsCommand(c *cli.Context) error {
	filesystem, err := mountExisting(c.Args().First())
	if err != nil {
		return err
	}
	filesystem.Diagnostics = os.Stderr

	var next string
	for filesystem.GetNextFilename(&next) == 1 {
		fmt.Printf("%-32s %d\n", next, filesystem.GetFileSize(next))
	}
	return nil
}

func catCommand(c *cli.Context) error {
	if c.Args().Len() < 2 {
		return fmt.Errorf("usage: sfs cat IMAGE_FILE FILENAME")
	}
	filesystem, err := mountExisting(c.Args().Get(0))
	if err != nil {
		return err
	}
	filesystem.Diagnostics = os.Stderr

	name := c.Args().Get(1)
	handle := filesystem.Open(name)
	if handle < 0 {
		return fmt.Errorf("could not open %q", name)
	}
	defer filesystem.Close(handle)

	size := filesystem.GetFileSize(name)
	buf := make([]byte, size)
	n := filesystem.Read(handle, buf, size)
	if n < 0 {
		return fmt.Errorf("read of %q failed", name)
	}
	_, err = os.Stdout.Write(buf[:n])
	return err
}

func putCommand(c *cli.Context) error {
	if c.Args().Len() < 3 {
		return fmt.Errorf("usage: sfs put IMAGE_FILE HOST_FILE SFS_FILENAME")
	}
	filesystem, err := mountExisting(c.Args().Get(0))
	if err != nil {
		return err
	}
	filesystem.Diagnostics = os.Stderr

	data, err := os.ReadFile(c.Args().Get(1))
	if err != nil {
		return err
	}

	name := c.Args().Get(2)
	handle := filesystem.Open(name)
	if handle < 0 {
		return fmt.Errorf("could not open %q", name)
	}
	defer filesystem.Close(handle)

	n := filesystem.Write(handle, data, len(data))
	if n != len(data) {
		return fmt.Errorf("short write for %q: wrote %d of %d bytes", name, n, len(data))
	}
	return nil
}

func rmCommand(c *cli.Context) error {
	if c.Args().Len() < 2 {
		return fmt.Errorf("usage: sfs rm IMAGE_FILE FILENAME")
	}
	filesystem, err := mountExisting(c.Args().Get(0))
	if err != nil {
		return err
	}
	filesystem.Diagnostics = os.Stderr

	if filesystem.Remove(c.Args().Get(1)) != 0 {
		return fmt.Errorf("could not remove %q", c.Args().Get(1))
	}
	return nil
}

func statCommand(c *cli.Context) error {
	filesystem, err := mountExisting(c.Args().First())
	if err != nil {
		return err
	}

	s := filesystem.Stat()
	fmt.Printf("block size:    %d\n", s.BlockSize)
	fmt.Printf("total blocks:  %d\n", s.TotalBlocks)
	fmt.Printf("max inodes:    %d\n", s.MaxInodes)
	fmt.Printf("inodes in use: %d\n", s.InodesInUse)
	fmt.Printf("blocks in use: %d\n", s.BlocksInUse)
	return nil
}

func packCommand(c *cli.Context) error {
	if c.Args().Len() < 2 {
		return fmt.Errorf("usage: sfs pack IMAGE_FILE OUTPUT_FILE")
	}
	src, err := os.Open(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(c.Args().Get(1))
	if err != nil {
		return err
	}
	defer dst.Close()

	n, err := compression.CompressImage(src, dst)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d compressed bytes\n", n)
	return nil
}

func unpackCommand(c *cli.Context) error {
	if c.Args().Len() < 2 {
		return fmt.Errorf("usage: sfs unpack INPUT_FILE IMAGE_FILE")
	}
	src, err := os.Open(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(c.Args().Get(1))
	if err != nil {
		return err
	}
	defer dst.Close()

	n, err := compression.DecompressImage(src, dst)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d bytes\n", n)
	return nil
}

func reportCommand(c *cli.Context) error {
	filesystem, err := mountExisting(c.Args().First())
	if err != nil {
		return err
	}

	dirReport, err := filesystem.DirectoryReportCSV()
	if err != nil {
		return err
	}
	fmt.Print(dirReport)

	allocReport, err := filesystem.AllocationReportCSV()
	if err != nil {
		return err
	}
	fmt.Print(allocReport)
	return nil
}
