// Command vsfsctl is a host shim over the vsfs core: it exposes mknod,
// mkdir, write, read, ls, stat, fsck, and image pack/unpack as CLI
// subcommands. The FUSE-like kernel-operation dispatch loop itself is out
// of scope (spec.md §1); this only drives vsfs.FileSystem directly, one
// operation per invocation.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"github.com/xaionaro-go/bytesextra"

	"github.com/ebratsch/vsfs/internal/blockio"
	"github.com/ebratsch/vsfs/internal/dirent"
	"github.com/ebratsch/vsfs/internal/fsck"
	"github.com/ebratsch/vsfs/internal/geometry"
	"github.com/ebratsch/vsfs/internal/inode"
	"github.com/ebratsch/vsfs/internal/layout"
	"github.com/ebratsch/vsfs/utilities/compression"
	"github.com/ebratsch/vsfs/vsfs"
)

func main() {
	// Matches main()'s ordering in the original: the uid-0 refusal runs
	// before any argument validation, so it precedes app.Run's flag parsing.
	if refuseRootErr := refuseRoot(); refuseRootErr != nil {
		cli.HandleExitCoder(refuseRootErr)
	}

	app := &cli.App{
		Name:  "vsfsctl",
		Usage: "Inspect and manipulate a VSFS image file directly, without mounting it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "image",
				Aliases:  []string{"i"},
				Required: true,
				Usage:    "path to the VSFS image file",
			},
		},
		Commands: []*cli.Command{
			initCommand,
			mknodCommand,
			mkdirCommand,
			writeCommand,
			readCommand,
			lsCommand,
			statCommand,
			fsckCommand,
			packCommand,
			unpackCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("vsfsctl: %s", err)
	}
}

// refuseRoot matches myfs.c's main(): running as root (real or effective
// uid 0) is refused outright, since the core has no permission model to
// enforce once unconstrained root access is in play.
func refuseRoot() error {
	if os.Getuid() == 0 || os.Geteuid() == 0 {
		return cli.Exit("running as root opens unacceptable security holes", 1)
	}
	return nil
}

// canonicalizeImagePath reproduces main()'s fallback: if the path doesn't
// resolve (most commonly because the image doesn't exist yet and `init` is
// about to create it), join the absolute working directory with the raw
// argument instead of failing outright.
func canonicalizeImagePath(raw string) (string, error) {
	if resolved, err := filepath.Abs(raw); err == nil {
		if real, err := filepath.EvalSymlinks(resolved); err == nil {
			return real, nil
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("could not resolve working directory: %w", err)
	}
	return filepath.Join(wd, raw), nil
}

func mountFromContext(c *cli.Context) (*vsfs.FileSystem, error) {
	imagePath, err := canonicalizeImagePath(c.String("image"))
	if err != nil {
		return nil, err
	}
	return vsfs.Mount(vsfs.Options{ImagePath: imagePath})
}

var initCommand = &cli.Command{
	Name:      "init",
	Usage:     "create a new, freshly formatted image",
	ArgsUsage: " ",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "preset",
			Usage: fmt.Sprintf("named image-size preset instead of the default (one of: %v)", geometry.Slugs()),
		},
	},
	Action: func(c *cli.Context) error {
		imagePath, err := canonicalizeImagePath(c.String("image"))
		if err != nil {
			return err
		}
		if _, statErr := os.Stat(imagePath); statErr == nil {
			return cli.Exit(fmt.Sprintf("%s already exists; init only creates new images", imagePath), 1)
		}

		opts := vsfs.Options{ImagePath: imagePath}
		if slug := c.String("preset"); slug != "" {
			preset, err := geometry.Lookup(slug)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			numBlocks := preset.NumBlocks()
			if numBlocks > layout.NumBlocks {
				return cli.Exit(fmt.Sprintf(
					"preset %q needs %d blocks, but the data-block bitmap is fixed at one block (%d blocks max)",
					slug, numBlocks, layout.NumBlocks), 1)
			}
			opts.NumBlocks = numBlocks
		}

		fs, err := vsfs.Mount(opts)
		if err != nil {
			return err
		}
		defer fs.Close()

		fmt.Printf("created %s\n", imagePath)
		return nil
	},
}

var mknodCommand = &cli.Command{
	Name:      "mknod",
	Usage:     "create a new regular file",
	ArgsUsage: "PATH",
	Action: func(c *cli.Context) error {
		fs, err := mountFromContext(c)
		if err != nil {
			return err
		}
		defer fs.Close()

		inum, err := fs.Mknod(c.Args().First())
		if err != nil {
			return err
		}
		fmt.Println(inum)
		return nil
	},
}

var mkdirCommand = &cli.Command{
	Name:      "mkdir",
	Usage:     "create a new directory",
	ArgsUsage: "PATH",
	Action: func(c *cli.Context) error {
		fs, err := mountFromContext(c)
		if err != nil {
			return err
		}
		defer fs.Close()

		inum, err := fs.Mkdir(c.Args().First())
		if err != nil {
			return err
		}
		fmt.Println(inum)
		return nil
	},
}

var writeCommand = &cli.Command{
	Name:      "write",
	Usage:     "write bytes to a file starting at an offset",
	ArgsUsage: "PATH",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "data", Required: true, Usage: "bytes to write, taken literally"},
		&cli.UintFlag{Name: "offset", Value: 0},
	},
	Action: func(c *cli.Context) error {
		fs, err := mountFromContext(c)
		if err != nil {
			return err
		}
		defer fs.Close()

		inum, err := fs.Open(c.Args().First())
		if err != nil {
			return err
		}

		data := []byte(c.String("data"))
		n, err := fs.Write(inum, data, uint32(len(data)), uint32(c.Uint("offset")))
		if err != nil {
			return err
		}
		fmt.Printf("wrote %d bytes\n", n)
		return nil
	},
}

var readCommand = &cli.Command{
	Name:      "read",
	Usage:     "read bytes from a file starting at an offset",
	ArgsUsage: "PATH",
	Flags: []cli.Flag{
		&cli.UintFlag{Name: "offset", Value: 0},
		&cli.UintFlag{Name: "size", Required: true},
	},
	Action: func(c *cli.Context) error {
		fs, err := mountFromContext(c)
		if err != nil {
			return err
		}
		defer fs.Close()

		inum, err := fs.Open(c.Args().First())
		if err != nil {
			return err
		}

		buf := make([]byte, c.Uint("size"))
		n, err := fs.Read(inum, buf, uint32(c.Uint("size")), uint32(c.Uint("offset")))
		if err != nil {
			return err
		}
		os.Stdout.Write(buf[:n])
		return nil
	},
}

var lsCommand = &cli.Command{
	Name:      "ls",
	Usage:     "list the entries of a directory",
	ArgsUsage: "PATH",
	Action: func(c *cli.Context) error {
		fs, err := mountFromContext(c)
		if err != nil {
			return err
		}
		defer fs.Close()

		path := c.Args().First()
		if path == "" {
			path = "/"
		}
		inum, err := fs.Open(path)
		if err != nil {
			return err
		}

		stat, err := fs.Getattr(path)
		if err != nil {
			return err
		}
		if !stat.IsDir {
			return cli.Exit(fmt.Sprintf("%s is not a directory", path), 1)
		}

		ino, err := inode.Get(fs.Device(), inum)
		if err != nil {
			return err
		}
		records, err := dirent.ReadChain(fs.Device(), ino)
		if err != nil {
			return err
		}
		for _, r := range records {
			fmt.Printf("%-*s %d\n", layout.MaxFilename, r.Name, r.Inum)
		}
		return nil
	},
}

var statCommand = &cli.Command{
	Name:      "stat",
	Usage:     "print the attributes of a file or directory",
	ArgsUsage: "PATH",
	Action: func(c *cli.Context) error {
		fs, err := mountFromContext(c)
		if err != nil {
			return err
		}
		defer fs.Close()

		stat, err := fs.Getattr(c.Args().First())
		if err != nil {
			return err
		}
		fmt.Printf("inode:  %d\n", stat.InodeNumber)
		fmt.Printf("type:   %s\n", typeName(stat.IsDir))
		fmt.Printf("mode:   %s\n", stat.Mode)
		fmt.Printf("size:   %d\n", stat.Size)
		fmt.Printf("blocks: %d\n", stat.Blocks)
		return nil
	},
}

func typeName(isDir bool) string {
	if isDir {
		return "directory"
	}
	return "file"
}

var fsckCommand = &cli.Command{
	Name:  "fsck",
	Usage: "check the image for invariant violations without modifying it",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "load the image into memory before checking it, so the check touches no file handle at all",
		},
	},
	Action: func(c *cli.Context) error {
		imagePath, err := canonicalizeImagePath(c.String("image"))
		if err != nil {
			return err
		}

		var dev blockio.Device
		if c.Bool("dry-run") {
			dev, err = loadImageIntoMemory(imagePath)
		} else {
			var fs *vsfs.FileSystem
			fs, err = vsfs.Mount(vsfs.Options{ImagePath: imagePath})
			if err == nil {
				defer fs.Close()
				dev = fs.Device()
			}
		}
		if err != nil {
			return err
		}

		if err := fsck.Validate(dev); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return cli.Exit("inconsistent image", 1)
		}
		fmt.Println("consistent")
		return nil
	},
}

// loadImageIntoMemory reads the whole image file into a byte slice and wraps
// it in an in-memory blockio.Device, so --dry-run validation can never write
// back to the file on disk regardless of what Validate does internally.
func loadImageIntoMemory(imagePath string) (blockio.Device, error) {
	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, err
	}
	stream := bytesextra.NewReadWriteSeeker(raw)
	return blockio.New(stream, layout.BlockSize, uint32(len(raw)/layout.BlockSize)), nil
}

var packCommand = &cli.Command{
	Name:      "pack",
	Usage:     "compress an image file for archival (RLE8 + gzip)",
	ArgsUsage: "DEST",
	Action: func(c *cli.Context) error {
		imagePath, err := canonicalizeImagePath(c.String("image"))
		if err != nil {
			return err
		}
		src, err := os.Open(imagePath)
		if err != nil {
			return err
		}
		defer src.Close()

		dst, err := os.Create(c.Args().First())
		if err != nil {
			return err
		}
		defer dst.Close()

		n, err := compression.CompressVsfsImage(src, dst)
		if err != nil {
			return err
		}
		fmt.Printf("packed to %d bytes\n", n)
		return nil
	},
}

var unpackCommand = &cli.Command{
	Name:      "unpack",
	Usage:     "decompress a packed image file",
	ArgsUsage: "DEST",
	Action: func(c *cli.Context) error {
		imagePath, err := canonicalizeImagePath(c.String("image"))
		if err != nil {
			return err
		}
		src, err := os.Open(imagePath)
		if err != nil {
			return err
		}
		defer src.Close()

		dst, err := os.Create(c.Args().First())
		if err != nil {
			return err
		}
		defer dst.Close()

		n, err := compression.DecompressVsfsImage(src, dst)
		if err != nil {
			return err
		}
		fmt.Printf("unpacked to %d bytes\n", n)
		return nil
	},
}
