package main

import (
	"fmt"
	"log"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"

	simplefs "github.com/block-fs/simplefs"
	"github.com/block-fs/simplefs/disks"
)

func main() {
	app := cli.App{
		Usage: "Administer SimpleFS disk images",
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "Create or wipe a disk image using a named geometry profile",
				ArgsUsage: "IMAGE_FILE",
				Action:    formatImage,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "profile",
						Usage: fmt.Sprintf("geometry profile (%v)", disks.Names()),
						Value: "small",
					},
				},
			},
			{
				Name:      "fsck",
				Usage:     "Walk a disk image and report structural corruption",
				ArgsUsage: "IMAGE_FILE",
				Action:    fsckImage,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "profile",
						Usage: fmt.Sprintf("geometry profile the image was formatted with (%v)", disks.Names()),
						Value: "small",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func formatImage(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("missing argument: IMAGE_FILE", 1)
	}

	profile, err := disks.Get(c.String("profile"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	cfg := simplefs.NewConfig(
		simplefs.WithPath(path),
		simplefs.WithNumBlocks(profile.NumBlocks),
		simplefs.WithBlockSize(profile.BlockSize),
	)
	d, err := cfg.OpenDriver()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer d.Destroy()

	fs := simplefs.New(d)
	if err := fs.Format(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	fmt.Printf("formatted %s: %s profile, %d blocks of %d bytes\n",
		path, profile.Slug, profile.NumBlocks, profile.BlockSize)
	return nil
}

func fsckImage(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("missing argument: IMAGE_FILE", 1)
	}

	profile, err := disks.Get(c.String("profile"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	cfg := simplefs.NewConfig(
		simplefs.WithPath(path),
		simplefs.WithNumBlocks(profile.NumBlocks),
		simplefs.WithBlockSize(profile.BlockSize),
	)
	d, err := cfg.OpenDriver()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer d.Destroy()

	fs := simplefs.New(d)
	root, err := fs.Root()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	checker := &fsckWalker{fs: fs}
	checker.walk(root, "/")

	fmt.Printf("visited %d directories, %d files\n", checker.dirs, checker.files)
	if checker.errs != nil {
		fmt.Fprintln(os.Stderr, checker.errs.Error())
		return cli.Exit("fsck found errors", 2)
	}
	fmt.Println("no corruption found")
	return nil
}

// fsckWalker recursively visits every directory and file reachable from the
// root, accumulating every failure it hits instead of stopping at the first
// one -- mirroring fs.Remove's approach to recursive descent.
type fsckWalker struct {
	fs    *simplefs.FS
	dirs  int
	files int
	errs  *multierror.Error
}

func (w *fsckWalker) walk(dir *simplefs.DirectoryHandle, path string) {
	w.dirs++

	names, err := w.fs.Readdir(dir)
	if err != nil {
		w.errs = multierror.Append(w.errs, fmt.Errorf("%s: readdir: %w", path, err))
		return
	}

	for _, name := range names {
		child := *dir
		if err := w.fs.Changedir(&child, name); err == nil {
			w.walk(&child, path+"/"+name)
			continue
		}

		w.files++
		f, err := w.fs.OpenFile(dir, name)
		if err != nil {
			w.errs = multierror.Append(w.errs, fmt.Errorf("%s/%s: neither a directory nor a readable file: %w", path, name, err))
			continue
		}
		if err := w.fs.Seek(f, f.SizeInBytes()); err != nil {
			w.errs = multierror.Append(w.errs, fmt.Errorf("%s/%s: chain walk: %w", path, name, err))
		}
	}
}
