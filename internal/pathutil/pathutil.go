// Package pathutil implements path splitting and resolution (spec.md
// §4.5). Paths are absolute, slash-separated, with up to
// layout.MaxPathDepth components each up to layout.MaxFilename bytes.
package pathutil

import (
	"strings"

	"github.com/ebratsch/vsfs/internal/blockio"
	"github.com/ebratsch/vsfs/internal/dirent"
	"github.com/ebratsch/vsfs/internal/inode"
	"github.com/ebratsch/vsfs/internal/layout"

	vfserrors "github.com/ebratsch/vsfs/errors"
)

// SplitPath returns the ordered, non-empty components of an absolute path.
// A trailing slash yields no extra component. It fails with InvalidPath if
// the path does not begin with "/", a component exceeds MaxFilename bytes,
// or there are more than MaxPathDepth components.
func SplitPath(p string) ([]string, error) {
	if !strings.HasPrefix(p, "/") {
		return nil, vfserrors.ErrInvalidArgument.WithMessage("path must be absolute: " + p)
	}

	var components []string
	for _, part := range strings.Split(p, "/") {
		if part == "" {
			continue
		}
		if len(part) > layout.MaxFilename {
			return nil, vfserrors.ErrInvalidArgument.WithMessage(
				"path component exceeds MaxFilename: " + part)
		}
		components = append(components, part)
	}

	if len(components) > layout.MaxPathDepth {
		return nil, vfserrors.ErrInvalidArgument.WithMessage("path exceeds MaxPathDepth: " + p)
	}
	return components, nil
}

// ParentAndLeaf splits on the last "/": the prefix (possibly "/") is the
// parent path, the suffix is the leaf name.
func ParentAndLeaf(p string) (parent, leaf string) {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return "", p
	}
	parent = p[:idx]
	if parent == "" {
		parent = "/"
	}
	leaf = p[idx+1:]
	return parent, leaf
}

// Resolve walks directory inodes from the root (inode 2) to the inode
// named by path. It returns 0 ("no such path") if any step fails: a
// component isn't found, or an intermediate inode isn't a directory.
func Resolve(dev blockio.Device, path string) (uint32, error) {
	components, err := SplitPath(path)
	if err != nil {
		return 0, err
	}

	cur := uint32(layout.RootInodeNum)
	for _, name := range components {
		curInode, err := inode.Get(dev, cur)
		if err != nil {
			return 0, err
		}
		if !curInode.IsDir() {
			return 0, nil
		}

		chain, err := dirent.ReadChain(dev, curInode)
		if err != nil {
			return 0, err
		}

		found := false
		for _, rec := range chain {
			if rec.Name == name {
				cur = rec.Inum
				found = true
				break
			}
		}
		if !found {
			return 0, nil
		}
	}

	return cur, nil
}
