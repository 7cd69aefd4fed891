// Package archive turns a directory of pk3 files into a single mounted
// file tree. pk3 archives are plain ZIP containers; Quake 3 gives later
// archives (in alphabetical order) priority over earlier ones.
package archive

import (
	"archive/zip"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/DaviesX/ioq3-map-exporter/vfs"
)

// List returns every regular *.pk3 file directly under basePath, as
// absolute paths in lexical byte order.
func List(basePath string) ([]string, error) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to list base path %q", basePath)
	}

	var archives []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pk3") {
			continue
		}
		if info, err := e.Info(); err != nil || !info.Mode().IsRegular() {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(basePath, e.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to resolve archive path %q", e.Name())
		}
		archives = append(archives, abs)
	}
	sort.Strings(archives)
	return archives, nil
}

// Mount expands the given archives into a fresh sentinel-named mount
// root. The input is the priority-sorted archive list (lowest first);
// extraction iterates it in reverse and never overwrites, so the
// highest-priority copy of every entry lands on disk first and wins.
func Mount(archives []string) (*vfs.FS, error) {
	if len(archives) == 0 {
		return nil, errors.New("no archives to mount")
	}

	root := filepath.Join(os.TempDir(), vfs.MountSentinel)
	if err := os.RemoveAll(root); err != nil {
		return nil, errors.Wrapf(err, "Failed to clear stale mount point %q", root)
	}
	if err := os.MkdirAll(root, 0777); err != nil {
		return nil, errors.Wrapf(err, "Failed to create mount point %q", root)
	}

	for i := len(archives) - 1; i >= 0; i-- {
		if err := extract(archives[i], root); err != nil {
			os.RemoveAll(root)
			return nil, err
		}
	}

	return vfs.NewFS(root), nil
}

func extract(archivePath, root string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return errors.Wrapf(err, "Failed to open archive %q", archivePath)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if err := extractEntry(f, root); err != nil {
			return errors.Wrapf(err, "Failed extracting %q from %q", f.Name, archivePath)
		}
	}
	return nil
}

func extractEntry(f *zip.File, root string) error {
	name := filepath.FromSlash(strings.ReplaceAll(f.Name, "\\", "/"))
	dest := filepath.Join(root, name)
	if !strings.HasPrefix(dest, root+string(os.PathSeparator)) {
		log.Printf("[archive] skipping entry escaping the mount tree: %q", f.Name)
		return nil
	}

	if strings.HasSuffix(f.Name, "/") || strings.HasSuffix(f.Name, "\\") || f.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0777)
	}

	// a colliding name was already placed by a higher-priority archive
	if _, err := os.Stat(dest); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0777); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
