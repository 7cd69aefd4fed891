package vfs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// MountSentinel is the leaf name every mount root must carry. Close
// refuses to unlink anything else, so a mis-assigned handle cannot
// delete an unrelated directory.
const MountSentinel = "vfs_mount_point"

var ErrRefusingRemoval = errors.New("mount point is not named " + MountSentinel)

// FS is the unified view over all extracted archives. It owns the mount
// directory for the lifetime of a run and removes it on Close.
type FS struct {
	root string
}

func NewFS(root string) *FS {
	return &FS{root: root}
}

func (fs *FS) Root() string {
	return fs.root
}

// Resolve maps a slash-separated game path onto the mount tree.
func (fs *FS) Resolve(gamePath string) string {
	return filepath.Join(fs.root, filepath.FromSlash(gamePath))
}

func (fs *FS) Exists(gamePath string) bool {
	info, err := os.Stat(fs.Resolve(gamePath))
	return err == nil && !info.IsDir()
}

func (fs *FS) ReadFile(gamePath string) ([]byte, error) {
	data, err := os.ReadFile(fs.Resolve(gamePath))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read %q from mount", gamePath)
	}
	return data, nil
}

func (fs *FS) Close() error {
	if fs.root == "" {
		return nil
	}
	if filepath.Base(fs.root) != MountSentinel {
		return errors.Wrapf(ErrRefusingRemoval, "refusing to remove %q", fs.root)
	}
	if err := os.RemoveAll(fs.root); err != nil {
		return errors.Wrapf(err, "Failed to remove mount point %q", fs.root)
	}
	fs.root = ""
	return nil
}

// FindTexture probes for an image file backing the given path. The
// path as written wins; otherwise the extension is swapped for each
// candidate from the exporter settings, in order. Returns the winning
// OS path.
func (fs *FS) FindTexture(gamePath string, extensions []string) (string, bool) {
	candidate := fs.Resolve(gamePath)
	if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
		return candidate, true
	}

	stem := strings.TrimSuffix(candidate, filepath.Ext(candidate))
	for _, ext := range extensions {
		probe := stem + ext
		if st, err := os.Stat(probe); err == nil && !st.IsDir() {
			return probe, true
		}
	}
	return "", false
}

// ShaderScripts lists every *.shader file under scripts/ in the mount
// tree, sorted by path.
func (fs *FS) ShaderScripts() ([]string, error) {
	scriptsDir := filepath.Join(fs.root, "scripts")
	if _, err := os.Stat(scriptsDir); err != nil {
		return nil, errors.Wrapf(err, "No scripts directory in mount %q", fs.root)
	}

	var result []string
	err := filepath.WalkDir(scriptsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".shader" {
			result = append(result, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to list shader scripts in %q", scriptsDir)
	}
	// WalkDir yields lexical order already, keep the contract explicit
	// for callers that depend on first-wins merging.
	sort.Strings(result)
	return result, nil
}
