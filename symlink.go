package condascan

import (
	"os"
	"path/filepath"
)

// resolveLink reads a single symlink and returns its target as an absolute
// path. A relative target is interpreted against the link's own directory,
// matching how the kernel resolves it. Only one hop is followed; the target
// is not checked for existence.
func resolveLink(link string) (string, error) {
	target, err := os.Readlink(link)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(link), target)
	}
	return target, nil
}

// isSymlink reports whether path is itself a symlink (without following it).
func isSymlink(path string) bool {
	fi, err := os.Lstat(path)
	return err == nil && fi.Mode()&os.ModeSymlink != 0
}
