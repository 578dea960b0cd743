package keys

import (
	"path"
	"strings"
)

// Dataset returns the object key the dataset is mirrored under: the
// relative dataset path, optionally below a prefix.
func Dataset(prefix, relPath string) string {
	relPath = strings.TrimLeft(path.Clean("/"+filepathToSlash(relPath)), "/")
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return relPath
	}
	return prefix + "/" + relPath
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
