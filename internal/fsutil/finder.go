// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"path/filepath"
)

// FindFilesByExtension recursively searches the given root path for all
// files with the specified extension (e.g. ".lua") and returns their full
// paths in directory-walk order. Walk order follows fs.WalkDir, which is
// lexical per directory; callers relying on duplicate-name overwrites get
// that order, not a global sort.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(d.Name()) == extension {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}
