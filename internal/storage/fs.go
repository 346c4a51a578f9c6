package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/starford/tagtracker/internal/apperr"
	"github.com/starford/tagtracker/internal/models"
)

// vcsDir is the version-control metadata directory excluded from every walk.
const vcsDir = ".git"

const filePerms = 0o644

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the search root
}

var _ Provider = (*FS)(nil)

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: %w: %s", apperr.ErrRootNotDir, abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute search root.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves a relative path against the root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes root: %s", rel)
	}
	return abs, nil
}

// excluded reports whether a root-relative path lies inside a
// version-control metadata directory.
func excluded(rel string) bool {
	return slices.Contains(strings.Split(filepath.ToSlash(rel), "/"), vcsDir)
}

// List walks the root with an explicit stack and returns every .md file.
//
// Files in a directory come before its subdirectories, and entries are taken
// in lexical order, so discovery order is stable for a given tree. A
// directory whose symlink-resolved path matches one of its ancestors is not
// entered, which keeps link cycles finite. A subtree reached through several
// links is walked under each path; files are deduplicated by literal path.
func (f *FS) List(onSkip SkipFunc) ([]models.Document, error) {
	if onSkip == nil {
		onSkip = func(string, error) {}
	}

	var (
		out         []models.Document
		stack     = []*walkDir{{path: f.root}}
		seenFiles = make(map[string]struct{})
	)

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		dir := cur.path

		rel, err := filepath.Rel(f.root, dir)
		if err != nil {
			onSkip(dir, err)
			continue
		}
		if excluded(rel) {
			continue
		}

		canon, err := filepath.EvalSymlinks(dir)
		if err != nil {
			onSkip(dir, err)
			continue
		}
		if cur.parent.within(canon) {
			continue
		}
		cur.canon = canon

		entries, err := os.ReadDir(dir)
		if err != nil {
			onSkip(dir, err)
			continue
		}

		var subdirs []string
		for _, e := range entries {
			p := filepath.Join(dir, e.Name())

			isDir := e.IsDir()
			if e.Type()&fs.ModeSymlink != 0 {
				info, statErr := os.Stat(p)
				if statErr != nil {
					onSkip(p, statErr)
					continue
				}
				isDir = info.IsDir()
			}
			if isDir {
				subdirs = append(subdirs, p)
				continue
			}

			if !strings.HasSuffix(e.Name(), models.DocExt) {
				continue
			}
			if _, ok := seenFiles[p]; ok {
				continue
			}
			seenFiles[p] = struct{}{}

			fileRel, _ := filepath.Rel(f.root, p)
			out = append(out, models.Document{Abs: p, Rel: fileRel})
		}

		// Push in reverse so the lexically first subdirectory is popped first.
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, &walkDir{path: subdirs[i], parent: cur})
		}
	}

	return out, nil
}

// walkDir is a directory pending in List, linked to the directory it was
// found in.
type walkDir struct {
	path   string
	canon  string
	parent *walkDir
}

// within reports whether canon is d or one of its ancestors.
func (d *walkDir) within(canon string) bool {
	for ; d != nil; d = d.parent {
		if d.canon == canon {
			return true
		}
	}
	return false
}

// Read returns the raw bytes of a file under the root.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically replaces path with content, creating parent directories.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	_, statErr := os.Stat(abs)
	isNew := errors.Is(statErr, os.ErrNotExist)

	if err := atomic.WriteFile(abs, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	// atomic.WriteFile leaves new files with temp-file permissions.
	if isNew {
		if err := os.Chmod(abs, filePerms); err != nil {
			return fmt.Errorf("storage: chmod %s: %w", path, err)
		}
	}
	return nil
}

// IsFile reports whether path names an existing regular file under the root.
func (f *FS) IsFile(path string) bool {
	abs, err := f.safePath(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}

// Find returns the first file (in lexical walk order) whose root-relative
// slash path equals subpath or ends with "/"+subpath.
func (f *FS) Find(subpath string) (string, error) {
	want := filepath.ToSlash(filepath.Clean(subpath))
	var found string

	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if d.Name() == vcsDir {
				return fs.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return nil
		}
		slashed := filepath.ToSlash(rel)
		if slashed == want || strings.HasSuffix(slashed, "/"+want) {
			found = rel
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("storage: find %s: %w", subpath, err)
	}
	if found == "" {
		return "", fmt.Errorf("storage: find %s: %w", subpath, apperr.ErrNotFound)
	}
	return found, nil
}
