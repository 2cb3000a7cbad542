package fileutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// ScanOptions configures which regular files are enumerated.
// The zero value selects every regular file at any depth.
type ScanOptions struct {
	// NamePattern is a regex pattern to match filenames (without extension)
	NamePattern string
	// Extensions is a list of file extensions to include (e.g., ".log", ".txt")
	Extensions []string
	// ExcludeDirs is a list of directory names to skip (e.g., ".git", "node_modules")
	ExcludeDirs []string
	// MaxDepth limits recursion depth (0 = unlimited, 1 = root dir only)
	MaxDepth int
	// SkipHidden skips files and directories whose name starts with "."
	SkipHidden bool
	// ExcludePaths lists files or directories, relative to the walk root, that are skipped
	ExcludePaths []string
}

// ErrorFunc receives traversal errors. The offending entry is skipped.
type ErrorFunc func(path string, err error)

// ScanResult contains the results of an eager directory scan
type ScanResult struct {
	// Files contains the matched file paths joined onto the scanned directory, sorted
	Files []string
	// Errors contains any errors encountered during scanning
	Errors []error
}

// filter is the compiled form of ScanOptions.
type filter struct {
	namePattern *regexp.Regexp
	extensions  map[string]bool
	excludeDirs map[string]bool
	skipPaths   map[string]bool
	maxDepth    int
	skipHidden  bool
}

func newFilter(opts ScanOptions) (*filter, error) {
	f := &filter{
		extensions:  make(map[string]bool),
		excludeDirs: make(map[string]bool),
		skipPaths:   make(map[string]bool),
		maxDepth:    opts.MaxDepth,
		skipHidden:  opts.SkipHidden,
	}

	if opts.NamePattern != "" {
		re, err := regexp.Compile(opts.NamePattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		f.namePattern = re
	}

	for _, ext := range opts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		f.extensions[strings.ToLower(ext)] = true
	}

	for _, dir := range opts.ExcludeDirs {
		f.excludeDirs[dir] = true
	}

	for _, path := range opts.ExcludePaths {
		f.skipPaths[filepath.Clean(path)] = true
	}

	return f, nil
}

// skipDir reports whether the directory at rel (relative to the walk root)
// should not be descended into.
func (f *filter) skipDir(rel, name string) bool {
	if f.excludeDirs[name] {
		return true
	}
	if f.skipHidden && strings.HasPrefix(name, ".") {
		return true
	}
	if f.maxDepth > 0 {
		depth := strings.Count(rel, string(filepath.Separator)) + 1
		if depth >= f.maxDepth {
			return true
		}
	}
	return false
}

// matchFile reports whether a regular file named name is selected.
func (f *filter) matchFile(name string) bool {
	if f.skipHidden && strings.HasPrefix(name, ".") {
		return false
	}
	if len(f.extensions) > 0 && !f.extensions[strings.ToLower(filepath.Ext(name))] {
		return false
	}
	if f.namePattern != nil {
		if !f.namePattern.MatchString(strings.TrimSuffix(name, filepath.Ext(name))) {
			return false
		}
	}
	return true
}

// CheckRoot verifies that the root of fs is an accessible directory.
func CheckRoot(fs billy.Filesystem) error {
	info, err := fs.Stat(".")
	if err != nil {
		return fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", fs.Root())
	}
	return nil
}

// Enumerate walks fs from its root and streams the relative path of every
// selected regular file. Symlinks are not followed and non-regular entries
// are skipped.
//
// Traversal errors go to onErr (which may be nil) and never stop the walk.
// The returned channel is closed once the walk finishes or ctx is done.
// Only an invalid ScanOptions is reported as an error.
func Enumerate(ctx context.Context, fs billy.Filesystem, opts ScanOptions, onErr ErrorFunc) (<-chan string, error) {
	f, err := newFilter(opts)
	if err != nil {
		return nil, err
	}
	if onErr == nil {
		onErr = func(string, error) {}
	}

	out := make(chan string)
	go func() {
		defer close(out)
		_ = util.Walk(fs, ".", func(path string, info os.FileInfo, err error) error {
			if err != nil {
				onErr(path, err)
				return nil // Skip the entry, keep walking siblings
			}
			if path == "." {
				return nil
			}
			if f.skipPaths[path] {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if info.IsDir() {
				if f.skipDir(path, info.Name()) {
					return filepath.SkipDir
				}
				return nil
			}

			if !info.Mode().IsRegular() || !f.matchFile(info.Name()) {
				return nil
			}

			select {
			case out <- path:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	return out, nil
}

// ScanDirectory eagerly enumerates dir on the OS filesystem and returns the
// sorted list of selected files. Paths are joined onto dir.
func ScanDirectory(dir string, opts ScanOptions) (*ScanResult, error) {
	fs := osfs.New(dir)
	if err := CheckRoot(fs); err != nil {
		return nil, err
	}

	result := &ScanResult{
		Files:  make([]string, 0),
		Errors: make([]error, 0),
	}

	paths, err := Enumerate(context.Background(), fs, opts, func(path string, err error) {
		result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", filepath.Join(dir, path), err))
	})
	if err != nil {
		return nil, err
	}

	for path := range paths {
		result.Files = append(result.Files, filepath.Join(dir, path))
	}

	// Sort files for consistent output
	sort.Strings(result.Files)

	return result, nil
}
