// Package fileutil enumerates the regular files under a directory tree.
//
// Enumeration runs over a billy.Filesystem so the same code walks the OS
// filesystem in production and wrapped or chrooted filesystems in tests.
// Paths produced by Enumerate are relative to the filesystem root; callers
// join them onto the directory they mounted.
//
// # Main Components
//
// ScanOptions - optional filters applied during the walk:
//   - NamePattern: regex matched against the filename without extension
//   - Extensions: case-insensitive extension allow list (".log" or "log")
//   - ExcludeDirs: directory names never descended into
//   - MaxDepth: recursion limit (0 = unlimited, 1 = root directory only)
//   - SkipHidden: skip names starting with "."
//
// Enumerate() - lazy walk that streams paths on a channel. Entries that
// cannot be read are handed to an ErrorFunc and skipped; siblings are
// still visited.
//
// ScanDirectory() - eager variant for the OS filesystem returning a sorted
// ScanResult with the non-fatal errors collected.
//
// # Usage Examples
//
// Streaming every regular file:
//
//	paths, err := fileutil.Enumerate(ctx, osfs.New(root), fileutil.ScanOptions{}, func(path string, err error) {
//	    log.Printf("%s: %v", path, err)
//	})
//	if err != nil {
//	    return err
//	}
//	for path := range paths {
//	    fmt.Println(path)
//	}
//
// Only log files, skipping VCS metadata:
//
//	result, err := fileutil.ScanDirectory("/var/log", fileutil.ScanOptions{
//	    Extensions:  []string{".log"},
//	    ExcludeDirs: []string{".git"},
//	})
//
// # Error Tolerance
//
// Only invalid options (a bad regex) and an unusable root directory are
// fatal. Permission errors and entries that vanish mid-walk are reported
// and skipped.
//
// # Symlinks
//
// Links are never followed. A symlink to a regular file is not itself a
// regular file and is therefore not enumerated.
package fileutil
