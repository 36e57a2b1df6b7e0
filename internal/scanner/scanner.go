// Package scanner enumerates repository files deterministically.
//
// The scanner walks the directory tree, applies ignore rules (user globs plus
// the repository's .gitignore), rejects binary files, classifies languages and
// hashes file contents. Given identical filesystem content its output is
// byte-for-byte stable: files are ordered lexicographically by relative path so
// every downstream node id is reproducible.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/standardbeagle/repolens/internal/config"
	"github.com/standardbeagle/repolens/internal/debug"
	"github.com/standardbeagle/repolens/pkg/pathutil"
)

// FileDesc describes one scanned file. Content is retained so downstream
// components (clone detection, source retrieval) never re-read the disk.
type FileDesc struct {
	Path     string // repository-relative, slash-normalized
	AbsPath  string
	Language string
	Hash     uint64 // xxhash of content
	Size     int64
	Content  []byte
}

// ScanError records an unreadable path. Scan errors are local: the path is
// skipped, the error recorded, and the walk continues.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// Result is the ordered outcome of one repository scan.
type Result struct {
	Root      string
	RepoHash  uint64 // content hash over all (path, hash) pairs, used as the analysis cache key
	Files     []FileDesc
	Skipped   int // ignored, binary or oversized paths
	Errors    []*ScanError
	ScannedAt time.Time
}

// Scanner walks a repository root applying ignore rules and language detection.
type Scanner struct {
	cfg            *config.Config
	binaryDetector *BinaryDetector
	gitignore      *ignore.GitIgnore
}

// New creates a Scanner for the configured repository root.
func New(cfg *config.Config) *Scanner {
	s := &Scanner{
		cfg:            cfg,
		binaryDetector: NewBinaryDetector(),
	}
	if cfg.Scan.RespectGitignore {
		// A missing or unreadable .gitignore simply disables gitignore filtering.
		if gi, err := ignore.CompileIgnoreFile(filepath.Join(cfg.Project.Root, ".gitignore")); err == nil {
			s.gitignore = gi
		}
	}
	return s
}

// Scan walks the repository and returns the ordered file list. Only a missing
// or unreadable root aborts the scan; individual file failures are recorded in
// Result.Errors and the walk continues.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	root, err := filepath.Abs(s.cfg.Project.Root)
	if err != nil {
		return nil, &ScanError{Path: s.cfg.Project.Root, Err: err}
	}
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		if err == nil {
			err = fmt.Errorf("not a directory")
		}
		return nil, &ScanError{Path: root, Err: err}
	}

	result := &Result{
		Root:      root,
		ScannedAt: time.Now(),
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			result.Errors = append(result.Errors, &ScanError{Path: path, Err: err})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel := pathutil.Normalize(pathutil.ToRelative(path, root))
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if s.skipDir(d.Name(), rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			if d.Type()&fs.ModeSymlink != 0 && s.cfg.Scan.FollowSymlinks {
				// Symlinked files are read through; symlinked directories are
				// not followed to keep the containment forest acyclic.
				if fi, err := os.Stat(path); err != nil || !fi.Mode().IsRegular() {
					return nil
				}
			} else {
				return nil
			}
		}

		if s.ignored(rel) || s.binaryDetector.IsBinaryByExtension(rel) {
			result.Skipped++
			return nil
		}

		fi, err := os.Stat(path)
		if err != nil {
			result.Errors = append(result.Errors, &ScanError{Path: rel, Err: err})
			return nil
		}
		if fi.Size() > s.cfg.Scan.MaxFileSize {
			debug.LogScan("skipping oversized file %s (%d bytes)\n", rel, fi.Size())
			result.Skipped++
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			result.Errors = append(result.Errors, &ScanError{Path: rel, Err: err})
			return nil
		}
		if s.binaryDetector.IsBinaryByContent(content) {
			result.Skipped++
			return nil
		}

		result.Files = append(result.Files, FileDesc{
			Path:     rel,
			AbsPath:  path,
			Language: DetectLanguage(rel, content),
			Hash:     xxhash.Sum64(content),
			Size:     int64(len(content)),
			Content:  content,
		})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	// Stable ordering is what makes node ids reproducible across runs.
	sort.Slice(result.Files, func(i, j int) bool {
		return result.Files[i].Path < result.Files[j].Path
	})
	result.RepoHash = repoHash(result.Files)

	debug.LogScan("scanned %d files (%d skipped, %d errors) under %s\n",
		len(result.Files), result.Skipped, len(result.Errors), root)

	return result, nil
}

// skipDir filters directories that never contain analyzable source.
func (s *Scanner) skipDir(name, rel string) bool {
	switch name {
	case ".git", ".hg", ".svn", "node_modules", "__pycache__", ".venv", "venv":
		return true
	}
	return s.ignored(rel)
}

// ignored applies user ignore globs and the repository .gitignore to a
// slash-normalized relative path.
func (s *Scanner) ignored(rel string) bool {
	for _, pattern := range s.cfg.Scan.IgnorePatterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	if s.gitignore != nil && s.gitignore.MatchesPath(rel) {
		return true
	}
	return false
}

// repoHash derives the analysis cache key from the ordered (path, hash) pairs.
// Two scans of identical content always produce the same value.
func repoHash(files []FileDesc) uint64 {
	h := xxhash.New()
	var buf [8]byte
	for _, f := range files {
		_, _ = h.WriteString(f.Path)
		_, _ = h.Write([]byte{0})
		putUint64(buf[:], f.Hash)
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
