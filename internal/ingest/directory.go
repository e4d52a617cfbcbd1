// Package ingest discovers document images on disk for batch extraction.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/docsheet/constants"
)

// FileResult is the outcome for one discovered file.
type FileResult struct {
	Path         string `json:"path"`
	HashHex      string `json:"hash"`
	Deduplicated bool   `json:"deduplicated"`
	Err          string `json:"error,omitempty"`
}

type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// HandleFunc processes one image file.
type HandleFunc func(ctx context.Context, path string, image []byte, mimeType string) error

// Runner feeds image files to a HandleFunc, skipping content it has already
// seen during its lifetime.
type Runner struct {
	handle     HandleFunc
	skipHidden bool
	logger     *slog.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewRunner(handle HandleFunc, skipHidden bool, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{handle: handle, skipHidden: skipHidden, logger: logger, seen: map[string]struct{}{}}
}

// Directory walks root and processes every supported image. Per-file failures
// are recorded and the walk continues.
func (r *Runner) Directory(ctx context.Context, root string) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if r.skipHidden && path != root && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !Supported(path) {
			return nil
		}
		stats.Matched++

		res := r.File(ctx, path)
		results = append(results, res)
		switch {
		case res.Err != "":
			stats.Failed++
		case res.Deduplicated:
			stats.Deduplicated++
		default:
			stats.Succeeded++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

// File processes a single path unless identical content was handled before.
func (r *Runner) File(ctx context.Context, path string) FileResult {
	image, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Err: err.Error()}
	}
	sum := sha256.Sum256(image)
	hash := hex.EncodeToString(sum[:])

	r.mu.Lock()
	_, dup := r.seen[hash]
	if !dup {
		r.seen[hash] = struct{}{}
	}
	r.mu.Unlock()
	if dup {
		r.logger.Info("ingest.file.deduplicated", "path", path, "hash", hash[:12])
		return FileResult{Path: path, HashHex: hash, Deduplicated: true}
	}

	if err := r.handle(ctx, path, image, constants.MIMEForExt(filepath.Ext(path))); err != nil {
		// allow a retry after the file changes or the failure clears
		r.mu.Lock()
		delete(r.seen, hash)
		r.mu.Unlock()
		r.logger.Warn("ingest.file.failed", "path", path, "error", err)
		return FileResult{Path: path, HashHex: hash, Err: err.Error()}
	}
	r.logger.Info("ingest.file.ok", "path", path)
	return FileResult{Path: path, HashHex: hash}
}

// Supported reports whether the file extension maps to an accepted image type.
func Supported(path string) bool {
	return constants.MIMEForExt(filepath.Ext(path)) != ""
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
