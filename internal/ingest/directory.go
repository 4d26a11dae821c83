package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmercado-dev/merchant-intake/constants"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
)

// ScanStats aggregates one directory scan.
type ScanStats struct {
	Scanned int
	Matched int
	Skipped int
}

// ScanDirectory walks root and builds one Document per intake-eligible file.
// Hidden files and directories are skipped. Results come back sorted by path
// so repeated runs enqueue in the same order.
func ScanDirectory(root string, logger *slog.Logger) ([]entity.Document, ScanStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return nil, ScanStats{}, errors.New("intake directory is required")
	}

	var paths []string
	var stats ScanStats
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		stats.Scanned++
		if strings.HasPrefix(name, ".") || !eligible(path) {
			stats.Skipped++
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(paths)

	docs := make([]entity.Document, 0, len(paths))
	for _, p := range paths {
		docs = append(docs, entity.NewDocument(p))
	}
	logger.Info("ingest.scan",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"skipped", stats.Skipped,
	)
	return docs, stats, nil
}

func eligible(path string) bool {
	ext := constants.NormalizeExt(filepath.Ext(path))
	_, ok := constants.AllowedExtensions[ext]
	return ok
}
