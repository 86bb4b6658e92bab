package snippets

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// packExtensions are the file types LoadPackDir reads.
var packExtensions = []string{".json", ".yaml", ".yml"}

// LoadPackDir reads every pack file under dir (recursively) and merges them
// into one managed map. Files are visited in lexical order, so a later file
// overrides an earlier one on the same trigger.
//
// Individual files that fail to read or parse are logged and skipped. An error
// is returned only when the walk itself fails or every file failed.
func LoadPackDir(dir, prefix string) (map[string]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		// No pack directory is fine.
		return map[string]string{}, nil
	}

	merged := make(map[string]string)
	var loadErrors []error
	var loaded int

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("Error accessing path during pack walk",
				"path", path,
				"error", err,
			)
			return nil
		}
		if d.IsDir() || !isPackFile(path) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("Failed to read pack file", "path", path, "error", err)
			loadErrors = append(loadErrors, fmt.Errorf("%s: %w", path, err))
			return nil
		}
		entries, err := ParsePack(data, prefix)
		if err != nil {
			slog.Warn("Failed to parse pack file", "path", path, "error", err)
			loadErrors = append(loadErrors, fmt.Errorf("%s: %w", path, err))
			return nil
		}
		for k, v := range entries {
			merged[k] = v
		}
		loaded++
		slog.Debug("Loaded pack file", "path", path, "snippets", len(entries))
		return nil
	})
	if err != nil {
		return merged, err
	}

	if len(loadErrors) > 0 && loaded == 0 {
		return nil, errors.Join(loadErrors...)
	}
	if len(loadErrors) > 0 {
		slog.Warn("Some pack files failed to load",
			"loaded", loaded,
			"errors", len(loadErrors),
		)
	}
	return merged, nil
}

func isPackFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range packExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
