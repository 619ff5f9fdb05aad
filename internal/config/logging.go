package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// SetupLogFile opens <dir>/<prefix>-<YYYY-MM-DD>.log for appending, so
// restarts on the same day share a file, and keeps at most maxFiles of them.
// The caller closes the returned file.
func SetupLogFile(dir, prefix string, maxFiles int) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	name := filepath.Join(dir, prefix+"-"+time.Now().Format(time.DateOnly)+".log")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	if maxFiles > 0 {
		if err := pruneLogs(dir, prefix, maxFiles); err != nil {
			fmt.Fprintf(os.Stderr, "warning: prune old logs: %v\n", err)
		}
	}
	return f, nil
}

// pruneLogs deletes the oldest <prefix>-*.log files beyond keep. Dates in
// the names sort chronologically.
func pruneLogs(dir, prefix string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var logs []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, ".log") {
			logs = append(logs, name)
		}
	}
	if len(logs) <= keep {
		return nil
	}

	slices.Sort(logs)
	for _, name := range logs[:len(logs)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}
