package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// rotateFiles shifts name.N.ext to name.N+1.ext, dropping anything at or beyond
// maxBackups, then moves the live file to name.1.ext.
func rotateFiles(basePath string, maxBackups int) error {
	dir := filepath.Dir(basePath)
	ext := filepath.Ext(basePath)
	name := strings.TrimSuffix(filepath.Base(basePath), ext)
	backupPath := func(n int) string {
		return filepath.Join(dir, fmt.Sprintf("%s.%d%s", name, n, ext))
	}

	backups, err := listBackups(dir, name, ext)
	if err != nil {
		return err
	}
	slices.Sort(backups)
	slices.Reverse(backups)

	for _, n := range backups {
		if n >= maxBackups {
			os.Remove(backupPath(n))
			continue
		}
		if err := os.Rename(backupPath(n), backupPath(n+1)); err != nil {
			return fmt.Errorf("failed to rotate backup %d: %w", n, err)
		}
	}

	if _, err := os.Stat(basePath); err == nil {
		if err := os.Rename(basePath, backupPath(1)); err != nil {
			return fmt.Errorf("failed to rotate current log: %w", err)
		}
	}
	return nil
}

func listBackups(dir, name, ext string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var backups []int
	prefix := name + "."
	for _, entry := range entries {
		fname := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(fname, prefix) || !strings.HasSuffix(fname, ext) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(fname, prefix), ext))
		if err != nil {
			continue
		}
		backups = append(backups, n)
	}
	return backups, nil
}
