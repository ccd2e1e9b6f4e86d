package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

var autoBackupName = regexp.MustCompile(`^AutoBackup_\d{8}_\d{6}\.svdata$`)

// AutoBackupName returns the file name used for an automatic backup taken
// at t, in local time.
func AutoBackupName(t time.Time) string {
	return "AutoBackup_" + t.Format("20060102_150405") + ".svdata"
}

// AutoBackup exports everything to dir/AutoBackup_YYYYMMDD_HHMMSS.svdata.
func (e *Engine) AutoBackup(ctx context.Context, dir string) (*ExportResult, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("backup directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	now := e.now()
	res, err := e.ExportAll(ctx, filepath.Join(dir, AutoBackupName(now)))
	if err != nil {
		return nil, err
	}
	e.metrics.MarkAutoBackup(now)
	return res, nil
}

// PruneAutoBackups keeps the newest max automatic backups in dir, ordered by
// modification time, and deletes the rest together with any .csv sidecar.
// Other files are never touched. max <= 0 keeps everything. It returns the
// removed paths.
func PruneAutoBackups(dir string, max int) ([]string, error) {
	if max <= 0 {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	type candidate struct {
		path    string
		name    string
		modTime time.Time
	}
	var backups []candidate
	for _, entry := range entries {
		if entry.IsDir() || !autoBackupName.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, candidate{
			path:    filepath.Join(dir, entry.Name()),
			name:    entry.Name(),
			modTime: info.ModTime(),
		})
	}
	if len(backups) <= max {
		return nil, nil
	}

	// Newest first; the timestamped name breaks ties.
	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].modTime.Equal(backups[j].modTime) {
			return backups[i].modTime.After(backups[j].modTime)
		}
		return backups[i].name > backups[j].name
	})

	var removed []string
	for _, b := range backups[max:] {
		if err := os.Remove(b.path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", b.name, err)
		}
		removed = append(removed, b.path)
		sidecar := strings.TrimSuffix(b.path, ".svdata") + ".csv"
		if err := os.Remove(sidecar); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", filepath.Base(sidecar), err)
		}
	}
	return removed, nil
}
