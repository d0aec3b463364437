// Package snapshot provides snapshot management for rendered descriptor files.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/harborline/stevedore/internal/fileutil"
)

const (
	// Prefix is the prefix for snapshot directory names.
	Prefix = "snapshot-"
	// DateFormat includes nanoseconds to prevent same-second collisions.
	DateFormat = "20060102-150405.000000000"
	// MaxSnapshots is the maximum number of snapshots to retain.
	MaxSnapshots = 20
	// MinFreeDiskBytes is the minimum free disk space required (100MB).
	MinFreeDiskBytes = 100 * 1024 * 1024
)

// Info holds metadata about a snapshot.
type Info struct {
	Name      string
	Path      string
	Created   time.Time
	FileCount int
}

func snapshotsDir(projectRoot string) string {
	return filepath.Join(projectRoot, ".stevedore", "snapshots")
}

func renderedDir(projectRoot string) string {
	return filepath.Join(projectRoot, "rendered")
}

// Create snapshots the current rendered directory before it is overwritten.
// Returns the snapshot name, or an empty string if there was nothing to snapshot.
func Create(projectRoot string) (string, error) {
	outDir := renderedDir(projectRoot)

	if !fileutil.DirHasContent(outDir) {
		return "", nil
	}

	snapDir := snapshotsDir(projectRoot)

	dirSize, err := getDirSize(outDir)
	if err != nil {
		return "", fmt.Errorf("calculate rendered directory size: %w", err)
	}

	if err := os.MkdirAll(snapDir, 0755); err != nil {
		return "", fmt.Errorf("create snapshots directory: %w", err)
	}

	if err := checkDiskSpace(snapDir, dirSize+MinFreeDiskBytes); err != nil {
		return "", fmt.Errorf("insufficient disk space for snapshot: %w", err)
	}

	snapshotName := Prefix + time.Now().Format(DateFormat)
	snapshotPath := filepath.Join(snapDir, snapshotName)

	if err := os.MkdirAll(snapshotPath, 0755); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}

	if err := fileutil.CopyDir(outDir, snapshotPath); err != nil {
		if cleanupErr := os.RemoveAll(snapshotPath); cleanupErr != nil {
			return "", fmt.Errorf("copy rendered output to snapshot: %w (cleanup also failed: %v)", err, cleanupErr)
		}
		return "", fmt.Errorf("copy rendered output to snapshot: %w", err)
	}

	if err := Cleanup(projectRoot); err != nil {
		// Retention failures should not fail the render
		fmt.Fprintf(os.Stderr, "warning: failed to cleanup old snapshots: %v\n", err)
	}

	return snapshotName, nil
}

// List returns available snapshots sorted by date, newest first.
func List(projectRoot string) ([]Info, error) {
	snapDir := snapshotsDir(projectRoot)

	entries, err := os.ReadDir(snapDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshots directory: %w", err)
	}

	var snapshots []Info
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), Prefix) {
			continue
		}

		path := filepath.Join(snapDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: cannot read snapshot %s: %v\n", entry.Name(), err)
			continue
		}

		timestamp := strings.TrimPrefix(entry.Name(), Prefix)
		created, err := time.Parse(DateFormat, timestamp)
		if err != nil {
			created = info.ModTime()
		}

		snapshots = append(snapshots, Info{
			Name:      entry.Name(),
			Path:      path,
			Created:   created,
			FileCount: countFiles(path),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Created.After(snapshots[j].Created)
	})

	return snapshots, nil
}

// Restore replaces the rendered directory with a snapshot's contents,
// backing up the current output first. A temp directory and atomic rename
// prevent broken state on failure.
func Restore(projectRoot, snapshotName string) error {
	snapDir := snapshotsDir(projectRoot)
	snapshotPath := filepath.Join(snapDir, snapshotName)
	outDir := renderedDir(projectRoot)

	if _, err := os.Stat(snapshotPath); os.IsNotExist(err) {
		return fmt.Errorf("snapshot not found: %s", snapshotName)
	}

	snapshotSize, err := getDirSize(snapshotPath)
	if err != nil {
		return fmt.Errorf("calculate snapshot size: %w", err)
	}
	if err := checkDiskSpace(filepath.Dir(outDir), snapshotSize+MinFreeDiskBytes); err != nil {
		return fmt.Errorf("insufficient disk space for restore: %w", err)
	}

	// Back up current output so a restore is itself reversible
	if fileutil.DirHasContent(outDir) {
		backupName := "pre-restore-" + time.Now().Format(DateFormat)
		backupPath := filepath.Join(snapDir, backupName)

		if err := os.MkdirAll(backupPath, 0755); err != nil {
			return fmt.Errorf("create backup directory: %w", err)
		}

		if err := fileutil.CopyDir(outDir, backupPath); err != nil {
			os.RemoveAll(backupPath)
			return fmt.Errorf("create pre-restore backup: %w", err)
		}
	}

	// UUID suffix prevents races with concurrent restores
	restoreID := uuid.New().String()[:8]
	tempDir := outDir + ".restore-temp-" + restoreID
	oldDir := outDir + ".restore-old-" + restoreID

	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return fmt.Errorf("create temp restore directory: %w", err)
	}

	if err := fileutil.CopyDir(snapshotPath, tempDir); err != nil {
		os.RemoveAll(tempDir)
		return fmt.Errorf("copy snapshot to temp: %w", err)
	}

	_, statErr := os.Stat(outDir)
	outputExists := statErr == nil

	if outputExists {
		if err := os.Rename(outDir, oldDir); err != nil {
			os.RemoveAll(tempDir)
			return fmt.Errorf("rename current output: %w", err)
		}
	}

	if err := os.Rename(tempDir, outDir); err != nil {
		if outputExists {
			if recoverErr := os.Rename(oldDir, outDir); recoverErr != nil {
				os.RemoveAll(tempDir)
				return fmt.Errorf("rename temp to output: %w (recovery also failed: %v)", err, recoverErr)
			}
		}
		os.RemoveAll(tempDir)
		return fmt.Errorf("rename temp to output: %w", err)
	}

	if outputExists {
		os.RemoveAll(oldDir)
	}

	return nil
}

// Cleanup removes snapshots beyond the retention limit.
// Continues deleting even if individual removals fail, returning a summary.
func Cleanup(projectRoot string) error {
	snapshots, err := List(projectRoot)
	if err != nil {
		return err
	}

	if len(snapshots) <= MaxSnapshots {
		return nil
	}

	var errs []string
	for _, snap := range snapshots[MaxSnapshots:] {
		if err := removeWithRetry(snap.Path, 3); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", snap.Name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to remove %d snapshot(s): %s", len(errs), strings.Join(errs, "; "))
	}

	return nil
}

func countFiles(dir string) int {
	count := 0
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			count++
		}
		return nil
	})
	return count
}

func checkDiskSpace(dir string, requiredBytes int64) error {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return fmt.Errorf("failed to check disk space: %w", err)
	}

	available := int64(stat.Bavail) * int64(stat.Bsize)
	if available < requiredBytes {
		return fmt.Errorf("need %d bytes, only %d available", requiredBytes, available)
	}
	return nil
}

func getDirSize(dir string) (int64, error) {
	var size int64
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// removeWithRetry retries removal for transient failures (10ms, 20ms, 40ms).
func removeWithRetry(path string, maxRetries int) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if err := os.RemoveAll(path); err != nil {
			lastErr = err
			time.Sleep(time.Duration(10*(1<<i)) * time.Millisecond)
			continue
		}
		return nil
	}
	return lastErr
}
