package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Backup writes a consistent snapshot of the database into dir using
// VACUUM INTO, which is safe while the WAL is live. Returns the snapshot path.
func (d *Database) Backup(ctx context.Context, dir string) (string, error) {
	if d == nil || d.DB == nil {
		return "", fmt.Errorf("database is not initialized")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	// Millisecond precision keeps names unique for back-to-back snapshots
	// while still sorting chronologically.
	name := fmt.Sprintf("trading-%s.db", time.Now().Format("20060102-150405.000"))
	dest := filepath.Join(dir, name)

	// VACUUM INTO refuses to overwrite; the timestamped name keeps it fresh.
	if _, err := d.DB.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", dest, err)
	}
	return dest, nil
}

// PruneBackups keeps the newest keep snapshots in dir and removes the rest.
// Returns the number of files removed.
func PruneBackups(dir string, keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read backup directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !isBackupName(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	// Timestamped names sort chronologically.
	sort.Strings(names)

	removed := 0
	for len(names) > keep {
		victim := names[0]
		names = names[1:]
		if err := os.Remove(filepath.Join(dir, victim)); err != nil {
			return removed, fmt.Errorf("remove old backup %s: %w", victim, err)
		}
		removed++
	}
	return removed, nil
}

// BackupInfo describes one snapshot file.
type BackupInfo struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// ListBackups returns the snapshots in dir, newest first. A missing
// directory lists as empty.
func ListBackups(dir string) ([]BackupInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var out []BackupInfo
	for _, e := range entries {
		if e.IsDir() || !isBackupName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, BackupInfo{
			Name:      e.Name(),
			Path:      filepath.Join(dir, e.Name()),
			SizeBytes: info.Size(),
			CreatedAt: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

func isBackupName(name string) bool {
	return strings.HasPrefix(name, "trading-") && strings.HasSuffix(name, ".db")
}
