package sqlite

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// backupDatabase copies the database file (and its WAL, if any) into a
// backup directory next to it, named YYYY-MM-DD-<dbname>. A "(k)" suffix is
// added when that name is taken. Returns the backup path.
func backupDatabase(dbPath string) (string, error) {
	dir := filepath.Join(filepath.Dir(dbPath), "backup")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	base := timeNow().Format(time.DateOnly) + "-" + filepath.Base(dbPath)
	target := filepath.Join(dir, base)
	for k := 1; ; k++ {
		if _, err := os.Stat(target); os.IsNotExist(err) {
			break
		}
		target = filepath.Join(dir, fmt.Sprintf("%s(%d)", base, k))
	}

	if err := copyFile(dbPath, target); err != nil {
		return "", err
	}
	if _, err := os.Stat(dbPath + "-wal"); err == nil {
		if err := copyFile(dbPath+"-wal", target+"-wal"); err != nil {
			return "", err
		}
	}
	return target, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("sync %s: %w", dst, err)
	}
	return out.Close()
}
