package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/listenupapp/doujinshelf/internal/backup/export"
	backupimport "github.com/listenupapp/doujinshelf/internal/backup/import"
	"github.com/listenupapp/doujinshelf/internal/errors"
)

const (
	filePrefix = "export-"
	fileSuffix = ".json"
)

// Store is what export and import need from the gallery store.
type Store interface {
	export.Lister
	backupimport.Store
}

// Hasher provides chapter digests for identifiers.
type Hasher interface {
	export.Hasher
}

// BackupService manages export files.
type BackupService struct {
	backupDir string
	logger    *slog.Logger
	exporter  *export.Exporter
	importer  *backupimport.Importer
	now       func() time.Time
}

// NewBackupService creates a BackupService writing under backupDir.
func NewBackupService(s Store, hasher Hasher, backupDir string, logger *slog.Logger) *BackupService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BackupService{
		backupDir: backupDir,
		logger:    logger,
		exporter:  export.New(s, hasher, logger),
		importer:  backupimport.New(s, hasher, logger),
		now:       time.Now,
	}
}

// Create writes a new export file.
func (s *BackupService) Create(ctx context.Context, opts BackupOptions) (*BackupResult, error) {
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "create backup dir")
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		outputPath = s.nextPath()
	}

	s.logger.Info("creating backup", "output", outputPath, "galleries", len(opts.IDs))

	result, err := s.exporter.Export(ctx, export.Options{OutputPath: outputPath, IDs: opts.IDs})
	if err != nil {
		return nil, err
	}

	s.logger.Info("backup complete",
		"path", result.Path,
		"size", result.Size,
		"duration", result.Duration,
		"checksum", result.Checksum)

	return &BackupResult{
		Path:     result.Path,
		Size:     result.Size,
		Count:    result.Count,
		Unhashed: result.Unhashed,
		Duration: result.Duration,
		Checksum: result.Checksum,
	}, nil
}

// nextPath names a new export file by time, adding (k) when two exports
// land in the same second.
func (s *BackupService) nextPath() string {
	base := filePrefix + s.now().Format("2006-01-02-150405")
	path := filepath.Join(s.backupDir, base+fileSuffix)
	for k := 1; ; k++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(s.backupDir, fmt.Sprintf("%s(%d)%s", base, k, fileSuffix))
	}
}

// List returns all export files, newest first.
func (s *BackupService) List(ctx context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CodeIO, "read backup dir")
	}

	var backups []BackupInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		backups = append(backups, BackupInfo{
			ID:        strings.TrimSuffix(name, fileSuffix),
			Path:      filepath.Join(s.backupDir, name),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	// Newest first; ids sort by time too
	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].CreatedAt.After(backups[j].CreatedAt)
		}
		return backups[i].ID > backups[j].ID
	})

	return backups, nil
}

// Get returns an export file by ID.
func (s *BackupService) Get(ctx context.Context, id string) (*BackupInfo, error) {
	path := s.GetPath(id)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBackupNotFound
		}
		return nil, errors.Wrap(err, errors.CodeIO, "stat backup")
	}

	return &BackupInfo{
		ID:        id,
		Path:      path,
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}

// Delete removes an export file.
func (s *BackupService) Delete(ctx context.Context, id string) error {
	info, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := os.Remove(info.Path); err != nil {
		return errors.Wrap(err, errors.CodeIO, "delete backup")
	}
	return nil
}

// GetPath returns the file path for a backup ID.
func (s *BackupService) GetPath(id string) string {
	return filepath.Join(s.backupDir, filepath.Base(id)+fileSuffix)
}

// Restore imports an export file. ref is a backup ID or a file path.
func (s *BackupService) Restore(ctx context.Context, ref string, opts RestoreOptions) (*RestoreResult, error) {
	path := ref
	if info, err := s.Get(ctx, ref); err == nil {
		path = info.Path
	}

	s.logger.Info("starting restore",
		"path", path,
		"merge_strategy", opts.MergeStrategy,
		"dry_run", opts.DryRun)

	return s.importer.Import(ctx, path, backupimport.Options{
		MergeStrategy: opts.MergeStrategy,
		DryRun:        opts.DryRun,
	})
}
