package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clientbook/internal/config"

	"github.com/rs/zerolog"
)

const backupFilePrefix = "clientbook_"

// BackupService snapshots the sqlite file on a schedule and prunes old
// snapshots past the retention window. The booking data is the only copy the
// provider has, so this runs from process start.
type BackupService struct {
	dbPath string
	cfg    config.BackupConfig
	logger zerolog.Logger
}

func NewBackupService(dbPath string, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	return &BackupService{
		dbPath: dbPath,
		cfg:    cfg,
		logger: logger.With().Str("component", "backup").Logger(),
	}
}

func (s *BackupService) interval() time.Duration {
	if s.cfg.Schedule == "" {
		return 24 * time.Hour
	}
	d, err := time.ParseDuration(s.cfg.Schedule)
	if err != nil {
		s.logger.Warn().Err(err).Str("schedule", s.cfg.Schedule).Msg("bad backup schedule, using 24h")
		return 24 * time.Hour
	}
	return d
}

// Start takes an initial snapshot, then repeats on the configured interval
// until the context is cancelled.
func (s *BackupService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		return
	}

	interval := s.interval()
	s.logger.Info().Dur("interval", interval).Msg("backup service started")

	if err := s.PerformBackup(); err != nil {
		s.logger.Error().Err(err).Msg("initial backup failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.PerformBackup(); err != nil {
				s.logger.Error().Err(err).Msg("scheduled backup failed")
			}
			s.CleanupOldBackups()
		}
	}
}

// PerformBackup snapshots via VACUUM INTO, which is safe against a live
// database. When that fails (older sqlite builds) it falls back to a raw file
// copy, acceptable here because this process is the only writer.
func (s *BackupService) PerformBackup() error {
	if err := os.MkdirAll(s.cfg.StoragePath, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	name := backupFilePrefix + time.Now().Format("20060102_150405") + ".db"
	dest := filepath.Join(s.cfg.StoragePath, name)

	src, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return fmt.Errorf("open source database: %w", err)
	}
	defer src.Close()

	if _, err := src.Exec(fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		s.logger.Warn().Err(err).Msg("VACUUM INTO failed, copying file instead")
		if err := copyFile(s.dbPath, dest); err != nil {
			return err
		}
	}

	s.logger.Info().Str("path", dest).Msg("backup written")
	return nil
}

// CleanupOldBackups removes snapshots older than the retention window.
func (s *BackupService) CleanupOldBackups() {
	if s.cfg.RetentionDays <= 0 {
		return
	}

	entries, err := os.ReadDir(s.cfg.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("read backup directory")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), backupFilePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.cfg.StoragePath, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Error().Err(err).Str("path", path).Msg("remove old backup")
			continue
		}
		s.logger.Info().Str("path", path).Msg("expired backup removed")
	}
}

func copyFile(srcPath, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open database file: %w", err)
	}
	defer src.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, src); err != nil {
		return fmt.Errorf("copy database file: %w", err)
	}
	return dest.Sync()
}
