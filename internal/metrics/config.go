package metrics

import (
	"path/filepath"

	"codeberg.org/mutker/cpufreqctl/internal/errors"
)

const (
	defaultDirPerm   = 0o755
	defaultDBPath    = "/var/lib/cpufreqctl/metrics.db"
	defaultBatchSize = 10
)

type Config struct {
	DBPath    string
	BatchSize int
	// BackupDir defaults to a backups directory next to DBPath.
	BackupDir string
	Enabled   bool
}

func DefaultConfig() Config {
	return Config{
		DBPath:    defaultDBPath,
		BatchSize: defaultBatchSize,
		Enabled:   false,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate when enabled
	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Value int
		}{
			Field: "batch_size",
			Value: c.BatchSize,
		})
	}

	return nil
}

func (c Config) backupDir() string {
	if c.BackupDir != "" {
		return c.BackupDir
	}

	return filepath.Join(filepath.Dir(c.DBPath), "backups")
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
