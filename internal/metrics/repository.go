package metrics

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/cpufreqctl/internal/errors"
	"codeberg.org/mutker/cpufreqctl/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

// repository buffers samples and writes them in one transaction once the
// buffer holds BatchSize samples, and on Close. A BatchSize of 0 or 1
// writes every sample immediately.
type repository struct {
	db     *sql.DB
	logger logger.Logger
	cfg    Config
	mu     sync.Mutex
	buffer []*Sample
	closed bool
}

func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := ValidateAndUpdateSchema(db, cfg.backupDir(), log); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Msg("Metrics repository initialized")

	return &repository{
		db:     db,
		logger: log,
		cfg:    cfg,
		buffer: make([]*Sample, 0, max(cfg.BatchSize, 1)),
	}, nil
}

func (r *repository) Record(sample *Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New().New(ErrStorageClose)
	}

	r.buffer = append(r.buffer, sample)
	if len(r.buffer) >= r.cfg.BatchSize {
		return r.flush()
	}

	return nil
}

// Recent returns up to n samples, oldest first. Buffered samples are
// flushed first so they are included.
func (r *repository) Recent(n int) ([]Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	errFactory := errors.New()

	if r.closed {
		return nil, errFactory.New(ErrStorageClose)
	}
	if n <= 0 {
		return nil, nil
	}
	if err := r.flush(); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(recentSamplesSQL, n)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageQuery, err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var (
			s         Sample
			ts        int64
			charging  int64
			frequency int64
			turbo     int64
		)
		if err := rows.Scan(&ts, &s.Profile, &charging, &s.CPUPercent, &s.LoadAverage,
			&s.Temperature, &s.Governor, &frequency, &turbo); err != nil {
			return nil, errFactory.Wrap(ErrStorageQuery, err)
		}
		s.Timestamp = time.UnixMilli(ts)
		s.Charging = charging == 1
		s.Frequency = uint32(frequency)
		s.Turbo = turbo == 1
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageQuery, err)
	}

	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}

	return samples, nil
}

func (r *repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	errFactory := errors.New()

	flushErr := r.flush()

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		r.logger.Debug().Err(err).Msg("Failed to checkpoint WAL")
	}

	if err := r.db.Close(); err != nil {
		return errFactory.WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	if flushErr != nil {
		return flushErr
	}

	r.logger.Debug().Msg("Metrics repository closed")

	return nil
}

// flush must be called with r.mu held.
func (r *repository) flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmt, err := tx.Prepare(insertSampleSQL)
	if err != nil {
		if err := tx.Rollback(); err != nil {
			r.logger.Debug().Err(err).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for _, s := range r.buffer {
		if _, err := stmt.Exec(
			s.Timestamp.UnixMilli(),
			s.Profile,
			boolToInt(s.Charging),
			s.CPUPercent,
			s.LoadAverage,
			int64(s.Temperature),
			s.Governor,
			int64(s.Frequency),
			boolToInt(s.Turbo),
		); err != nil {
			if err := tx.Rollback(); err != nil {
				r.logger.Debug().Err(err).Msg("Failed to roll back transaction")
			}
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	r.logger.Debug().Int("records", len(r.buffer)).Msg("Flushed samples to database")
	r.buffer = r.buffer[:0]

	return nil
}
