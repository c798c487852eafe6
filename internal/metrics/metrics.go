// Package metrics keeps a history of applied decisions in SQLite.
package metrics

import (
	"context"

	"codeberg.org/mutker/cpufreqctl/internal/errors"
	"codeberg.org/mutker/cpufreqctl/internal/logger"
)

type service struct {
	repo Repository
}

type noopCollector struct{}

// NewService returns a SQLite-backed collector, or a no-op collector when
// cfg is disabled.
func NewService(cfg Config, log logger.Logger) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Metrics collection disabled, using no-op collector")
		return &noopCollector{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create metrics repository")
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Int("batch_size", cfg.BatchSize).
		Msg("Metrics service initialized")

	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, sample *Sample) error {
	errFactory := errors.New()

	if sample == nil {
		return errFactory.New(ErrInvalidSample)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationAbort, ctx.Err())
	default:
	}

	if err := s.repo.Record(sample); err != nil {
		return errFactory.Wrap(ErrCollection, err)
	}

	return nil
}

func (s *service) Recent(ctx context.Context, n int) ([]Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.New().Wrap(ErrOperationAbort, err)
	}

	return s.repo.Recent(n)
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	return nil
}

func (*noopCollector) Record(_ context.Context, _ *Sample) error {
	return nil
}

func (*noopCollector) Recent(_ context.Context, _ int) ([]Sample, error) {
	return nil, errors.New().New(ErrDisabled)
}

func (*noopCollector) Close() error {
	return nil
}
