package journal

import (
	"context"
	"time"

	"codeberg.org/mutker/trapbridge/internal/errors"
	"codeberg.org/mutker/trapbridge/internal/logger"
)

type service struct {
	repo Repository
	cfg  Config
}

type noopJournal struct{}

func NewService(cfg Config) (Journal, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		logger.Debug().Msg("Journal disabled, using no-op journal")
		return &noopJournal{}, nil
	}

	repo, err := NewRepository(cfg, logger.Default())
	if err != nil {
		logger.Debug().Err(err).Msg("Failed to create journal repository")
		return nil, err
	}

	logger.Debug().
		Str("db_path", cfg.DBPath).
		Bool("enabled", cfg.Enabled).
		Msg("Journal service initialized successfully")

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, entry *Entry) error {
	errFactory := errors.New()

	if entry == nil || !entry.Kind.Valid() {
		return errFactory.New(ErrInvalidEntry)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Record(entry); err != nil {
			return errFactory.Wrap(ErrRecordFailed, err)
		}
	}

	return nil
}

func (s *service) Entries(ctx context.Context, kind Kind) ([]Entry, error) {
	if kind != KindAny && !kind.Valid() {
		return nil, errors.New().New(ErrInvalidEntry)
	}
	return s.repo.Entries(ctx, kind)
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrServiceShutdown, err)
	}
	return nil
}

func (*noopJournal) Record(_ context.Context, _ *Entry) error {
	return nil
}

func (*noopJournal) Entries(_ context.Context, _ Kind) ([]Entry, error) {
	return nil, nil
}

func (*noopJournal) Close() error {
	return nil
}
