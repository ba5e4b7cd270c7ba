// Package graph reads record counts from the knowledge graph database.
package graph

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/mutker/metrics-exporter/internal/errors"
	"codeberg.org/mutker/metrics-exporter/internal/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConns      = 4
	defaultHealthTimeout = 5 * time.Second

	countSoftwareStacksSQL = `
	SELECT COUNT(*)
	FROM python_software_stack
	WHERE software_stack_type = $1`
)

// StackType classifies python software stacks in the knowledge graph.
type StackType string

const (
	StackTypeUser    StackType = "USER"
	StackTypeInputs  StackType = "INPUTS"
	StackTypeAdvised StackType = "ADVISED"
)

func (s StackType) IsValid() bool {
	switch s {
	case StackTypeUser, StackTypeInputs, StackTypeAdvised:
		return true
	default:
		return false
	}
}

// Filter narrows a count to one category of records.
type Filter struct {
	StackType StackType
}

type Config struct {
	DSN           string
	MaxConns      int32
	HealthTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxConns:      defaultMaxConns,
		HealthTimeout: defaultHealthTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.DSN == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "knowledge graph DSN is required")
	}
	if c.MaxConns <= 0 {
		return errFactory.WithData(ErrInvalidConfig, c.MaxConns)
	}
	return nil
}

// querier is the part of pgxpool.Pool the store needs.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Store runs read-only queries against the knowledge graph.
type Store struct {
	db            querier
	close         func()
	healthTimeout time.Duration
}

func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	// the exporter only ever reads
	poolCfg.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errFactory.Wrap(ErrConnect, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errFactory.Wrap(ErrConnect, err)
	}

	logger.Info().
		Str("host", poolCfg.ConnConfig.Host).
		Str("database", poolCfg.ConnConfig.Database).
		Msg("Connected to knowledge graph")

	return &Store{db: pool, close: pool.Close, healthTimeout: cfg.HealthTimeout}, nil
}

// CountRecords returns the number of records matching f.
func (s *Store) CountRecords(ctx context.Context, f Filter) (int64, error) {
	errFactory := errors.New()

	if !f.StackType.IsValid() {
		return 0, errFactory.WithData(ErrInvalidStackType, string(f.StackType))
	}

	var count int64
	if err := s.db.QueryRow(ctx, countSoftwareStacksSQL, string(f.StackType)).Scan(&count); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return 0, errFactory.Wrap(ErrTimeout, err)
		}
		return 0, errFactory.WithData(ErrQueryFailed, struct {
			StackType string
			Error     string
		}{
			StackType: string(f.StackType),
			Error:     err.Error(),
		})
	}

	return count, nil
}

func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

func (s *Store) Ok() (bool, string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.healthTimeout)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		return false, fmt.Sprintf("Database ping failed: %v", err)
	}
	return true, "Database connection is healthy"
}

func (s *Store) ServiceName() string {
	return "KnowledgeGraph"
}
