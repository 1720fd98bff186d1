package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/forge/internal/domain/storage"
)

// Store hands out repositories bound to the pool or to a single transaction.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Repositories() storage.Repositories {
	return repositoriesFor(s.db)
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, repos storage.Repositories) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classifyTxError(fmt.Errorf("begin tx: %w", err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, repositoriesFor(tx)); err != nil {
		return classifyTxError(err)
	}
	if err = tx.Commit(); err != nil {
		return classifyTxError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func repositoriesFor(q queryer) storage.Repositories {
	return storage.Repositories{
		Users:       &UserRepository{db: q},
		Weeks:       &WeekRepository{db: q},
		Commitments: &CommitmentRepository{db: q},
		Workouts:    &WorkoutRepository{db: q},
		Ledger:      &LedgerRepository{db: q},
		Inbox:       &InboxRepository{db: q},
	}
}
