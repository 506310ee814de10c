package accounts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore backs balances with Postgres. Every balance move runs in a
// transaction holding a row lock, with a ledger line written in the same
// transaction; the trail and the balance can never disagree.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("accounts: open postgres: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

func (p *PGStore) Close() { p.pool.Close() }

func (p *PGStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.pool.Ping(ctx)
}

func (p *PGStore) Ensure(ctx context.Context, player string, initial uint64) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO accounts (player, balance) VALUES ($1, $2) ON CONFLICT (player) DO NOTHING`,
		player, int64(initial))
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 && initial > 0 {
		if err := insertEntry(ctx, tx, player, int64(initial), "initial_credit", "account", player); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (p *PGStore) Balance(ctx context.Context, player string) (uint64, error) {
	var bal int64
	err := p.pool.QueryRow(ctx, `SELECT balance FROM accounts WHERE player = $1`, player).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return uint64(bal), nil
}

func (p *PGStore) Credit(ctx context.Context, player string, amount uint64, entryType, refType, refID string) (uint64, error) {
	if amount > math.MaxInt64 {
		return 0, fmt.Errorf("accounts: credit amount %d out of range", amount)
	}
	return p.ApplyDelta(ctx, player, int64(amount), entryType, refType, refID)
}

func (p *PGStore) ApplyDelta(ctx context.Context, player string, delta int64, entryType, refType, refID string) (uint64, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var bal int64
	err = tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE player = $1 FOR UPDATE`, player).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	next := bal + delta
	if next < 0 {
		return 0, fmt.Errorf("%w: balance %d, delta %d", ErrInsufficient, bal, delta)
	}
	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE player = $2`, next, player); err != nil {
		return 0, err
	}
	if err := insertEntry(ctx, tx, player, delta, entryType, refType, refID); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return uint64(next), nil
}

func (p *PGStore) Entries(ctx context.Context, player string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.pool.Query(ctx,
		`SELECT id, player, type, amount, ref_type, ref_id, at
		   FROM account_entries WHERE player = $1 ORDER BY id DESC LIMIT $2`,
		player, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Player, &e.Type, &e.Amount, &e.RefType, &e.RefID, &e.At); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func insertEntry(ctx context.Context, tx pgx.Tx, player string, amount int64, entryType, refType, refID string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO account_entries (id, player, type, amount, ref_type, ref_id) VALUES ($1, $2, $3, $4, $5, $6)`,
		NewEntryID(), player, entryType, amount, refType, refID)
	return err
}
