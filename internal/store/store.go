package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"math"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/proofslot/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - accounts and balances tables
const currentSchemaVersion = 1

// Store is the SQLite backend.
// Uses WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

var _ Backend = (*Store)(nil)

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Update runs fn in a read-write transaction.
func (s *Store) Update(ctx context.Context, fn func(Txn) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(&sqlTxn{ctx: ctx, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update: commit: %w", err)
	}
	return nil
}

// View runs fn in a transaction that is always rolled back.
func (s *Store) View(ctx context.Context, fn func(Txn) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("view: begin tx: %w", err)
	}
	defer tx.Rollback()

	return fn(&sqlTxn{ctx: ctx, tx: tx})
}

// sqlTxn implements Txn over a database/sql transaction.
type sqlTxn struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *sqlTxn) Account(addr ir.Address) (Account, error) {
	acc := Account{Address: addr}
	var owner, payer []byte
	var lamports int64
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT owner, payer, lamports, data
		FROM accounts
		WHERE address = ?
	`, addr[:]).Scan(&owner, &payer, &lamports, &acc.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("read account: %w", err)
	}

	if acc.Owner, err = ir.IdentityFromBytes(owner); err != nil {
		return Account{}, fmt.Errorf("read account: owner: %w", err)
	}
	if acc.Payer, err = ir.IdentityFromBytes(payer); err != nil {
		return Account{}, fmt.Errorf("read account: payer: %w", err)
	}
	acc.Lamports = uint64(lamports)
	return acc, nil
}

func (t *sqlTxn) PutAccount(acc Account) error {
	lamports, err := toSQLInt(acc.Lamports)
	if err != nil {
		return fmt.Errorf("write account: %w", err)
	}
	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO accounts (address, owner, payer, lamports, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			owner = excluded.owner,
			payer = excluded.payer,
			lamports = excluded.lamports,
			data = excluded.data
	`,
		acc.Address[:],
		acc.Owner[:],
		acc.Payer[:],
		lamports,
		acc.Data,
	)
	if err != nil {
		return fmt.Errorf("write account: %w", err)
	}
	return nil
}

func (t *sqlTxn) Balance(id ir.Identity) (uint64, error) {
	var lamports int64
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT lamports FROM balances WHERE identity = ?
	`, id[:]).Scan(&lamports)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return uint64(lamports), nil
}

func (t *sqlTxn) SetBalance(id ir.Identity, lamports uint64) error {
	v, err := toSQLInt(lamports)
	if err != nil {
		return fmt.Errorf("write balance: %w", err)
	}
	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO balances (identity, lamports)
		VALUES (?, ?)
		ON CONFLICT(identity) DO UPDATE SET lamports = excluded.lamports
	`, id[:], v)
	if err != nil {
		return fmt.Errorf("write balance: %w", err)
	}
	return nil
}

func (t *sqlTxn) CountAccounts() (int, error) {
	var n int
	if err := t.tx.QueryRowContext(t.ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// toSQLInt guards the INTEGER columns, which are signed 64-bit.
func toSQLInt(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("lamports %d exceed SQLite INTEGER range", v)
	}
	return int64(v), nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
// A database written by a newer release is refused rather than downgraded.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
