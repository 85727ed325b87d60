package session

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_bullion/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

type sqlQueries struct {
	load   string
	upsert string
	delete string
	purge  string
}

var queriesByDialect = map[Dialect]sqlQueries{
	DialectSQLite: {
		load: `SELECT payload FROM cart_sessions WHERE session_key = ?`,
		upsert: `INSERT INTO cart_sessions (session_key, payload, updated_at)
		         VALUES (?, ?, ?)
		         ON CONFLICT (session_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		delete: `DELETE FROM cart_sessions WHERE session_key = ?`,
		purge:  `DELETE FROM cart_sessions WHERE updated_at < ?`,
	},
	DialectPostgres: {
		load: `SELECT payload FROM cart_sessions WHERE session_key = $1`,
		upsert: `INSERT INTO cart_sessions (session_key, payload, updated_at)
		         VALUES ($1, $2, $3)
		         ON CONFLICT (session_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		delete: `DELETE FROM cart_sessions WHERE session_key = $1`,
		purge:  `DELETE FROM cart_sessions WHERE updated_at < $1`,
	},
}

// SQLStore persists carts in a relational table; sqlite and postgres share the schema.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	q       sqlQueries
}

func OpenSQLStore(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	q, ok := queriesByDialect[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == DialectSQLite {
		// every new connection to :memory: is a fresh database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(100)
		db.SetMaxIdleConns(10)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLStore{db: db, dialect: dialect, q: q}, nil
}

func (s *SQLStore) RunMigrations() error {
	var (
		driver database.Driver
		err    error
	)
	switch s.dialect {
	case DialectSQLite:
		driver, err = sqlite.WithInstance(s.db, &sqlite.Config{
			MigrationsTable: "cart_schema_migrations",
		})
	case DialectPostgres:
		driver, err = postgres.WithInstance(s.db, &postgres.Config{
			MigrationsTable: "cart_schema_migrations",
		})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(s.dialect), driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (s *SQLStore) Load(ctx context.Context, sessionID string) ([]domain.CartLine, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, s.q.load, cartKey(sessionID)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return []domain.CartLine{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	return decodeLines([]byte(payload))
}

func (s *SQLStore) Save(ctx context.Context, sessionID string, lines []domain.CartLine) error {
	data, err := encodeLines(lines)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.q.upsert, cartKey(sessionID), string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, s.q.delete, cartKey(sessionID)); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// PurgeStale removes carts not written since the cutoff and reports how many went.
func (s *SQLStore) PurgeStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.q.purge, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge carts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged carts: %w", err)
	}
	return n, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
