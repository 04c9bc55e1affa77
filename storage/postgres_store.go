package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"rental-tracker/models"
)

// PostgresStore persists listing rows to PostgreSQL. Position is kept in an
// explicit row_index column so the tabular contract survives deletes.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresStore.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			row_index       INTEGER      NOT NULL UNIQUE,
			url             TEXT         PRIMARY KEY,
			address         TEXT         NOT NULL DEFAULT '',
			price           TEXT         NOT NULL DEFAULT '',
			beds            TEXT         NOT NULL DEFAULT '',
			baths           TEXT         NOT NULL DEFAULT '',
			sqft            TEXT         NOT NULL DEFAULT '',
			house_type      TEXT         NOT NULL DEFAULT '',
			description     TEXT         NOT NULL DEFAULT '',
			amenities       TEXT         NOT NULL DEFAULT '',
			available_date  TEXT         NOT NULL DEFAULT '',
			parking         TEXT         NOT NULL DEFAULT '',
			utilities       TEXT         NOT NULL DEFAULT '',
			contact_info    TEXT         NOT NULL DEFAULT '',
			appointment_url TEXT         NOT NULL DEFAULT '',
			scraped_at      TEXT         NOT NULL DEFAULT '',
			notes           TEXT         NOT NULL DEFAULT '',
			decision        VARCHAR(32)  NOT NULL DEFAULT 'Pending Review',
			updated_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listings_decision ON listings(decision);
	`)
	return err
}

func columnList() string {
	return strings.Join(models.FieldNames(), ", ")
}

func placeholders(start, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(ph, ",")
}

func rowArgs(row []string) []interface{} {
	padded := models.PadRow(row)
	args := make([]interface{}, len(padded))
	for i, v := range padded {
		args[i] = v
	}
	return args
}

func (ps *PostgresStore) FindRow(ctx context.Context, url string) (int, bool, error) {
	var idx int
	err := ps.db.QueryRowContext(ctx, `SELECT row_index FROM listings WHERE url = $1`, url).Scan(&idx)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("postgres: find row: %w", err)
	}
	return idx, true, nil
}

func (ps *PostgresStore) ReadAllRows(ctx context.Context) ([][]string, error) {
	rows, err := ps.db.QueryContext(ctx,
		`SELECT `+columnList()+` FROM listings ORDER BY row_index`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		vals := make([]string, models.FieldCount)
		ptrs := make([]interface{}, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		out = append(out, vals)
	}
	return out, rows.Err()
}

func (ps *PostgresStore) WriteRow(ctx context.Context, index int, row []string) error {
	sets := make([]string, models.FieldCount)
	for i, f := range models.FieldNames() {
		sets[i] = fmt.Sprintf("%s = $%d", f, i+1)
	}
	args := append(rowArgs(row), index)
	res, err := ps.db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE listings SET %s, updated_at = NOW() WHERE row_index = $%d`,
		strings.Join(sets, ", "), models.FieldCount+1,
	), args...)
	if err != nil {
		return fmt.Errorf("postgres: write row %d: %w", index, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("postgres: write row %d: %w", index, ErrRowOutOfRange)
	}
	return nil
}

func (ps *PostgresStore) AppendRow(ctx context.Context, row []string) (int, error) {
	var idx int
	query := fmt.Sprintf(`
		INSERT INTO listings (row_index, %s)
		SELECT COALESCE(MAX(row_index) + 1, 0), %s FROM listings
		RETURNING row_index
	`, columnList(), placeholders(1, models.FieldCount))
	if err := ps.db.QueryRowContext(ctx, query, rowArgs(row)...).Scan(&idx); err != nil {
		return 0, fmt.Errorf("postgres: append row: %w", err)
	}
	return idx, nil
}

// DeleteRows removes the range and shifts later rows up inside one transaction.
func (ps *PostgresStore) DeleteRows(ctx context.Context, from, to int) error {
	if from < 0 || from > to {
		return fmt.Errorf("postgres: delete rows %d..%d: %w", from, to, ErrRowOutOfRange)
	}
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: delete rows: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM listings WHERE row_index BETWEEN $1 AND $2`, from, to); err != nil {
		return fmt.Errorf("postgres: delete rows: %w", err)
	}
	// Two steps through negative indexes so the UNIQUE constraint never sees a clash.
	shift := to - from + 1
	if _, err := tx.ExecContext(ctx,
		`UPDATE listings SET row_index = -(row_index - $1) - 1 WHERE row_index > $2`, shift, to); err != nil {
		return fmt.Errorf("postgres: shift rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE listings SET row_index = -row_index - 1 WHERE row_index < 0`); err != nil {
		return fmt.Errorf("postgres: shift rows: %w", err)
	}
	return tx.Commit()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
