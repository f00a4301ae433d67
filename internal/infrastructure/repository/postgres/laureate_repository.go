package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
)

type LaureateRepository struct {
	db *sql.DB
}

func NewLaureateRepository(db *sql.DB) *LaureateRepository {
	return &LaureateRepository{db: db}
}

func (r *LaureateRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082902)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS laureates (
	full_name TEXT PRIMARY KEY,
	last_name TEXT NOT NULL,
	year_awarded INTEGER NOT NULL,
	country TEXT,
	gender TEXT,
	language TEXT
);

CREATE INDEX IF NOT EXISTS idx_laureates_last_name ON laureates(last_name);
CREATE INDEX IF NOT EXISTS idx_laureates_year ON laureates(year_awarded);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *LaureateRepository) List(ctx context.Context) ([]domain.Laureate, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT full_name, last_name, year_awarded, country, gender, language
FROM laureates
ORDER BY year_awarded, full_name
`)
	if err != nil {
		return nil, fmt.Errorf("list laureates: %w", err)
	}
	defer rows.Close()

	var out []domain.Laureate
	for rows.Next() {
		var l domain.Laureate
		if err := rows.Scan(&l.FullName, &l.LastName, &l.YearAwarded, &l.Country, &l.Gender, &l.Language); err != nil {
			return nil, fmt.Errorf("scan laureate: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate laureates: %w", err)
	}
	return out, nil
}

func (r *LaureateRepository) GetByName(ctx context.Context, fullName string) (*domain.Laureate, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT full_name, last_name, year_awarded, country, gender, language
FROM laureates
WHERE full_name = $1
`, fullName)

	var l domain.Laureate
	err := row.Scan(&l.FullName, &l.LastName, &l.YearAwarded, &l.Country, &l.Gender, &l.Language)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapErrorf(domain.ErrDocumentNotFound, "get laureate", "%s", fullName)
		}
		return nil, fmt.Errorf("scan laureate: %w", err)
	}
	return &l, nil
}

func (r *LaureateRepository) Upsert(ctx context.Context, laureates []domain.Laureate) error {
	if len(laureates) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `
INSERT INTO laureates (full_name, last_name, year_awarded, country, gender, language)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (full_name) DO UPDATE SET
	last_name = EXCLUDED.last_name,
	year_awarded = EXCLUDED.year_awarded,
	country = EXCLUDED.country,
	gender = EXCLUDED.gender,
	language = EXCLUDED.language
`
	for _, l := range laureates {
		lastName := l.LastName
		if lastName == "" {
			lastName = domain.SurnameOf(l.FullName)
		}
		if _, err := tx.ExecContext(ctx, query, l.FullName, lastName, l.YearAwarded, l.Country, l.Gender, l.Language); err != nil {
			return fmt.Errorf("upsert laureate %s: %w", l.FullName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	return nil
}
