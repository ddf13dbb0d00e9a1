package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lottopipe/lottopipe/internal/core/domain"
)

// DrawRepo stores validated draws keyed by round.
type DrawRepo struct {
	db *DB
}

// NewDrawRepo creates a draw repository over the archive database.
func NewDrawRepo(db *DB) *DrawRepo {
	return &DrawRepo{db: db}
}

type drawRow struct {
	Round   int    `db:"round"`
	Date    string `db:"draw_date"`
	Numbers []byte `db:"numbers"`
	Bonus   int    `db:"bonus"`
	Prizes  []byte `db:"prizes"`
}

func toRow(d domain.DrawResult) (drawRow, error) {
	numbers, err := json.Marshal(d.Numbers)
	if err != nil {
		return drawRow{}, err
	}
	prizes, err := json.Marshal(d.Prizes)
	if err != nil {
		return drawRow{}, err
	}
	return drawRow{Round: d.Round, Date: d.Date, Numbers: numbers, Bonus: d.Bonus, Prizes: prizes}, nil
}

func (r drawRow) toDomain() (domain.DrawResult, error) {
	d := domain.DrawResult{Round: r.Round, Date: r.Date, Bonus: r.Bonus}
	if err := json.Unmarshal(r.Numbers, &d.Numbers); err != nil {
		return domain.DrawResult{}, fmt.Errorf("decode numbers for round %d: %w", r.Round, err)
	}
	if err := json.Unmarshal(r.Prizes, &d.Prizes); err != nil {
		return domain.DrawResult{}, fmt.Errorf("decode prizes for round %d: %w", r.Round, err)
	}
	return d, nil
}

const upsertDraw = `
	INSERT INTO draws (round, draw_date, numbers, bonus, prizes)
	VALUES (:round, :draw_date, :numbers, :bonus, :prizes)
	ON CONFLICT (round) DO UPDATE SET
		draw_date = EXCLUDED.draw_date,
		numbers   = EXCLUDED.numbers,
		bonus     = EXCLUDED.bonus,
		prizes    = EXCLUDED.prizes
`

// Save upserts one validated draw.
func (r *DrawRepo) Save(ctx context.Context, d domain.DrawResult) error {
	row, err := toRow(d)
	if err != nil {
		return err
	}
	if _, err := r.db.NamedExecContext(ctx, upsertDraw, row); err != nil {
		return fmt.Errorf("failed to save draw %d: %w", d.Round, err)
	}
	return nil
}

// SaveBatch upserts a batch of validated draws in one transaction.
func (r *DrawRepo) SaveBatch(ctx context.Context, draws []domain.DrawResult) error {
	if len(draws) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, d := range draws {
		row, err := toRow(d)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, upsertDraw, row); err != nil {
			return fmt.Errorf("failed to save draw %d: %w", d.Round, err)
		}
	}
	return tx.Commit()
}

// Range returns the archived draws in [startRound, endRound], newest
// first. Rounds missing from the archive are simply absent.
func (r *DrawRepo) Range(ctx context.Context, startRound, endRound int) ([]domain.DrawResult, error) {
	var rows []drawRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT round, draw_date, numbers, bonus, prizes
		FROM draws
		WHERE round BETWEEN $1 AND $2
		ORDER BY round DESC
	`, startRound, endRound)
	if err != nil {
		return nil, fmt.Errorf("failed to query draw range: %w", err)
	}

	draws := make([]domain.DrawResult, 0, len(rows))
	for _, row := range rows {
		d, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		draws = append(draws, d)
	}
	return draws, nil
}

// Latest returns the newest archived draw, or false when the archive is
// empty.
func (r *DrawRepo) Latest(ctx context.Context) (domain.DrawResult, bool, error) {
	var row drawRow
	err := r.db.GetContext(ctx, &row, `
		SELECT round, draw_date, numbers, bonus, prizes
		FROM draws
		ORDER BY round DESC
		LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DrawResult{}, false, nil
	}
	if err != nil {
		return domain.DrawResult{}, false, fmt.Errorf("failed to query latest draw: %w", err)
	}

	d, err := row.toDomain()
	if err != nil {
		return domain.DrawResult{}, false, err
	}
	return d, true, nil
}
