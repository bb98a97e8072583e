package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
)

func (r *Repository) CreateLaborHistory(history *domain.LaborHistory) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO labor_histories (name, description, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version
	`

	dst := []any{&history.ID, &history.CreatedAt, &history.Version}
	if err := tx.QueryRowContext(ctx, query, history.Name, history.Description, history.CreatedBy).Scan(dst...); err != nil {
		return err
	}

	for _, point := range history.Points {
		query := `
			INSERT INTO labor_history_points (labor_history_id, date, workers_needed)
			VALUES ($1, $2, $3)
		`

		if _, err := tx.ExecContext(ctx, query, history.ID, point.Date, point.WorkersNeeded); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// GetAllLaborHistories 只返回元数据，不包含每天的数据
func (r *Repository) GetAllLaborHistories() ([]*domain.LaborHistory, error) {
	query := `
		SELECT id, name, description, created_by, created_at, version
		FROM labor_histories
		ORDER BY created_at DESC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	histories := []*domain.LaborHistory{}
	for rows.Next() {
		history := &domain.LaborHistory{}
		dst := []any{
			&history.ID,
			&history.Name,
			&history.Description,
			&history.CreatedBy,
			&history.CreatedAt,
			&history.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		histories = append(histories, history)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return histories, nil
}

func (r *Repository) GetLaborHistoryByID(id int64) (*domain.LaborHistory, error) {
	query := `
		SELECT
			lh.name,
			lh.description,
			lh.created_by,
			lh.created_at,
			lh.version,
			lhp.date,
			lhp.workers_needed
		FROM labor_histories lh
		LEFT JOIN labor_history_points lhp ON lh.id = lhp.labor_history_id
		WHERE lh.id = $1
		ORDER BY lhp.date
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := &domain.LaborHistory{
		ID:     id,
		Points: []domain.LaborHistoryPoint{},
	}

	found := false
	for rows.Next() {
		var date sql.NullTime
		var workersNeeded sql.NullFloat64

		dst := []any{
			&history.Name,
			&history.Description,
			&history.CreatedBy,
			&history.CreatedAt,
			&history.Version,
			&date,
			&workersNeeded,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		found = true

		if !date.Valid {
			// 没有任何数据的历史，在业务上不会出现
			continue
		}

		history.Points = append(history.Points, domain.LaborHistoryPoint{
			Date:          date.Time,
			WorkersNeeded: workersNeeded.Float64,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !found {
		return nil, sql.ErrNoRows
	}

	return history, nil
}

func (r *Repository) UpdateLaborHistory(history *domain.LaborHistory) error {
	query := `
		UPDATE labor_histories
		SET
			name = $1,
			description = $2,
			version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	params := []any{history.Name, history.Description, history.ID, history.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&history.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteLaborHistory(id int64) error {
	query := `
		DELETE FROM labor_histories WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}
