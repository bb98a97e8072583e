package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
)

// InsertAllocationPlan 保存一次完整的预测和分配结果，plan.Periods 与 plan.Records 必须一一对应
func (r *Repository) InsertAllocationPlan(plan *domain.AllocationPlan) error {
	ratios, err := json.Marshal(plan.Ratios)
	if err != nil {
		return err
	}

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
		INSERT INTO allocation_plans (name, labor_history_id, capacity, horizon, ratios, created_by)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6)
		RETURNING id, created_at, version
	`

	params := []any{plan.Name, plan.LaborHistoryID, plan.Capacity, plan.Horizon, string(ratios), plan.CreatedBy}
	dst := []any{&plan.ID, &plan.CreatedAt, &plan.Version}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(dst...); err != nil {
		return err
	}

	for i, record := range plan.Records {
		period := plan.Periods[i]

		query := `
			INSERT INTO allocation_plan_periods (
				allocation_plan_id,
				date,
				workers_needed,
				workers_needed_upper,
				workers_needed_lower,
				overtime_risk,
				shortage
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`

		params := []any{
			plan.ID,
			record.Date,
			record.WorkersNeeded,
			period.WorkersNeededUpper,
			period.WorkersNeededLower,
			record.OvertimeRisk,
			record.Shortage,
		}

		var periodID int64
		if err := tx.QueryRowContext(ctx, query, params...).Scan(&periodID); err != nil {
			return err
		}

		for function, workers := range record.Workers {
			query := `
				INSERT INTO allocation_plan_function_workers (allocation_plan_period_id, function_name, workers)
				VALUES ($1, $2, $3)
			`

			if _, err := tx.ExecContext(ctx, query, periodID, function, workers); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// GetAllAllocationPlans 只返回元数据，不包含每天的分配结果
func (r *Repository) GetAllAllocationPlans() ([]*domain.AllocationPlan, error) {
	query := `
		SELECT id, name, labor_history_id, capacity, horizon, ratios, created_by, created_at, version
		FROM allocation_plans
		ORDER BY created_at DESC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []*domain.AllocationPlan{}
	for rows.Next() {
		plan := &domain.AllocationPlan{}
		var ratios []byte

		dst := []any{
			&plan.ID,
			&plan.Name,
			&plan.LaborHistoryID,
			&plan.Capacity,
			&plan.Horizon,
			&ratios,
			&plan.CreatedBy,
			&plan.CreatedAt,
			&plan.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(ratios, &plan.Ratios); err != nil {
			return nil, err
		}

		plans = append(plans, plan)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return plans, nil
}

func (r *Repository) GetAllocationPlanByID(id int64) (*domain.AllocationPlan, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT name, labor_history_id, capacity, horizon, ratios, created_by, created_at, version
		FROM allocation_plans
		WHERE id = $1
	`

	plan := &domain.AllocationPlan{
		ID: id,
	}
	var ratios []byte

	dst := []any{
		&plan.Name,
		&plan.LaborHistoryID,
		&plan.Capacity,
		&plan.Horizon,
		&ratios,
		&plan.CreatedBy,
		&plan.CreatedAt,
		&plan.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(ratios, &plan.Ratios); err != nil {
		return nil, err
	}

	query = `
		SELECT
			app.id,
			app.date,
			app.workers_needed,
			app.workers_needed_upper,
			app.workers_needed_lower,
			app.overtime_risk,
			app.shortage,
			apfw.function_name,
			apfw.workers
		FROM allocation_plan_periods app
		LEFT JOIN allocation_plan_function_workers apfw ON app.id = apfw.allocation_plan_period_id
		WHERE app.allocation_plan_id = $1
		ORDER BY app.date
	`

	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plan.Periods = []domain.ForecastPeriod{}
	plan.Records = []domain.AllocationRecord{}
	indexes := make(map[int64]int) // periodID -> 在 Periods 和 Records 中的下标

	for rows.Next() {
		var row struct {
			periodID      int64
			date          time.Time
			workersNeeded float64
			upper         sql.NullFloat64
			lower         sql.NullFloat64
			overtimeRisk  bool
			shortage      int
			function      sql.NullString
			workers       sql.NullInt64
		}

		dst := []any{
			&row.periodID,
			&row.date,
			&row.workersNeeded,
			&row.upper,
			&row.lower,
			&row.overtimeRisk,
			&row.shortage,
			&row.function,
			&row.workers,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		idx, exists := indexes[row.periodID]
		if !exists {
			workersNeeded := row.workersNeeded
			period := domain.ForecastPeriod{
				Date:          row.date,
				WorkersNeeded: &workersNeeded,
			}
			if row.upper.Valid {
				period.WorkersNeededUpper = &row.upper.Float64
			}
			if row.lower.Valid {
				period.WorkersNeededLower = &row.lower.Float64
			}

			plan.Periods = append(plan.Periods, period)
			plan.Records = append(plan.Records, domain.AllocationRecord{
				Date:             row.date,
				WorkersNeeded:    row.workersNeeded,
				WorkersAvailable: plan.Capacity,
				Workers:          make(map[string]int),
				OvertimeRisk:     row.overtimeRisk,
				Shortage:         row.shortage,
			})

			idx = len(plan.Records) - 1
			indexes[row.periodID] = idx
		}

		if !row.function.Valid {
			continue
		}
		plan.Records[idx].Workers[row.function.String] = int(row.workers.Int64)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return plan, nil
}

func (r *Repository) DeleteAllocationPlan(id int64) error {
	query := `
		DELETE FROM allocation_plans WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}
