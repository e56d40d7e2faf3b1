package budget

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fundwise/fundwise/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var ErrPlanNotFound = errors.New("plan not found")
var ErrDeletingCurrentPlan = errors.New("cannot delete current plan")
var ErrBudgetPlanItemNotFound = errors.New("budget plan item not found")
var ErrCategoryAlreadyPlanned = errors.New("category already has a limit in this plan")

type Repository interface {
	StoreItem(ctx context.Context, userId int, item BudgetItem) (BudgetItem, error)
	GetPlan(ctx context.Context, userId int, planId int) (BudgetPlan, error)
	GetCurrentPlan(ctx context.Context, userId int) (BudgetPlan, error)
	ListPlans(ctx context.Context, userId int) ([]BudgetPlan, error)
	CreatePlan(ctx context.Context, userId int, plan BudgetPlan) (BudgetPlan, error)
	UpdatePlan(ctx context.Context, userId int, plan BudgetPlan) (BudgetPlan, error)
	DeletePlan(ctx context.Context, userId int, planId int) (bool, error)
	GetItem(ctx context.Context, userId int, itemId int) (BudgetItem, error)
	UpdateItem(ctx context.Context, userId int, item BudgetItem) (bool, error)
	UpdateItemPositions(ctx context.Context, userId int, positions []utils.Ordered) error
	DeleteItem(ctx context.Context, userId int, itemId int) (bool, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewBudgetPlanRepo(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) StoreItem(ctx context.Context, userId int, item BudgetItem) (BudgetItem, error) {
	query := `INSERT INTO budget_item (budget_plan_id, user_id, category_id, monthly_limit, position)
				SELECT plan.id, $2, $3, $4,
				       (SELECT COALESCE(MAX(position), 0) + $5 FROM budget_item WHERE budget_plan_id = plan.id)
				FROM budget_plan plan
				WHERE plan.id = $1 AND plan.user_id = $2
				RETURNING id, position`
	err := r.db.QueryRow(ctx, query,
		item.PlanId,
		userId,
		item.CategoryId,
		item.MonthlyLimit,
		utils.PositionStep,
	).Scan(&item.Id, &item.Position)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BudgetItem{}, ErrPlanNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return BudgetItem{}, ErrCategoryAlreadyPlanned
		}
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return BudgetItem{}, err
	}
	return item, nil
}

func (r *RepositoryImpl) GetPlan(ctx context.Context, userId int, planId int) (BudgetPlan, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return BudgetPlan{}, err
	}
	defer tx.Rollback(ctx)

	plan, err := r.getPlan(ctx, tx, userId, planId)
	if err != nil {
		return BudgetPlan{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return BudgetPlan{}, fmt.Errorf("could not commit transaction: %w", err)
	}
	return plan, nil
}

func (r *RepositoryImpl) getPlan(ctx context.Context, tx pgx.Tx, userId int, planId int) (BudgetPlan, error) {
	query := `SELECT
    			plan.name AS plan_name,
    			item.id AS item_id,
    			item.category_id,
    			item.monthly_limit,
    			item.position
               FROM budget_plan plan
			   LEFT JOIN budget_item item ON plan.id = item.budget_plan_id
               WHERE plan.user_id = $1 AND plan.id = $2 ORDER BY item.position, item.id`
	rows, err := tx.Query(ctx, query, userId, planId)
	if err != nil {
		err := fmt.Errorf("could not query budget plan: %w", err)
		log.Error(err)
		return BudgetPlan{}, err
	}
	defer rows.Close()

	var planName string
	foundPlan := false
	items := make([]BudgetItem, 0)
	for rows.Next() {
		foundPlan = true
		var (
			itemId       sql.NullInt64
			categoryId   sql.NullInt64
			monthlyLimit decimal.NullDecimal
			itemPosition sql.NullInt64
		)
		if err := rows.Scan(&planName, &itemId, &categoryId, &monthlyLimit, &itemPosition); err != nil {
			err := fmt.Errorf("error scanning row: %w", err)
			log.Error(err)
			return BudgetPlan{}, err
		}

		// a plan without items yields a single row of NULLs
		if !itemId.Valid {
			continue
		}
		items = append(items, BudgetItem{
			Id:           int(itemId.Int64),
			PlanId:       planId,
			CategoryId:   int(categoryId.Int64),
			MonthlyLimit: monthlyLimit.Decimal,
			Position:     int(itemPosition.Int64),
		})
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return BudgetPlan{}, err
	}
	if !foundPlan {
		return BudgetPlan{}, ErrPlanNotFound
	}

	currentPlanId, err := r.getCurrentPlanId(ctx, tx, userId)
	if err != nil {
		return BudgetPlan{}, err
	}
	return BudgetPlan{Id: planId, Name: planName, IsCurrent: currentPlanId == planId, Items: items}, nil
}

func (r *RepositoryImpl) GetCurrentPlan(ctx context.Context, userId int) (BudgetPlan, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return BudgetPlan{}, err
	}
	defer tx.Rollback(ctx)

	currentPlanId, err := r.getCurrentPlanId(ctx, tx, userId)
	if err != nil {
		return BudgetPlan{}, err
	}
	if currentPlanId == 0 {
		return BudgetPlan{}, ErrPlanNotFound
	}
	plan, err := r.getPlan(ctx, tx, userId, currentPlanId)
	if err != nil {
		return BudgetPlan{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return BudgetPlan{}, fmt.Errorf("could not commit transaction: %w", err)
	}
	return plan, nil
}

func (r *RepositoryImpl) ListPlans(ctx context.Context, userId int) ([]BudgetPlan, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	currentPlanId, err := r.getCurrentPlanId(ctx, tx, userId)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `SELECT plan.id, plan.name FROM budget_plan plan WHERE plan.user_id = $1 ORDER BY plan.created, plan.id`, userId)
	if err != nil {
		err := fmt.Errorf("could not query budget plans: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	plans := make([]BudgetPlan, 0)
	for rows.Next() {
		var planId int
		var planName string
		if err := rows.Scan(&planId, &planName); err != nil {
			err := fmt.Errorf("error scanning row: %w", err)
			log.Error(err)
			return nil, err
		}
		plans = append(plans, BudgetPlan{Id: planId, IsCurrent: currentPlanId == planId, Name: planName})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("could not commit transaction: %w", err)
	}
	return plans, nil
}

// CreatePlan stores a plan. The first plan of a user becomes the current one.
func (r *RepositoryImpl) CreatePlan(ctx context.Context, userId int, plan BudgetPlan) (BudgetPlan, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return BudgetPlan{}, err
	}
	defer tx.Rollback(ctx)

	plansCount, err := r.countPlans(ctx, tx, userId)
	if err != nil {
		return BudgetPlan{}, err
	}
	if plansCount == 0 {
		plan.IsCurrent = true
	}

	var planId int
	err = tx.QueryRow(ctx, `INSERT INTO budget_plan (name, user_id) VALUES ($1, $2) RETURNING id`, plan.Name, userId).Scan(&planId)
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return BudgetPlan{}, err
	}
	if plan.IsCurrent {
		if err := r.setCurrentPlan(ctx, tx, userId, planId); err != nil {
			return BudgetPlan{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return BudgetPlan{}, fmt.Errorf("could not commit transaction: %w", err)
	}

	return BudgetPlan{Id: planId, Name: plan.Name, IsCurrent: plan.IsCurrent, Items: []BudgetItem{}}, nil
}

func (r *RepositoryImpl) UpdatePlan(ctx context.Context, userId int, plan BudgetPlan) (BudgetPlan, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return BudgetPlan{}, err
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `UPDATE budget_plan SET name = $1 WHERE id = $2 AND user_id = $3`, plan.Name, plan.Id, userId)
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return BudgetPlan{}, err
	}
	if result.RowsAffected() == 0 {
		return BudgetPlan{}, ErrPlanNotFound
	}

	if plan.IsCurrent {
		if err := r.setCurrentPlan(ctx, tx, userId, plan.Id); err != nil {
			return BudgetPlan{}, err
		}
	}

	updated, err := r.getPlan(ctx, tx, userId, plan.Id)
	if err != nil {
		return BudgetPlan{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return BudgetPlan{}, fmt.Errorf("could not commit transaction: %w", err)
	}
	return updated, nil
}

func (r *RepositoryImpl) setCurrentPlan(ctx context.Context, tx pgx.Tx, userId int, planId int) error {
	query := `INSERT INTO
					budget_plan_current (budget_plan_id, user_id) VALUES ($1, $2)
					ON CONFLICT (user_id) DO UPDATE SET budget_plan_id = EXCLUDED.budget_plan_id`
	if _, err := tx.Exec(ctx, query, planId, userId); err != nil {
		err := fmt.Errorf("could not set current plan to %d: %w", planId, err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) DeletePlan(ctx context.Context, userId int, planId int) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	currentPlanId, err := r.getCurrentPlanId(ctx, tx, userId)
	if err != nil {
		return false, err
	}
	if planId == currentPlanId {
		return false, ErrDeletingCurrentPlan
	}

	result, err := tx.Exec(ctx, `DELETE FROM budget_plan WHERE id = $1 AND user_id = $2`, planId, userId)
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("could not commit transaction: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *RepositoryImpl) GetItem(ctx context.Context, userId int, itemId int) (BudgetItem, error) {
	query := `SELECT budget_plan_id, category_id, monthly_limit, position
               FROM budget_item
               WHERE id = $1 AND user_id = $2`
	item := BudgetItem{Id: itemId}
	err := r.db.QueryRow(ctx, query, itemId, userId).Scan(&item.PlanId, &item.CategoryId, &item.MonthlyLimit, &item.Position)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BudgetItem{}, ErrBudgetPlanItemNotFound
		}
		err := fmt.Errorf("error scanning row: %w", err)
		log.Error(err)
		return BudgetItem{}, err
	}
	return item, nil
}

func (r *RepositoryImpl) UpdateItem(ctx context.Context, userId int, item BudgetItem) (bool, error) {
	query := `UPDATE budget_item SET monthly_limit = $1 WHERE id = $2 AND budget_plan_id = $3 AND user_id = $4`
	result, err := r.db.Exec(ctx, query, item.MonthlyLimit, item.Id, item.PlanId, userId)
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func (r *RepositoryImpl) UpdateItemPositions(ctx context.Context, userId int, positions []utils.Ordered) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, p := range positions {
		batch.Queue(`UPDATE budget_item SET position = $1 WHERE id = $2 AND user_id = $3`, p.Position, p.Id, userId)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		err := fmt.Errorf("could not update item positions: %w", err)
		log.Error(err)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) DeleteItem(ctx context.Context, userId int, itemId int) (bool, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM budget_item WHERE id = $1 AND user_id = $2`, itemId, userId)
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func (r *RepositoryImpl) getCurrentPlanId(ctx context.Context, tx pgx.Tx, userId int) (int, error) {
	var planId int
	err := tx.QueryRow(ctx, `SELECT budget_plan_id FROM budget_plan_current WHERE user_id = $1`, userId).Scan(&planId)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Debugf("no current plan found for user %d, returning 0", userId)
			return 0, nil
		}
		err := fmt.Errorf("could not get current plan id: %w", err)
		log.Error(err)
		return 0, err
	}
	return planId, nil
}

func (r *RepositoryImpl) countPlans(ctx context.Context, tx pgx.Tx, userId int) (int, error) {
	var count int
	err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM budget_plan WHERE user_id = $1`, userId).Scan(&count)
	if err != nil {
		err := fmt.Errorf("could not count plans: %w", err)
		log.Error(err)
		return 0, err
	}
	return count, nil
}
