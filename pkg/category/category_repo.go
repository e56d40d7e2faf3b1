package category

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fundwise/fundwise/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrCategoryNotFound = errors.New("category not found")
var ErrCategoryNameTaken = errors.New("category name already used")

type Repository interface {
	Store(ctx context.Context, userId int, category Category) (Category, error)
	Get(ctx context.Context, userId int, id int) (Category, error)
	List(ctx context.Context, userId int) ([]Category, error)
	Update(ctx context.Context, userId int, category Category) (bool, error)
	UpdatePositions(ctx context.Context, userId int, positions []utils.Ordered) error
	Delete(ctx context.Context, userId int, id int) (bool, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewCategoryRepo(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const selectCategory = `SELECT id, name, kind, icon, color, position FROM category`

// Store appends the category after the last one of the user.
func (r *RepositoryImpl) Store(ctx context.Context, userId int, category Category) (Category, error) {
	query := `INSERT INTO category (user_id, name, kind, icon, color, position)
				VALUES ($1, $2, $3, $4, $5,
				        (SELECT COALESCE(MAX(position), 0) + $6 FROM category WHERE user_id = $1))
				RETURNING id, position`
	err := r.db.QueryRow(ctx, query,
		userId,
		category.Name,
		string(category.Kind),
		category.Icon,
		category.Color,
		utils.PositionStep,
	).Scan(&category.Id, &category.Position)
	if err != nil {
		if isUniqueViolation(err) {
			return Category{}, ErrCategoryNameTaken
		}
		err := fmt.Errorf("could not store category: %w", err)
		log.Error(err)
		return Category{}, err
	}
	return category, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, userId int, id int) (Category, error) {
	category, err := scanCategory(r.db.QueryRow(ctx, selectCategory+` WHERE user_id = $1 AND id = $2`, userId, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrCategoryNotFound
	} else if err != nil {
		err := fmt.Errorf("could not get category: %w", err)
		log.Error(err)
		return Category{}, err
	}
	return category, nil
}

func (r *RepositoryImpl) List(ctx context.Context, userId int) ([]Category, error) {
	rows, err := r.db.Query(ctx, selectCategory+` WHERE user_id = $1 ORDER BY position, id`, userId)
	if err != nil {
		err := fmt.Errorf("could not query categories: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			err := fmt.Errorf("error scanning row: %w", err)
			log.Error(err)
			return nil, err
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return categories, nil
}

func (r *RepositoryImpl) Update(ctx context.Context, userId int, category Category) (bool, error) {
	query := `UPDATE category SET name = $1, kind = $2, icon = $3, color = $4 WHERE id = $5 AND user_id = $6`
	result, err := r.db.Exec(ctx, query,
		category.Name,
		string(category.Kind),
		category.Icon,
		category.Color,
		category.Id,
		userId,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, ErrCategoryNameTaken
		}
		err := fmt.Errorf("could not update category: %w", err)
		log.Error(err)
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

// UpdatePositions writes all positions in one transaction so a renumbering is never half applied.
func (r *RepositoryImpl) UpdatePositions(ctx context.Context, userId int, positions []utils.Ordered) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, p := range positions {
		batch.Queue(`UPDATE category SET position = $1 WHERE id = $2 AND user_id = $3`, p.Position, p.Id, userId)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		err := fmt.Errorf("could not update category positions: %w", err)
		log.Error(err)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, userId int, id int) (bool, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM category WHERE id = $1 AND user_id = $2`, id, userId)
	if err != nil {
		err := fmt.Errorf("could not delete category: %w", err)
		log.Error(err)
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func scanCategory(row pgx.Row) (Category, error) {
	var (
		category Category
		kind     string
		icon     sql.NullString
		color    sql.NullString
	)
	err := row.Scan(&category.Id, &category.Name, &kind, &icon, &color, &category.Position)
	category.Kind = Kind(kind)
	category.Icon = icon.String
	category.Color = color.String
	return category, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
