package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/knowledgelearning/backend/core/order"
)

type (
	orderRow struct {
		ID        string          `db:"id"`
		UserID    string          `db:"user_id"`
		CursusID  sql.NullString  `db:"cursus_id"`
		LessonID  sql.NullString  `db:"lesson_id"`
		Amount    decimal.Decimal `db:"amount"`
		Status    string          `db:"status"`
		PaidAt    sql.NullTime    `db:"paid_at"`
		CreatedAt time.Time       `db:"created_at"`
		UpdatedAt time.Time       `db:"updated_at"`
	}

	purchaseRow struct {
		ID          string          `db:"id"`
		UserID      string          `db:"user_id"`
		CursusID    sql.NullString  `db:"cursus_id"`
		LessonID    sql.NullString  `db:"lesson_id"`
		Amount      decimal.Decimal `db:"amount"`
		Reference   string          `db:"reference"`
		PurchasedAt time.Time       `db:"purchased_at"`
		CreatedAt   time.Time       `db:"created_at"`
		UpdatedAt   time.Time       `db:"updated_at"`
	}
)

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func (r orderRow) toDomain() order.Order {
	ord := order.Order{
		ID:        r.ID,
		UserID:    r.UserID,
		CursusID:  stringPtr(r.CursusID),
		LessonID:  stringPtr(r.LessonID),
		Amount:    r.Amount,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.PaidAt.Valid {
		ord.PaidAt = &r.PaidAt.Time
	}
	return ord
}

func (r purchaseRow) toDomain() order.Purchase {
	return order.Purchase{
		ID:          r.ID,
		UserID:      r.UserID,
		CursusID:    stringPtr(r.CursusID),
		LessonID:    stringPtr(r.LessonID),
		Amount:      r.Amount,
		Reference:   r.Reference,
		PurchasedAt: r.PurchasedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type orderRepository struct {
	db *sqlx.DB
}

var _ order.Repository = (*orderRepository)(nil) // interface compliance check

func NewOrderRepository(db *sqlx.DB) order.Repository {
	return &orderRepository{db: db}
}

func (repo *orderRepository) CreateOrder(ctx context.Context, ord order.Order) (order.Order, error) {
	q := `
INSERT INTO orders (id, user_id, cursus_id, lesson_id, amount, status, paid_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.db.ExecContext(ctx, q,
		ord.ID, ord.UserID, nullString(ord.CursusID), nullString(ord.LessonID),
		ord.Amount, ord.Status, ord.PaidAt, ord.CreatedAt, ord.UpdatedAt)
	if err != nil {
		return order.Order{}, errors.Wrap(err, "inserting order")
	}
	return ord, nil
}

func (repo *orderRepository) GetOrderByID(ctx context.Context, id string) (order.Order, error) {
	var row orderRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM orders WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return order.Order{}, order.ErrNotFound
		}
		return order.Order{}, errors.Wrap(err, "querying order")
	}
	return row.toDomain(), nil
}

func (repo *orderRepository) UpdateOrder(ctx context.Context, ord order.Order) (order.Order, error) {
	q := `UPDATE orders SET status = $1, paid_at = $2, updated_at = $3 WHERE id = $4`
	res, err := repo.db.ExecContext(ctx, q, ord.Status, ord.PaidAt, ord.UpdatedAt, ord.ID)
	if err != nil {
		return order.Order{}, errors.Wrap(err, "updating order")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return order.Order{}, order.ErrNotFound
	}
	return ord, nil
}

func (repo *orderRepository) CreatePurchase(ctx context.Context, pch order.Purchase) (order.Purchase, error) {
	q := `
INSERT INTO purchases (id, user_id, cursus_id, lesson_id, amount, reference, purchased_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.db.ExecContext(ctx, q,
		pch.ID, pch.UserID, nullString(pch.CursusID), nullString(pch.LessonID),
		pch.Amount, pch.Reference, pch.PurchasedAt, pch.CreatedAt, pch.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "purchases_reference_key") {
			return order.Purchase{}, order.ErrDuplicateReference
		}
		if isUniqueViolation(err, "purchases_user_id_lesson_id_key") ||
			isUniqueViolation(err, "purchases_user_id_cursus_id_key") {
			return order.Purchase{}, order.ErrDuplicateItem
		}
		return order.Purchase{}, errors.Wrap(err, "inserting purchase")
	}
	return pch, nil
}

func (repo *orderRepository) GetPurchaseByReference(ctx context.Context, ref string) (order.Purchase, error) {
	var row purchaseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM purchases WHERE reference = $1`, ref); err != nil {
		if err == sql.ErrNoRows {
			return order.Purchase{}, order.ErrNotFound
		}
		return order.Purchase{}, errors.Wrap(err, "querying purchase")
	}
	return row.toDomain(), nil
}

func (repo *orderRepository) GetPurchaseByItem(ctx context.Context, userID, itemID string) (order.Purchase, error) {
	var row purchaseRow
	q := `SELECT * FROM purchases WHERE user_id = $1 AND (lesson_id = $2 OR cursus_id = $2)`
	if err := repo.db.GetContext(ctx, &row, q, userID, itemID); err != nil {
		if err == sql.ErrNoRows {
			return order.Purchase{}, order.ErrNotFound
		}
		return order.Purchase{}, errors.Wrap(err, "querying purchase")
	}
	return row.toDomain(), nil
}

func (repo *orderRepository) QueryPurchasesByUser(ctx context.Context, userID string) ([]order.Purchase, error) {
	var rows []purchaseRow
	q := `SELECT * FROM purchases WHERE user_id = $1 ORDER BY purchased_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying purchases")
	}
	purchases := make([]order.Purchase, len(rows))
	for i, row := range rows {
		purchases[i] = row.toDomain()
	}
	return purchases, nil
}

func (repo *orderRepository) UserOwnsLesson(ctx context.Context, userID, lessonID string) (bool, error) {
	return repo.exists(ctx, `SELECT EXISTS (SELECT 1 FROM purchases WHERE user_id = $1 AND lesson_id = $2)`, userID, lessonID)
}

func (repo *orderRepository) UserOwnsCursus(ctx context.Context, userID, cursusID string) (bool, error) {
	return repo.exists(ctx, `SELECT EXISTS (SELECT 1 FROM purchases WHERE user_id = $1 AND cursus_id = $2)`, userID, cursusID)
}

func (repo *orderRepository) exists(ctx context.Context, q string, args ...interface{}) (bool, error) {
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, q, args...); err != nil {
		return false, errors.Wrap(err, "querying purchases")
	}
	return exists, nil
}

func (repo *orderRepository) QueryOwnedLessonIDsByCursus(ctx context.Context, userID, cursusID string) ([]string, error) {
	var ids []string
	q := `
SELECT p.lesson_id FROM purchases p
JOIN lessons l ON l.id = p.lesson_id
WHERE p.user_id = $1 AND l.cursus_id = $2`
	if err := repo.db.SelectContext(ctx, &ids, q, userID, cursusID); err != nil {
		return nil, errors.Wrap(err, "querying owned lessons")
	}
	return ids, nil
}
