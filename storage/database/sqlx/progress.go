package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/knowledgelearning/backend/core/progress"
)

type progressRow struct {
	ID          string       `db:"id"`
	UserID      string       `db:"user_id"`
	LessonID    string       `db:"lesson_id"`
	Completed   bool         `db:"completed"`
	Validated   bool         `db:"validated"`
	CompletedAt sql.NullTime `db:"completed_at"`
	ValidatedAt sql.NullTime `db:"validated_at"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

func (r progressRow) toDomain() progress.Progress {
	prg := progress.Progress{
		ID:        r.ID,
		UserID:    r.UserID,
		LessonID:  r.LessonID,
		Completed: r.Completed,
		Validated: r.Validated,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.CompletedAt.Valid {
		prg.CompletedAt = &r.CompletedAt.Time
	}
	if r.ValidatedAt.Valid {
		prg.ValidatedAt = &r.ValidatedAt.Time
	}
	return prg
}

type progressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *sqlx.DB) progress.Repository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) GetProgress(ctx context.Context, userID, lessonID string) (progress.Progress, error) {
	var row progressRow
	q := `SELECT * FROM progress WHERE user_id = $1 AND lesson_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, userID, lessonID); err != nil {
		if err == sql.ErrNoRows {
			return progress.Progress{}, progress.ErrNotFound
		}
		return progress.Progress{}, errors.Wrap(err, "querying progress")
	}
	return row.toDomain(), nil
}

func (repo *progressRepository) UpsertProgress(ctx context.Context, prg progress.Progress) (progress.Progress, error) {
	q := `
INSERT INTO progress (id, user_id, lesson_id, completed, validated, completed_at, validated_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (user_id, lesson_id) DO UPDATE
SET completed = EXCLUDED.completed, validated = EXCLUDED.validated,
    completed_at = EXCLUDED.completed_at, validated_at = EXCLUDED.validated_at,
    updated_at = EXCLUDED.updated_at`
	_, err := repo.db.ExecContext(ctx, q,
		prg.ID, prg.UserID, prg.LessonID, prg.Completed, prg.Validated,
		prg.CompletedAt, prg.ValidatedAt, prg.CreatedAt, prg.UpdatedAt)
	if err != nil {
		return progress.Progress{}, errors.Wrap(err, "upserting progress")
	}
	return prg, nil
}

func (repo *progressRepository) QueryProgressByUser(ctx context.Context, userID string) ([]progress.Progress, error) {
	var rows []progressRow
	q := `SELECT * FROM progress WHERE user_id = $1 ORDER BY updated_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	res := make([]progress.Progress, len(rows))
	for i, row := range rows {
		res[i] = row.toDomain()
	}
	return res, nil
}

func (repo *progressRepository) FilterValidatedLessonIDs(ctx context.Context, userID string, lessonIDs []string) ([]string, error) {
	if len(lessonIDs) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(`SELECT lesson_id FROM progress WHERE user_id = ? AND validated AND lesson_id IN (?)`, userID, lessonIDs)
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var ids []string
	if err = repo.db.SelectContext(ctx, &ids, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying validations")
	}
	return ids, nil
}
