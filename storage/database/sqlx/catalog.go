package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/knowledgelearning/backend/core/catalog"
)

type (
	themeRow struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	cursusRow struct {
		ID        string          `db:"id"`
		ThemeID   string          `db:"theme_id"`
		Name      string          `db:"name"`
		Price     decimal.Decimal `db:"price"`
		CreatedAt time.Time       `db:"created_at"`
		UpdatedAt time.Time       `db:"updated_at"`
	}

	lessonRow struct {
		ID        string          `db:"id"`
		CursusID  string          `db:"cursus_id"`
		Title     string          `db:"title"`
		Content   string          `db:"content"`
		VideoURL  string          `db:"video_url"`
		Price     decimal.Decimal `db:"price"`
		Position  int             `db:"position"`
		CreatedAt time.Time       `db:"created_at"`
		UpdatedAt time.Time       `db:"updated_at"`
	}
)

func (r themeRow) toDomain() catalog.Theme {
	return catalog.Theme{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func (r cursusRow) toDomain() catalog.Cursus {
	return catalog.Cursus{
		ID: r.ID, ThemeID: r.ThemeID, Name: r.Name, Price: r.Price,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (r lessonRow) toDomain() catalog.Lesson {
	return catalog.Lesson{
		ID: r.ID, CursusID: r.CursusID, Title: r.Title, Content: r.Content,
		VideoURL: r.VideoURL, Price: r.Price, Position: r.Position,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type catalogRepository struct {
	db *sqlx.DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *sqlx.DB) catalog.Repository {
	return &catalogRepository{db: db}
}

// Themes

func (repo *catalogRepository) CreateTheme(ctx context.Context, thm catalog.Theme) (catalog.Theme, error) {
	if thm.ID == "" {
		thm.ID = uuid.New().String()
	}
	q := `INSERT INTO themes (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`
	if _, err := repo.db.ExecContext(ctx, q, thm.ID, thm.Name, thm.CreatedAt, thm.UpdatedAt); err != nil {
		return catalog.Theme{}, errors.Wrap(err, "inserting theme")
	}
	return thm, nil
}

func (repo *catalogRepository) GetThemeByID(ctx context.Context, id string) (catalog.Theme, error) {
	var row themeRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM themes WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Theme{}, catalog.ErrThemeNotFound
		}
		return catalog.Theme{}, errors.Wrap(err, "querying theme")
	}
	return row.toDomain(), nil
}

func (repo *catalogRepository) QueryAllThemes(ctx context.Context) ([]catalog.Theme, error) {
	var rows []themeRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM themes ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying themes")
	}
	themes := make([]catalog.Theme, len(rows))
	for i, row := range rows {
		themes[i] = row.toDomain()
	}
	return themes, nil
}

func (repo *catalogRepository) UpdateTheme(ctx context.Context, thm catalog.Theme) (catalog.Theme, error) {
	q := `UPDATE themes SET name = $1, updated_at = $2 WHERE id = $3`
	res, err := repo.db.ExecContext(ctx, q, thm.Name, thm.UpdatedAt, thm.ID)
	if err != nil {
		return catalog.Theme{}, errors.Wrap(err, "updating theme")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.Theme{}, catalog.ErrThemeNotFound
	}
	return repo.GetThemeByID(ctx, thm.ID)
}

func (repo *catalogRepository) DeleteThemesByID(ctx context.Context, ids ...string) error {
	return repo.deleteByID(ctx, "themes", ids)
}

// Cursus

func (repo *catalogRepository) CreateCursus(ctx context.Context, cur catalog.Cursus) (catalog.Cursus, error) {
	if cur.ID == "" {
		cur.ID = uuid.New().String()
	}
	q := `
INSERT INTO cursus (id, theme_id, name, price, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := repo.db.ExecContext(ctx, q, cur.ID, cur.ThemeID, cur.Name, cur.Price, cur.CreatedAt, cur.UpdatedAt); err != nil {
		return catalog.Cursus{}, errors.Wrap(err, "inserting cursus")
	}
	return cur, nil
}

func (repo *catalogRepository) GetCursusByID(ctx context.Context, id string) (catalog.Cursus, error) {
	var row cursusRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM cursus WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Cursus{}, catalog.ErrCursusNotFound
		}
		return catalog.Cursus{}, errors.Wrap(err, "querying cursus")
	}
	return row.toDomain(), nil
}

func (repo *catalogRepository) QueryAllCursus(ctx context.Context) ([]catalog.Cursus, error) {
	return repo.queryCursus(ctx, `SELECT * FROM cursus ORDER BY name`)
}

func (repo *catalogRepository) QueryCursusByTheme(ctx context.Context, themeID string) ([]catalog.Cursus, error) {
	return repo.queryCursus(ctx, `SELECT * FROM cursus WHERE theme_id = $1 ORDER BY name`, themeID)
}

func (repo *catalogRepository) queryCursus(ctx context.Context, q string, args ...interface{}) ([]catalog.Cursus, error) {
	var rows []cursusRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying cursus")
	}
	cursus := make([]catalog.Cursus, len(rows))
	for i, row := range rows {
		cursus[i] = row.toDomain()
	}
	return cursus, nil
}

func (repo *catalogRepository) UpdateCursus(ctx context.Context, cur catalog.Cursus) (catalog.Cursus, error) {
	q := `UPDATE cursus SET name = $1, price = $2, updated_at = $3 WHERE id = $4`
	res, err := repo.db.ExecContext(ctx, q, cur.Name, cur.Price, cur.UpdatedAt, cur.ID)
	if err != nil {
		return catalog.Cursus{}, errors.Wrap(err, "updating cursus")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.Cursus{}, catalog.ErrCursusNotFound
	}
	return repo.GetCursusByID(ctx, cur.ID)
}

func (repo *catalogRepository) DeleteCursusByID(ctx context.Context, ids ...string) error {
	return repo.deleteByID(ctx, "cursus", ids)
}

// Lessons

func (repo *catalogRepository) CreateLesson(ctx context.Context, lsn catalog.Lesson) (catalog.Lesson, error) {
	if lsn.ID == "" {
		lsn.ID = uuid.New().String()
	}
	q := `
INSERT INTO lessons (id, cursus_id, title, content, video_url, price, "position", created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.db.ExecContext(ctx, q,
		lsn.ID, lsn.CursusID, lsn.Title, lsn.Content, lsn.VideoURL, lsn.Price, lsn.Position, lsn.CreatedAt, lsn.UpdatedAt)
	if err != nil {
		return catalog.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return lsn, nil
}

func (repo *catalogRepository) GetLessonByID(ctx context.Context, id string) (catalog.Lesson, error) {
	var row lessonRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM lessons WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Lesson{}, catalog.ErrLessonNotFound
		}
		return catalog.Lesson{}, errors.Wrap(err, "querying lesson")
	}
	return row.toDomain(), nil
}

func (repo *catalogRepository) QueryAllLessons(ctx context.Context) ([]catalog.Lesson, error) {
	return repo.queryLessons(ctx, `SELECT * FROM lessons ORDER BY cursus_id, "position"`)
}

func (repo *catalogRepository) QueryLessonsByCursus(ctx context.Context, cursusID string) ([]catalog.Lesson, error) {
	return repo.queryLessons(ctx, `SELECT * FROM lessons WHERE cursus_id = $1 ORDER BY "position"`, cursusID)
}

func (repo *catalogRepository) QueryLessonsByTheme(ctx context.Context, themeID string) ([]catalog.Lesson, error) {
	q := `
SELECT l.* FROM lessons l
JOIN cursus c ON c.id = l.cursus_id
WHERE c.theme_id = $1
ORDER BY c.name, l."position"`
	return repo.queryLessons(ctx, q, themeID)
}

func (repo *catalogRepository) queryLessons(ctx context.Context, q string, args ...interface{}) ([]catalog.Lesson, error) {
	var rows []lessonRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	lessons := make([]catalog.Lesson, len(rows))
	for i, row := range rows {
		lessons[i] = row.toDomain()
	}
	return lessons, nil
}

func (repo *catalogRepository) UpdateLesson(ctx context.Context, lsn catalog.Lesson) (catalog.Lesson, error) {
	q := `
UPDATE lessons
SET title = $1, content = $2, video_url = $3, price = $4, "position" = $5, updated_at = $6
WHERE id = $7`
	res, err := repo.db.ExecContext(ctx, q, lsn.Title, lsn.Content, lsn.VideoURL, lsn.Price, lsn.Position, lsn.UpdatedAt, lsn.ID)
	if err != nil {
		return catalog.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.Lesson{}, catalog.ErrLessonNotFound
	}
	return repo.GetLessonByID(ctx, lsn.ID)
}

func (repo *catalogRepository) DeleteLessonsByID(ctx context.Context, ids ...string) error {
	return repo.deleteByID(ctx, "lessons", ids)
}

func (repo *catalogRepository) deleteByID(ctx context.Context, table string, ids []string) error {
	q, args, err := sqlx.In(`DELETE FROM `+table+` WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting from "+table)
	}
	return nil
}
