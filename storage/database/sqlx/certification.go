package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/knowledgelearning/backend/core/certification"
)

type certificationRow struct {
	ID       string    `db:"id"`
	UserID   string    `db:"user_id"`
	ThemeID  string    `db:"theme_id"`
	IssuedAt time.Time `db:"issued_at"`
}

func (r certificationRow) toDomain() certification.Certification {
	return certification.Certification{ID: r.ID, UserID: r.UserID, ThemeID: r.ThemeID, IssuedAt: r.IssuedAt}
}

type certificationRepository struct {
	db *sqlx.DB
}

var _ certification.Repository = (*certificationRepository)(nil) // interface compliance check

func NewCertificationRepository(db *sqlx.DB) certification.Repository {
	return &certificationRepository{db: db}
}

func (repo *certificationRepository) CreateCertification(ctx context.Context, crt certification.Certification) (certification.Certification, error) {
	q := `INSERT INTO certifications (id, user_id, theme_id, issued_at) VALUES ($1, $2, $3, $4)`
	if _, err := repo.db.ExecContext(ctx, q, crt.ID, crt.UserID, crt.ThemeID, crt.IssuedAt); err != nil {
		if isUniqueViolation(err, "certifications_user_id_theme_id_key") {
			return certification.Certification{}, certification.ErrExists
		}
		return certification.Certification{}, errors.Wrap(err, "inserting certification")
	}
	return crt, nil
}

func (repo *certificationRepository) GetCertification(ctx context.Context, userID, themeID string) (certification.Certification, error) {
	var row certificationRow
	q := `SELECT * FROM certifications WHERE user_id = $1 AND theme_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, userID, themeID); err != nil {
		if err == sql.ErrNoRows {
			return certification.Certification{}, certification.ErrNotFound
		}
		return certification.Certification{}, errors.Wrap(err, "querying certification")
	}
	return row.toDomain(), nil
}

func (repo *certificationRepository) QueryCertificationsByUser(ctx context.Context, userID string) ([]certification.Certification, error) {
	return repo.query(ctx, `SELECT * FROM certifications WHERE user_id = $1 ORDER BY issued_at DESC`, userID)
}

func (repo *certificationRepository) QueryAllCertifications(ctx context.Context) ([]certification.Certification, error) {
	return repo.query(ctx, `SELECT * FROM certifications ORDER BY issued_at DESC`)
}

func (repo *certificationRepository) query(ctx context.Context, q string, args ...interface{}) ([]certification.Certification, error) {
	var rows []certificationRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying certifications")
	}
	crts := make([]certification.Certification, len(rows))
	for i, row := range rows {
		crts[i] = row.toDomain()
	}
	return crts, nil
}
