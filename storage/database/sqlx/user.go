package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/knowledgelearning/backend/core/user"
)

type userRow struct {
	ID           string       `db:"id"`
	Name         string       `db:"name"`
	Username     string       `db:"username"`
	Email        string       `db:"email"`
	Role         string       `db:"role"`
	IsActive     bool         `db:"is_active"`
	PasswordHash []byte       `db:"password_hash"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
	LastLogin    sql.NullTime `db:"last_login"`
}

func (r userRow) toDomain() user.User {
	usr := user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		Role:         r.Role,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time
	}
	return usr
}

func newUserRow(usr user.User) userRow {
	row := userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     usr.Username,
		Email:        usr.Email,
		Role:         usr.Role,
		IsActive:     usr.IsActive,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
	}
	if !usr.LastLogin.IsZero() {
		row.LastLogin = sql.NullTime{Time: usr.LastLogin, Valid: true}
	}
	return row
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	q := `SELECT username, email FROM users WHERE (LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($2))`
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, len(excludedUsers))
		for i, usr := range excludedUsers {
			ids[i] = usr.ID
		}
		inQ, inArgs, err := sqlx.In(`SELECT username, email FROM users WHERE (LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)) AND id NOT IN (?)`, username, email, ids)
		if err != nil {
			return errors.Wrap(err, "building query")
		}
		q = repo.db.Rebind(inQ)
		args = inArgs
	}

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return errors.Wrap(err, "querying users")
	}
	for _, row := range rows {
		if row.Username == username {
			return user.ErrUsernameExists
		}
	}
	if len(rows) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	q := `
INSERT INTO users (id, name, username, email, role, is_active, password_hash, created_at, updated_at, last_login)
VALUES (:id, :name, :username, :email, :role, :is_active, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, newUserRow(usr)); err != nil {
		switch {
		case isUniqueViolation(err, "users_username_key"):
			return user.User{}, user.ErrUsernameExists
		case isUniqueViolation(err, "users_email_key"):
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	q := `SELECT * FROM users ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return usersToDomain(rows), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.get(ctx, `SELECT * FROM users WHERE id = $1`, id)
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return repo.get(ctx, `SELECT * FROM users WHERE LOWER(username) = LOWER($1)`, username)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.get(ctx, `SELECT * FROM users WHERE LOWER(email) = LOWER($1)`, email)
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return repo.get(ctx, `SELECT * FROM users WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1)`, username)
}

func (repo *userRepository) get(ctx context.Context, q string, args ...interface{}) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "querying user")
	}
	return row.toDomain(), nil
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	q := `SELECT * FROM users WHERE 1=1`
	var args []interface{}

	if filter.Search != "" {
		s := "%" + filter.Search + "%"
		q += ` AND (name ILIKE ? OR username ILIKE ? OR email ILIKE ?)`
		args = append(args, s, s, s)
	}
	if filter.Role != "" {
		q += ` AND role = ?`
		args = append(args, filter.Role)
	}
	if filter.IsActive != nil {
		q += ` AND is_active = ?`
		args = append(args, *filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		q += ` AND created_at >= ?`
		args = append(args, filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		q += ` AND created_at <= ?`
		args = append(args, filter.CreatedTo.UTC())
	}
	q += ` ORDER BY created_at DESC`

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return usersToDomain(rows), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	// only save set fields
	orig, err := repo.GetUserByID(ctx, usr.ID)
	if err != nil {
		return user.User{}, err
	}
	if usr.Name != "" {
		orig.Name = usr.Name
	}
	if usr.Username != "" {
		orig.Username = usr.Username
	}
	if usr.Email != "" {
		orig.Email = usr.Email
	}
	if usr.Role != "" {
		orig.Role = usr.Role
	}
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	orig.UpdatedAt = usr.UpdatedAt

	q := `
UPDATE users
SET name = :name, username = :username, email = :email, role = :role,
    is_active = :is_active, password_hash = :password_hash, updated_at = :updated_at
WHERE id = :id`
	if _, err = repo.db.NamedExecContext(ctx, q, newUserRow(orig)); err != nil {
		switch {
		case isUniqueViolation(err, "users_username_key"):
			return user.User{}, user.ErrUsernameExists
		case isUniqueViolation(err, "users_email_key"):
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return orig, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	orig, err := repo.GetUserByUsername(ctx, usr.Username)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return repo.CreateUser(ctx, usr)
		}
		return user.User{}, err
	}
	usr.ID = orig.ID
	return repo.UpdateUser(ctx, usr, &usr.IsActive)
}

func (repo *userRepository) SetLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	now := time.Now().UTC()
	q := `UPDATE users SET last_login = $1 WHERE id = $2`
	if _, err := repo.db.ExecContext(ctx, q, now, usr.ID); err != nil {
		return user.User{}, errors.Wrap(err, "updating last login")
	}
	usr.LastLogin = now
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	q, args, err := sqlx.In(`DELETE FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}

func usersToDomain(rows []userRow) []user.User {
	users := make([]user.User, len(rows))
	for i, row := range rows {
		users[i] = row.toDomain()
	}
	return users
}
