package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/utils"
	"github.com/iliyamo/account-service/internal/validate"
)

const userColumns = "id,username,email,password,confirmed,created_at,updated_at"

// UserRepo stores users in MySQL. Field validation and password hashing run
// before every insert and update. The UNIQUE KEY on users.email is the
// authoritative uniqueness check; the validate pre-check only produces the
// friendly aggregated error, and a duplicate-key failure that slips past it
// under concurrency is mapped onto the same violation.
type UserRepo struct {
	DB         *sql.DB
	BcryptCost int
}

func NewUserRepo(db *sql.DB, bcryptCost int) *UserRepo {
	return &UserRepo{DB: db, BcryptCost: bcryptCost}
}

// Create validates the fields, hashes the plaintext password and inserts a
// new row. The returned user carries the store-assigned id and timestamps.
func (r *UserRepo) Create(ctx context.Context, username, email, password string) (*model.User, error) {
	u := &model.User{Username: username, Email: email}
	if err := validate.User(ctx, u, &password, r.emailTaken); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(password, r.BcryptCost)
	if err != nil {
		return nil, err
	}
	u.Password = hash

	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password, confirmed) VALUES (?,?,?,?)",
		u.Username, u.Email, u.Password, u.Confirmed)
	if err != nil {
		return nil, mapDuplicateKey(err, u.Email)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, uint64(id))
}

// Save re-validates and persists username, email and confirmed. When the
// password field differs from the stored hash it is treated as a new
// plaintext: validated and re-hashed before the update. A save that leaves
// the password untouched never re-hashes it.
func (r *UserRepo) Save(ctx context.Context, u *model.User) (*model.User, error) {
	current, err := r.FindByID(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	var plain *string
	if u.Password != current.Password {
		p := u.Password
		plain = &p
	}
	if err := validate.User(ctx, u, plain, r.emailTaken); err != nil {
		return nil, err
	}
	if plain != nil {
		hash, err := utils.HashPassword(*plain, r.BcryptCost)
		if err != nil {
			return nil, err
		}
		u.Password = hash
	}

	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET username=?, email=?, password=?, confirmed=? WHERE id=?",
		u.Username, u.Email, u.Password, u.Confirmed, u.ID)
	if err != nil {
		return nil, mapDuplicateKey(err, u.Email)
	}
	return r.FindByID(ctx, u.ID)
}

// FindByEmail fetches a user by email, ErrUserNotFound on a miss.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	return scanUser(row)
}

// FindByID fetches a user by id, ErrUserNotFound on a miss.
func (r *UserRepo) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// Count returns the total number of user records.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// ListAll returns every user ordered by id.
func (r *UserRepo) ListAll(ctx context.Context) ([]*model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Password,
			&u.Confirmed, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// emailTaken is the validate.EmailLookup backing the uniqueness pre-check.
func (r *UserRepo) emailTaken(ctx context.Context, email string, selfID uint64) (bool, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM users WHERE email=? LIMIT 1", email).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return id != selfID, nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password,
		&u.Confirmed, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// mapDuplicateKey turns MySQL error 1062 into the email-uniqueness
// violation. This is the path that wins races the pre-check cannot see.
func mapDuplicateKey(err error, email string) error {
	if strings.Contains(strings.ToLower(err.Error()), "1062") {
		return &validate.Errors{Violations: []validate.Violation{{
			Property:   "email",
			Constraint: validate.ConstraintIsEmailUnique,
			Value:      email,
			Message:    "email_must_be_unique",
		}}}
	}
	return err
}
